// Package sshclient moves files between a local filesystem and a remote
// one reached over SSH/SFTP.
//
// This package provides:
//   - RemoteFilesystem, the narrow set of remote operations the transfer
//     engine needs, implemented by Client (SFTP) and FsRemote (afero)
//   - Listing, an immutable and chainable view over remote paths
//   - Planner, which selects local files by depth, name pattern, include
//     and exclude rules into a TransferPlan
//   - Resolver, which decides where each file lands
//   - Executor, which runs a batch one item at a time and records every
//     outcome in a Report without stopping on item failures
//   - ConnectionManager for named, reference-counted connections
//
// # Basic Usage
//
// Upload a tree:
//
//	client, err := sshclient.Connect(ctx, sshclient.Config{
//		Host:    "example.com",
//		User:    "deploy",
//		KeyPath: "~/.ssh/id_ed25519",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	plan, err := sshclient.NewPlanner(nil, nil).Plan(ctx, "./site", sshclient.PlanOptions{
//		Recursive:   true,
//		NamePattern: "*.html",
//		Excludes:    []string{"drafts/**"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	report, err := sshclient.NewExecutor(client, nil, nil, nil).
//		Upload(ctx, plan, "/var/www", sshclient.UploadOptions{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(report.Summary())
//
// # Listings
//
//	listing, err := sshclient.ListRemote(ctx, client, "/var/log", false)
//	if err != nil {
//		log.Fatal(err)
//	}
//	logs, err := listing.WithoutHidden().WithExtension(ctx, "log")
//
// Each FilesOnly, DirectoriesOnly and WithExtension call issues one stat
// per entry.
//
// # Remote Commands
//
// Exec runs a shell command from the client's working directory:
//
//	result, err := client.Exec(ctx, "php artisan migrate --force")
//	var cmdErr *sshclient.CommandError
//	if errors.As(err, &cmdErr) {
//		fmt.Println(cmdErr.ExitCode, result.Stderr)
//	}
package sshclient
