package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	sshclient "github.com/vigihdev/ssh-client"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		opts          sshclient.PlanOptions
		includeHidden bool
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "upload <local> <remote>",
		Short: "Upload a local file or directory tree",
		Example: `  sshclient upload ./public /var/www -r -e '*.map'
  sshclient upload ./docs docs -p '*.md' --dry-run`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			local, remote := args[0], args[1]
			opts.SkipHidden = !includeHidden

			plan, err := sshclient.NewPlanner(a.localFs, a.log).Plan(ctx, local, opts)
			if err != nil {
				return err
			}

			conn, err := a.open(ctx)
			if err != nil {
				return err
			}
			a.log.Infof("uploading %d files (%s) to %s:%s",
				plan.Len(), humanize.IBytes(uint64(plan.TotalBytes())), a.connectionName(), remote)

			exec := sshclient.NewExecutor(conn, a.localFs, nil, a.log)
			exec.Observer = a.printOutcome
			report, err := exec.Upload(ctx, plan, remote, sshclient.UploadOptions{DryRun: dryRun})
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			return a.finish(report)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.Recursive, "recursive", "r", false, "Include subdirectories")
	f.StringVarP(&opts.NamePattern, "pattern", "p", "", "Only files whose name matches this glob or /regexp/")
	f.StringArrayVarP(&opts.Includes, "include", "i", nil, "Keep files matching any of these patterns (repeatable)")
	f.StringArrayVarP(&opts.Excludes, "exclude", "e", nil, "Drop files matching any of these patterns (repeatable)")
	f.BoolVar(&includeHidden, "include-hidden", false, "Also upload dot-files and dot-directories")
	f.BoolVar(&dryRun, "dry-run", false, "Show what would be uploaded without writing")
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var opts sshclient.DownloadOptions

	cmd := &cobra.Command{
		Use:   "download <remote> [local]",
		Short: "Download a remote file or directory",
		Long: `Download a remote file or directory. A directory is recreated below
[local] under its own name, hidden entries excluded. A file is written into
[local] when it is a directory or ends in a separator, otherwise to [local]
itself.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			remote, local := args[0], "."
			if len(args) == 2 {
				local = args[1]
			}

			conn, err := a.open(ctx)
			if err != nil {
				return err
			}

			resolver := sshclient.NewResolver(a.localFs, a.confirmFunc())
			exec := sshclient.NewExecutor(conn, a.localFs, resolver, a.log)
			exec.Observer = a.printOutcome
			report, err := exec.Download(ctx, remote, local, opts)
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}
			return a.finish(report)
		},
	}

	cmd.Flags().BoolVarP(&opts.Recursive, "recursive", "r", false, "Include subdirectories")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be downloaded without writing")
	return cmd
}
