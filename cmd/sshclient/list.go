package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	sshclient "github.com/vigihdev/ssh-client"
)

func newListCmd(a *app) *cobra.Command {
	var (
		recursive bool
		filesOnly bool
		dirsOnly  bool
		noHidden  bool
		ext       string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "list [remote]",
		Short: "List a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			conn, err := a.open(ctx)
			if err != nil {
				return err
			}

			if !conn.IsDir(ctx, dir) {
				return &sshclient.RemoteNotFoundError{Path: dir}
			}
			listing, err := sshclient.ListRemote(ctx, conn, dir, recursive)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", dir, err)
			}

			if noHidden {
				listing = listing.WithoutHidden()
			}
			switch {
			case filesOnly:
				listing, err = listing.FilesOnly(ctx)
			case dirsOnly:
				listing, err = listing.DirectoriesOnly(ctx)
			}
			if err != nil {
				return err
			}
			if ext != "" {
				if listing, err = listing.WithExtension(ctx, ext); err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(listing)
			}
			listing.Each(func(_ int, p string) {
				fmt.Fprintln(a.stdout, p)
			})
			a.log.Debugf("%d entries", listing.Count())
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&recursive, "recursive", "r", false, "Include subdirectories")
	f.BoolVar(&filesOnly, "files-only", false, "Only regular files")
	f.BoolVar(&dirsOnly, "dirs-only", false, "Only directories")
	f.BoolVar(&noHidden, "no-hidden", false, "Hide dot-entries")
	f.StringVar(&ext, "ext", "", "Only files with this extension")
	f.BoolVar(&asJSON, "json", false, "Print a JSON array")
	cmd.MarkFlagsMutuallyExclusive("files-only", "dirs-only")
	return cmd
}
