package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	sshclient "github.com/vigihdev/ssh-client"
)

func newExecCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "exec [flags] -- <command...>",
		Short: "Run a shell command on the remote host",
		Long: `Run a shell command on the remote host from the connection's remote path.

Arguments are joined with spaces and passed to the remote shell unchanged,
so quote them the way the remote shell expects. The command's exit status
becomes an error with code 3001.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := a.openRunner(ctx, dir)
			if err != nil {
				return err
			}
			_, err = a.runRemote(ctx, runner, strings.Join(args, " "))
			return err
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Remote directory to run the command from")
	return cmd
}

// openRunner opens the selected connection for remote commands, entering
// dir first when it is set.
func (a *app) openRunner(ctx context.Context, dir string) (sshclient.CommandRunner, error) {
	conn, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	runner, ok := conn.(sshclient.CommandRunner)
	if !ok {
		return nil, fmt.Errorf("connection %q does not support remote commands", a.connectionName())
	}
	if dir != "" {
		if err := conn.Chdir(ctx, dir); err != nil {
			return nil, &sshclient.RemoteNotFoundError{Path: dir}
		}
	}
	return runner, nil
}

// runRemote runs command and copies its output to the app's streams.
func (a *app) runRemote(ctx context.Context, runner sshclient.CommandRunner, command string) (*sshclient.ExecResult, error) {
	a.log.Debugf("running %q", command)
	result, err := runner.Exec(ctx, command)
	if result != nil {
		io.WriteString(a.stdout, result.Stdout)
		io.WriteString(a.stderr, result.Stderr)
		a.log.Debugf("%q exited with status %d", result.Command, result.ExitCode)
	}
	return result, err
}
