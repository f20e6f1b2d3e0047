package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sshclient "github.com/vigihdev/ssh-client"
)

var (
	version = "dev"
	commit  = "none"
)

// errBatchFailed signals that some items failed. The report was already
// printed, so main only sets the exit status.
var errBatchFailed = errors.New("one or more transfers failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], newApp())
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, a *app) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(ctx)
	a.close()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errBatchFailed) {
		msg := "Error: " + err.Error()
		if code := sshclient.ErrorCode(err); code != 0 {
			msg = fmt.Sprintf("Error [%d]: %s", code, err.Error())
		}
		fmt.Fprintln(a.stderr, failStyle.Render(msg))
	}
	return 1
}
