package sshclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// CommandRunner runs shell commands on the remote host. Client implements
// it; connections without a shell, such as FsRemote, do not.
type CommandRunner interface {
	Exec(ctx context.Context, command string) (*ExecResult, error)
}

var _ CommandRunner = (*Client)(nil)

// ExecResult holds the output of a finished remote command.
type ExecResult struct {
	// Command is the line sent to the remote shell, including the cd prefix.
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Exec runs command through the remote shell from the tracked working
// directory. A non-zero exit status returns the result together with a
// *CommandError.
func (c *Client) Exec(ctx context.Context, command string) (*ExecResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("operation cancelled: %w", err)
	}
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("empty command")
	}
	if c.sshClient == nil {
		return nil, c.fail(errors.New("failed to run command: no SSH session"))
	}

	session, err := c.sshClient.NewSession()
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to create SSH session: %w", err))
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	line := remoteCommand(c.cwd, command)

	done := make(chan error, 1)
	go func() {
		done <- session.Run(line)
	}()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return nil, fmt.Errorf("command cancelled: %w", ctx.Err())
	case err := <-done:
		result := &ExecResult{Command: line, Stdout: stdout.String(), Stderr: stderr.String()}
		if err == nil {
			return result, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, c.fail(&CommandError{Command: command, ExitCode: result.ExitCode, Stderr: result.Stderr})
		}
		return nil, c.fail(fmt.Errorf("failed to run command: %w", err))
	}
}

// remoteCommand prefixes command with a cd into dir.
func remoteCommand(dir, command string) string {
	if dir == "" {
		return command
	}
	return "cd " + shellQuote(dir) + " && " + command
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	escaped := strings.ReplaceAll(s, "'", "'\"'\"'")
	return "'" + escaped + "'"
}
