package sshclient

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes grouped by family: 1xxx connection, 2xxx command input,
// 3xxx remote commands, 4xxx directory handling, 5xxx configuration.
const (
	CodeConnectionFailed     = 1001
	CodeAuthFailed           = 1002
	CodeSFTPSubsystem        = 1003
	CodeRemoteBasePath       = 1004
	CodeHostKeyRejected      = 1005
	CodeSourceNotFound       = 2001
	CodeRemoteNotFound       = 2002
	CodeInvalidPattern       = 2003
	CodeCommandFailed        = 3001
	CodeDestinationMissing   = 4001
	CodeDirectoryNotWritable = 4002
	CodeInvalidConfig        = 5001
)

// ConnectionError reports that a remote connection could not be established
// or is unusable.
type ConnectionError struct {
	Host string
	Op   string
	Err  error
	code int
}

func (e *ConnectionError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("connection: failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("connection to %s: failed to %s: %v", e.Host, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Permanent reports whether retrying cannot help: only plain connection
// failures (code 1001) are worth another attempt.
func (e *ConnectionError) Permanent() bool {
	return e.Code() != CodeConnectionFailed
}

// Code returns the numeric error code.
func (e *ConnectionError) Code() int {
	if e.code == 0 {
		return CodeConnectionFailed
	}
	return e.code
}

// SourceNotFoundError is returned when the local source root of an upload
// does not exist or cannot be read.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source not found: %s", e.Path)
	}
	return fmt.Sprintf("source not found: %s: %v", e.Path, e.Err)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

func (e *SourceNotFoundError) Code() int { return CodeSourceNotFound }

// RemoteNotFoundError is returned when a remote path is neither a file nor
// a directory.
type RemoteNotFoundError struct {
	Path string
}

func (e *RemoteNotFoundError) Error() string {
	return fmt.Sprintf("remote path is neither a file nor a directory: %s", e.Path)
}

func (e *RemoteNotFoundError) Code() int { return CodeRemoteNotFound }

// PatternError reports an invalid name, include or exclude pattern.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

func (e *PatternError) Code() int { return CodeInvalidPattern }

// CommandError reports a remote command that exited with a non-zero status.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		if i := strings.LastIndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Code() int { return CodeCommandFailed }

// DestinationMissingError is returned when the parent directory of a
// download target does not exist and creating it was refused.
type DestinationMissingError struct {
	Dir string
}

func (e *DestinationMissingError) Error() string {
	return fmt.Sprintf("destination directory does not exist: %s", e.Dir)
}

func (e *DestinationMissingError) Code() int { return CodeDestinationMissing }

// NotWritableError is returned when a local destination directory exists
// but cannot be written to.
type NotWritableError struct {
	Dir string
	Err error
}

func (e *NotWritableError) Error() string {
	return fmt.Sprintf("directory is not writable: %s: %v", e.Dir, e.Err)
}

func (e *NotWritableError) Unwrap() error { return e.Err }

func (e *NotWritableError) Code() int { return CodeDirectoryNotWritable }

// IsStructural reports whether err invalidates a whole batch rather than a
// single item.
func IsStructural(err error) bool {
	if err == nil {
		return false
	}
	var (
		connErr    *ConnectionError
		srcErr     *SourceNotFoundError
		remoteErr  *RemoteNotFoundError
		patternErr *PatternError
	)
	return errors.As(err, &connErr) ||
		errors.As(err, &srcErr) ||
		errors.As(err, &remoteErr) ||
		errors.As(err, &patternErr)
}

// ErrorCode extracts the numeric code from err, or 0 if it has none.
func ErrorCode(err error) int {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return 0
}
