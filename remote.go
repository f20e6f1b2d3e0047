package sshclient

import (
	"context"
	"fmt"
	"os"
	"path"
)

// RemoteFilesystem is the set of remote operations the transfer engine
// depends on. Implementations carry a current working directory that
// relative paths resolve against, so a RemoteFilesystem must not be used
// by more than one goroutine at a time.
type RemoteFilesystem interface {
	// Getwd returns the current remote working directory.
	Getwd(ctx context.Context) (string, error)
	// Chdir changes the current remote working directory.
	Chdir(ctx context.Context, dir string) error
	// List returns the entries below dir as full paths, in server order.
	// When recursive is true, entries of subdirectories are included.
	List(ctx context.Context, dir string, recursive bool) ([]string, error)
	// IsDir reports whether p is a directory.
	IsDir(ctx context.Context, p string) bool
	// IsFile reports whether p is a regular file.
	IsFile(ctx context.Context, p string) bool
	// Exists reports whether p exists.
	Exists(ctx context.Context, p string) bool
	// FileSize returns the size of p in bytes.
	FileSize(ctx context.Context, p string) (int64, error)
	// ReadFile returns the full contents of p.
	ReadFile(ctx context.Context, p string) ([]byte, error)
	// WriteFile creates or truncates p and writes data to it.
	WriteFile(ctx context.Context, p string, data []byte) error
	// Mkdir creates directory p. With recursive set, missing parents are
	// created too.
	Mkdir(ctx context.Context, p string, mode os.FileMode, recursive bool) error
	// LastError returns a description of the most recent failure, or "".
	LastError() string
}

type readDirFunc func(dir string) ([]os.FileInfo, error)

// listTree lists dir through readDir, descending into subdirectories when
// recursive is set. A subdirectory's contents follow its own entry;
// siblings keep the order readDir returns them in.
func listTree(ctx context.Context, dir string, recursive bool, readDir readDirFunc) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("operation cancelled: %w", err)
	}

	infos, err := readDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		full := path.Join(dir, info.Name())
		paths = append(paths, full)
		if recursive && info.IsDir() {
			children, err := listTree(ctx, full, true, readDir)
			if err != nil {
				return nil, err
			}
			paths = append(paths, children...)
		}
	}
	return paths, nil
}

// resolveRemotePath makes p absolute against cwd using slash semantics.
func resolveRemotePath(cwd, p string) string {
	if p == "" {
		return cwd
	}
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(cwd, p)
}
