package sshclient

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/spf13/afero"
)

// FsRemote is a RemoteFilesystem backed by an afero.Fs. It serves local
// ("file://") connections and acts as an in-memory remote in tests.
type FsRemote struct {
	fs      afero.Fs
	cwd     string
	lastErr string
}

var _ RemoteFilesystem = (*FsRemote)(nil)

// NewFsRemote returns an FsRemote rooted at "/" of fs.
func NewFsRemote(fs afero.Fs) *FsRemote {
	return &FsRemote{fs: fs, cwd: "/"}
}

func (r *FsRemote) fail(err error) error {
	r.lastErr = err.Error()
	return err
}

func (r *FsRemote) abs(p string) string {
	return resolveRemotePath(r.cwd, p)
}

// Getwd returns the tracked working directory.
func (r *FsRemote) Getwd(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("operation cancelled: %w", err)
	}
	return r.cwd, nil
}

// Chdir sets the working directory used to resolve relative paths.
func (r *FsRemote) Chdir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}
	target := r.abs(dir)
	info, err := r.fs.Stat(target)
	if err != nil {
		return r.fail(fmt.Errorf("failed to change directory to %s: %w", target, err))
	}
	if !info.IsDir() {
		return r.fail(fmt.Errorf("failed to change directory to %s: not a directory", target))
	}
	r.cwd = target
	return nil
}

// List returns full paths below dir in lexical order.
func (r *FsRemote) List(ctx context.Context, dir string, recursive bool) ([]string, error) {
	paths, err := listTree(ctx, r.abs(dir), recursive, func(d string) ([]os.FileInfo, error) {
		return afero.ReadDir(r.fs, d)
	})
	if err != nil {
		return nil, r.fail(err)
	}
	return paths, nil
}

// IsDir reports whether p is a directory.
func (r *FsRemote) IsDir(ctx context.Context, p string) bool {
	if ctx.Err() != nil {
		return false
	}
	info, err := r.fs.Stat(r.abs(p))
	return err == nil && info.IsDir()
}

// IsFile reports whether p is a regular file.
func (r *FsRemote) IsFile(ctx context.Context, p string) bool {
	if ctx.Err() != nil {
		return false
	}
	info, err := r.fs.Stat(r.abs(p))
	return err == nil && info.Mode().IsRegular()
}

// Exists reports whether p exists.
func (r *FsRemote) Exists(ctx context.Context, p string) bool {
	if ctx.Err() != nil {
		return false
	}
	_, err := r.fs.Stat(r.abs(p))
	return err == nil
}

// FileSize returns the size of p.
func (r *FsRemote) FileSize(ctx context.Context, p string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("operation cancelled: %w", err)
	}
	info, err := r.fs.Stat(r.abs(p))
	if err != nil {
		return 0, r.fail(fmt.Errorf("failed to stat %s: %w", p, err))
	}
	return info.Size(), nil
}

// ReadFile returns the contents of p.
func (r *FsRemote) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("operation cancelled: %w", err)
	}
	data, err := afero.ReadFile(r.fs, r.abs(p))
	if err != nil {
		return nil, r.fail(fmt.Errorf("failed to read %s: %w", p, err))
	}
	return data, nil
}

// WriteFile fails when the parent directory is missing, like an SFTP server
// would.
func (r *FsRemote) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}
	target := r.abs(p)
	parent, err := r.fs.Stat(path.Dir(target))
	if err != nil || !parent.IsDir() {
		return r.fail(fmt.Errorf("failed to write %s: %w", target, os.ErrNotExist))
	}
	if err := afero.WriteFile(r.fs, target, data, 0644); err != nil {
		return r.fail(fmt.Errorf("failed to write %s: %w", target, err))
	}
	return nil
}

// Mkdir creates p, and its parents when recursive is set.
func (r *FsRemote) Mkdir(ctx context.Context, p string, mode os.FileMode, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}
	target := r.abs(p)
	if recursive {
		if err := r.fs.MkdirAll(target, mode); err != nil {
			return r.fail(fmt.Errorf("failed to create directory %s: %w", target, err))
		}
		return nil
	}
	if parent, err := r.fs.Stat(path.Dir(target)); err != nil || !parent.IsDir() {
		return r.fail(fmt.Errorf("failed to create directory %s: %w", target, os.ErrNotExist))
	}
	if err := r.fs.Mkdir(target, mode); err != nil {
		return r.fail(fmt.Errorf("failed to create directory %s: %w", target, err))
	}
	return nil
}

// LastError returns the message of the most recent failed operation.
func (r *FsRemote) LastError() string {
	return r.lastErr
}

// Close is a no-op; it lets FsRemote be managed like an SFTP connection.
func (r *FsRemote) Close() error { return nil }

// IsHealthy always reports true.
func (r *FsRemote) IsHealthy() bool { return true }
