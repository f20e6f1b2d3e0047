package sshclient

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ConfirmFunc asks whether a missing local directory may be created.
type ConfirmFunc func(dir string) bool

// Resolver computes transfer destinations.
//
// Confirm is consulted before a missing local directory is created. A nil
// Confirm means non-interactive mode: directories are created without
// asking.
type Resolver struct {
	Fs      afero.Fs
	Confirm ConfirmFunc
}

// NewResolver returns a Resolver over fs, or over the OS filesystem when fs
// is nil.
func NewResolver(fs afero.Fs, confirm ConfirmFunc) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Resolver{Fs: fs, Confirm: confirm}
}

func hasTrailingSeparator(p string) bool {
	return strings.HasSuffix(p, "/") || strings.HasSuffix(p, string(filepath.Separator))
}

// ResolveDownload returns the local path remoteFile should be written to.
//
// An existing directory target, or a target ending in a separator, receives
// the remote base name. Any other target is an explicit file path; its
// parent is created subject to Confirm, and refusal yields
// *DestinationMissingError.
func (r *Resolver) ResolveDownload(remoteFile, target string) (string, error) {
	dest := r.DownloadTarget(remoteFile, target)
	if err := r.ensureDir(filepath.Dir(dest)); err != nil {
		return "", err
	}
	return dest, nil
}

// DownloadTarget computes the same destination as ResolveDownload without
// touching the filesystem beyond a single stat of target.
func (r *Resolver) DownloadTarget(remoteFile, target string) string {
	name := path.Base(remoteFile)

	if hasTrailingSeparator(target) {
		return filepath.Join(filepath.Clean(target), name)
	}
	if isDir, _ := afero.IsDir(r.Fs, target); isDir {
		return filepath.Join(target, name)
	}
	return target
}

// ResolveUpload returns the remote path for a file at relPath below the
// source root.
func (r *Resolver) ResolveUpload(destRoot, relPath string) string {
	return path.Join(destRoot, filepath.ToSlash(relPath))
}

// ResolveMirror returns the local path for remoteFile found while
// downloading remoteDir into target. The remote directory's own name is
// kept, so "/srv/logs/a/b.txt" from "/srv/logs" into "out" lands at
// "out/logs/a/b.txt".
func (r *Resolver) ResolveMirror(target, remoteDir, remoteFile string) string {
	dir := path.Clean(remoteDir)
	rel := strings.TrimPrefix(path.Clean(remoteFile), dir)
	rel = strings.TrimPrefix(rel, "/")
	return filepath.Join(target, path.Base(dir), filepath.FromSlash(rel))
}

// EnsureLocalDir makes sure dir exists and is writable.
func (r *Resolver) EnsureLocalDir(dir string) error {
	if err := r.ensureDir(dir); err != nil {
		return err
	}
	if err := checkWritable(r.Fs, dir); err != nil {
		return &NotWritableError{Dir: dir, Err: err}
	}
	return nil
}

func (r *Resolver) ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}

	info, err := r.Fs.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("destination %s exists and is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}

	if r.Confirm != nil && !r.Confirm(dir) {
		return &DestinationMissingError{Dir: dir}
	}
	if err := r.Fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// checkModeWritable inspects permission bits for filesystems that are not
// backed by the OS.
func checkModeWritable(fs afero.Fs, dir string) error {
	info, err := fs.Stat(dir)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0200 == 0 {
		return os.ErrPermission
	}
	return nil
}
