//go:build unix

package sshclient

import (
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

func checkWritable(fs afero.Fs, dir string) error {
	if _, ok := fs.(*afero.OsFs); ok {
		return unix.Access(dir, unix.W_OK)
	}
	return checkModeWritable(fs, dir)
}
