//go:build !unix

package sshclient

import (
	"github.com/spf13/afero"
)

func checkWritable(fs afero.Fs, dir string) error {
	if _, ok := fs.(*afero.OsFs); !ok {
		return checkModeWritable(fs, dir)
	}
	tmp, err := afero.TempFile(fs, dir, ".sshclient-tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	tmp.Close()
	return fs.Remove(name)
}
