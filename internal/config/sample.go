package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sample returns the configuration written by WriteSample. Secrets such as
// password may be given as enc: values produced by Encrypt.
func Sample() File {
	return File{
		Connections: map[string]Connection{
			DefaultConnection: {
				Host:           "example.com",
				Port:           22,
				User:           "deploy",
				KeyPath:        "~/.ssh/id_ed25519",
				KnownHostsFile: "~/.ssh/known_hosts",
				RemotePath:     "/var/www",
			},
			"staging": {
				Host:           "10.0.1.20",
				User:           "deploy",
				KeyPath:        "~/.ssh/id_ed25519",
				KnownHostsFile: "~/.ssh/known_hosts",
				BastionHost:    "bastion.example.com",
				BastionUser:    "jump",
				BastionKeyPath: "~/.ssh/bastion",
			},
		},
		Defaults: Defaults{
			Connection: DefaultConnection,
			LogLevel:   "info",
		},
		Scripts: map[string]Script{
			"disk": {
				Description: "Disk usage of the remote path",
				Command:     "du -sh . && df -h .",
			},
			"tail-logs": {
				Description: "Last lines of the application log",
				Command:     "tail -n 100 storage/logs/app.log",
			},
		},
	}
}

// WriteSample writes Sample as YAML to path. An existing file is never
// overwritten.
func WriteSample(path string) error {
	data, err := yaml.Marshal(Sample())
	if err != nil {
		return fmt.Errorf("failed to encode sample config: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}
