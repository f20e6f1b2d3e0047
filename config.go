package sshclient

import (
	"fmt"
	"os"
	"time"
)

// AuthMethod represents the SSH authentication method to use.
type AuthMethod string

const (
	// AuthMethodPrivateKey uses SSH private key authentication (default).
	AuthMethodPrivateKey AuthMethod = "private_key"
	// AuthMethodPassword uses password authentication.
	AuthMethodPassword AuthMethod = "password"
	// AuthMethodCertificate uses SSH certificate authentication.
	AuthMethodCertificate AuthMethod = "certificate"
)

// Config holds SSH connection configuration.
type Config struct {
	// Host is the target SSH server hostname or IP address.
	Host string

	// Port is the SSH port (default 22).
	Port int

	// User is the SSH username.
	User string

	// AuthMethod specifies which authentication method to use.
	// If not set, it will be inferred from the provided credentials.
	AuthMethod AuthMethod

	// PrivateKey is the SSH private key content (PEM encoded).
	// Mutually exclusive with KeyPath.
	PrivateKey string

	// KeyPath is the path to the SSH private key file.
	// Mutually exclusive with PrivateKey.
	KeyPath string

	// Password is the SSH password for password authentication.
	Password string

	// Certificate is the SSH certificate content.
	// Used with PrivateKey or KeyPath for certificate authentication.
	Certificate string

	// CertificatePath is the path to the SSH certificate file.
	// Used with PrivateKey or KeyPath for certificate authentication.
	CertificatePath string

	// Timeout is the connection timeout (default 30s).
	Timeout time.Duration

	// KnownHostsFile is the path to a known_hosts file for host key verification.
	// If not set, defaults to ~/.ssh/known_hosts if it exists.
	KnownHostsFile string

	// InsecureIgnoreHostKey skips host key verification.
	// WARNING: This is insecure and should only be used for testing.
	InsecureIgnoreHostKey bool

	// BastionHost is the hostname or IP of a bastion/jump host.
	BastionHost string

	// BastionPort is the SSH port of the bastion host (default 22).
	BastionPort int

	// BastionUser is the SSH username for the bastion host.
	// Falls back to User if not set.
	BastionUser string

	// BastionKey is the private key content for the bastion host.
	// Falls back to PrivateKey if not set.
	BastionKey string

	// BastionKeyPath is the path to the private key for the bastion host.
	// Falls back to KeyPath if not set.
	BastionKeyPath string

	// BastionPassword is the password for the bastion host.
	BastionPassword string

	// RemotePath is the base directory entered after connecting. It must
	// exist and be a directory. Empty keeps the server's login directory.
	RemotePath string

	// LocalRoot, when set, serves the connection from this local directory
	// instead of an SSH server. Host and User are then not required.
	LocalRoot string

	// Retry controls how connection attempts are retried.
	// The zero value makes a single attempt.
	Retry RetryConfig

	// Logger receives connection diagnostics. Nil disables logging.
	Logger Logger
}

// WithDefaults returns a copy of the config with default values applied.
func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = 22
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BastionPort == 0 && c.BastionHost != "" {
		c.BastionPort = 22
	}
	return c
}

// Validate reports missing required connection fields.
func (c Config) Validate() error {
	if c.LocalRoot != "" {
		return nil
	}
	switch {
	case c.Host == "":
		return &ConfigError{Field: "host", Reason: "is required"}
	case c.User == "":
		return &ConfigError{Field: "user", Reason: "is required"}
	case c.Port < 0 || c.Port > 65535:
		return &ConfigError{Field: "port", Reason: fmt.Sprintf("%d is out of range", c.Port)}
	case c.PrivateKey != "" && c.KeyPath != "":
		return &ConfigError{Field: "private_key", Reason: "is mutually exclusive with key_path"}
	}
	return nil
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Code() int { return CodeInvalidConfig }

// UploadOptions configures Executor.Upload.
type UploadOptions struct {
	// DryRun resolves every destination and records the plan as if it had
	// succeeded, without creating directories or writing files.
	DryRun bool

	// DirMode is the mode for remote directories created on the way
	// (default 0755).
	DirMode os.FileMode
}

// WithDefaults returns a copy of the options with default values applied.
func (o UploadOptions) WithDefaults() UploadOptions {
	if o.DirMode == 0 {
		o.DirMode = 0755
	}
	return o
}

// DownloadOptions configures Executor.Download.
type DownloadOptions struct {
	// Recursive also downloads files in subdirectories of a remote
	// directory.
	Recursive bool

	// DryRun resolves destinations without writing anything locally.
	DryRun bool
}
