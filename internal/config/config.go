// Package config loads named SSH connections and remote scripts from YAML
// files, the environment, and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sshclient "github.com/vigihdev/ssh-client"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. SSHCLIENT_DEFAULTS_CONNECTION.
	EnvPrefix = "SSHCLIENT"

	// SecretEnv names the variable holding the key for enc: values.
	SecretEnv = "SSHCLIENT_SECRET"

	// DefaultConnection is used when no connection name is given.
	DefaultConnection = "default"
)

// Connection is one entry below "connections:" in the config file.
type Connection struct {
	Host                  string        `mapstructure:"host" yaml:"host,omitempty"`
	Port                  int           `mapstructure:"port" yaml:"port,omitempty"`
	User                  string        `mapstructure:"user" yaml:"user,omitempty"`
	Password              string        `mapstructure:"password" yaml:"password,omitempty"`
	PrivateKey            string        `mapstructure:"private_key" yaml:"private_key,omitempty"`
	KeyPath               string        `mapstructure:"key_path" yaml:"key_path,omitempty"`
	Certificate           string        `mapstructure:"certificate" yaml:"certificate,omitempty"`
	CertificatePath       string        `mapstructure:"certificate_path" yaml:"certificate_path,omitempty"`
	KnownHostsFile        string        `mapstructure:"known_hosts_file" yaml:"known_hosts_file,omitempty"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key" yaml:"insecure_ignore_host_key,omitempty"`
	RemotePath            string        `mapstructure:"remote_path" yaml:"remote_path,omitempty"`
	LocalRoot             string        `mapstructure:"local_root" yaml:"local_root,omitempty"`
	Timeout               time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
	NoRetry               bool          `mapstructure:"no_retry" yaml:"no_retry,omitempty"`
	BastionHost           string        `mapstructure:"bastion_host" yaml:"bastion_host,omitempty"`
	BastionPort           int           `mapstructure:"bastion_port" yaml:"bastion_port,omitempty"`
	BastionUser           string        `mapstructure:"bastion_user" yaml:"bastion_user,omitempty"`
	BastionKey            string        `mapstructure:"bastion_key" yaml:"bastion_key,omitempty"`
	BastionKeyPath        string        `mapstructure:"bastion_key_path" yaml:"bastion_key_path,omitempty"`
	BastionPassword       string        `mapstructure:"bastion_password" yaml:"bastion_password,omitempty"`
}

// Defaults holds settings applied when flags leave them unset.
type Defaults struct {
	Connection string `mapstructure:"connection" yaml:"connection"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
}

// File is the decoded configuration.
type File struct {
	Connections map[string]Connection `mapstructure:"connections" yaml:"connections"`
	Defaults    Defaults              `mapstructure:"defaults" yaml:"defaults"`
	Scripts     map[string]Script     `mapstructure:"scripts" yaml:"scripts,omitempty"`

	// Source is the file that was read, empty when none was found.
	Source string `mapstructure:"-" yaml:"-"`
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an explicit path. It must exist when set.
	ConfigFile string

	// EnvFile is loaded into the process environment when it exists
	// (default ".env"). Variables already set are kept.
	EnvFile string

	// Secret decrypts enc: values. Defaults to $SSHCLIENT_SECRET.
	Secret string
}

// ErrConnectionNotFound is returned by Lookup for unknown names.
var ErrConnectionNotFound = errors.New("connection not found")

// SearchPaths returns the files Load tries when no explicit file is given.
func SearchPaths() []string {
	paths := []string{"sshclient.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".sshclient", "config.yaml"))
	}
	return paths
}

// Load reads the configuration and decrypts enc: values. A missing config
// file is not an error unless it was named explicitly.
func Load(opts Options) (*File, error) {
	if err := LoadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("defaults.connection", DefaultConnection)
	v.SetDefault("defaults.log_level", "info")

	source, err := findConfigFile(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if source != "" {
		v.SetConfigFile(source)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", source, err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	f.Source = source
	if f.Connections == nil {
		f.Connections = map[string]Connection{}
	}

	secret := opts.Secret
	if secret == "" {
		secret = os.Getenv(SecretEnv)
	}
	for name, c := range f.Connections {
		if err := c.decrypt(secret); err != nil {
			return nil, fmt.Errorf("connection %q: %w", name, err)
		}
		f.Connections[name] = c
	}

	return &f, nil
}

// LoadEnvFile loads path (default ".env") into the process environment
// when it exists. Variables that are already set are kept.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		path := sshclient.ExpandPath(explicit)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("failed to open config file: %w", err)
		}
		return path, nil
	}
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func (c *Connection) secretFields() map[string]*string {
	return map[string]*string{
		"host":             &c.Host,
		"user":             &c.User,
		"password":         &c.Password,
		"private_key":      &c.PrivateKey,
		"key_path":         &c.KeyPath,
		"remote_path":      &c.RemotePath,
		"bastion_host":     &c.BastionHost,
		"bastion_user":     &c.BastionUser,
		"bastion_key":      &c.BastionKey,
		"bastion_password": &c.BastionPassword,
	}
}

func (c *Connection) decrypt(secret string) error {
	for field, value := range c.secretFields() {
		plain, err := Decrypt(*value, secret)
		if err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", field, err)
		}
		*value = plain
	}
	return nil
}

// Names returns the configured connection names, sorted.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Connections))
	for name := range f.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named connection. Names are case-insensitive.
func (f *File) Lookup(name string) (Connection, error) {
	if name == "" {
		name = f.Defaults.Connection
	}
	c, ok := f.Connections[strings.ToLower(name)]
	if !ok {
		return Connection{}, fmt.Errorf("%w: %s", ErrConnectionNotFound, name)
	}
	return c, nil
}

// SSHConfig converts the entry into a connection config. Retries default
// to sshclient.DefaultRetryConfig unless no_retry is set.
func (c Connection) SSHConfig(logger sshclient.Logger) sshclient.Config {
	retry := sshclient.DefaultRetryConfig()
	if c.NoRetry {
		retry = sshclient.NoRetryConfig()
	}

	return sshclient.Config{
		Host:                  c.Host,
		Port:                  c.Port,
		User:                  c.User,
		Password:              c.Password,
		PrivateKey:            c.PrivateKey,
		KeyPath:               c.KeyPath,
		Certificate:           c.Certificate,
		CertificatePath:       c.CertificatePath,
		KnownHostsFile:        c.KnownHostsFile,
		InsecureIgnoreHostKey: c.InsecureIgnoreHostKey,
		RemotePath:            c.RemotePath,
		LocalRoot:             c.LocalRoot,
		Timeout:               c.Timeout,
		BastionHost:           c.BastionHost,
		BastionPort:           c.BastionPort,
		BastionUser:           c.BastionUser,
		BastionKey:            c.BastionKey,
		BastionKeyPath:        c.BastionKeyPath,
		BastionPassword:       c.BastionPassword,
		Retry:                 retry,
		Logger:                logger,
	}
}

// SSHConfigs converts every entry, keyed by name.
func (f *File) SSHConfigs(logger sshclient.Logger) map[string]sshclient.Config {
	out := make(map[string]sshclient.Config, len(f.Connections))
	for name, c := range f.Connections {
		out[name] = c.SSHConfig(logger)
	}
	return out
}
