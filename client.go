package sshclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Client is a RemoteFilesystem over an SFTP session.
type Client struct {
	sshClient     *ssh.Client
	sftpClient    SFTPClientInterface
	bastionClient *ssh.Client // nil if no bastion host

	host    string
	cwd     string
	lastErr string
}

var _ RemoteFilesystem = (*Client)(nil)

// SFTPClientInterface abstracts the SFTP operations Client needs.
type SFTPClientInterface interface {
	Open(path string) (SFTPFile, error)
	Create(path string) (SFTPFile, error)
	Stat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.FileInfo, error)
	Mkdir(path string) error
	MkdirAll(path string) error
	Chmod(path string, mode os.FileMode) error
	Getwd() (string, error)
	Close() error
}

// SFTPFile abstracts file operations for testing.
type SFTPFile interface {
	io.Reader
	io.Writer
	io.Closer
}

// SFTPClientWrapper wraps the real sftp.Client to implement SFTPClientInterface.
type SFTPClientWrapper struct {
	client *sftp.Client
}

var _ SFTPClientInterface = (*SFTPClientWrapper)(nil)

// NewSFTPClientWrapper wraps c.
func NewSFTPClientWrapper(c *sftp.Client) *SFTPClientWrapper {
	return &SFTPClientWrapper{client: c}
}

func (w *SFTPClientWrapper) Open(path string) (SFTPFile, error)         { return w.client.Open(path) }
func (w *SFTPClientWrapper) Create(path string) (SFTPFile, error)       { return w.client.Create(path) }
func (w *SFTPClientWrapper) Stat(path string) (os.FileInfo, error)      { return w.client.Stat(path) }
func (w *SFTPClientWrapper) ReadDir(path string) ([]os.FileInfo, error) { return w.client.ReadDir(path) }
func (w *SFTPClientWrapper) Mkdir(path string) error                    { return w.client.Mkdir(path) }
func (w *SFTPClientWrapper) MkdirAll(path string) error                 { return w.client.MkdirAll(path) }
func (w *SFTPClientWrapper) Chmod(path string, mode os.FileMode) error  { return w.client.Chmod(path, mode) }
func (w *SFTPClientWrapper) Getwd() (string, error)                     { return w.client.Getwd() }
func (w *SFTPClientWrapper) Close() error                               { return w.client.Close() }

// Connect dials the host described by config, retrying transient failures
// per config.Retry, and enters config.RemotePath when set. All failures are
// returned as *ConnectionError.
func Connect(ctx context.Context, config Config) (*Client, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, &ConnectionError{Host: config.Host, Op: "validate config", Err: err}
	}

	retryConfig := config.Retry
	if retryConfig.Logger == nil {
		retryConfig.Logger = config.Logger
	}

	var client *Client
	err := Retry(ctx, retryConfig, "connect to "+config.Host, func() error {
		c, err := dial(config)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, connErr
		}
		return nil, &ConnectionError{Host: config.Host, Op: "connect", Err: err}
	}

	if err := client.enterBase(ctx, config.RemotePath); err != nil {
		client.Close()
		return nil, err
	}

	loggerOrNop(config.Logger).Debugf("connected to %s:%d, working directory %s", config.Host, config.Port, client.cwd)
	return client, nil
}

// NewClient connects without a cancellation context.
func NewClient(config Config) (*Client, error) {
	return Connect(context.Background(), config)
}

// NewClientWithSFTP creates a Client with a custom SFTP client implementation.
// This is primarily used for testing with mock SFTP clients.
func NewClientWithSFTP(sftpClient SFTPClientInterface, sshClient *ssh.Client) *Client {
	c := &Client{
		sshClient:  sshClient,
		sftpClient: sftpClient,
		cwd:        "/",
	}
	if wd, err := sftpClient.Getwd(); err == nil && wd != "" {
		c.cwd = wd
	}
	return c
}

func dial(config Config) (*Client, error) {
	authMethods, err := buildAuthMethods(config)
	if err != nil {
		return nil, &ConnectionError{Host: config.Host, Op: "configure authentication", Err: err, code: CodeAuthFailed}
	}

	hostKeyCallback, err := buildHostKeyCallback(config)
	if err != nil {
		return nil, &ConnectionError{Host: config.Host, Op: "configure host key verification", Err: err}
	}

	sshConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         config.Timeout,
	}

	var sshClient *ssh.Client
	var bastionClient *ssh.Client

	targetAddr := net.JoinHostPort(config.Host, fmt.Sprint(config.Port))

	if config.BastionHost != "" {
		bastionClient, err = connectToBastion(config)
		if err != nil {
			if coded := classifyHandshakeError(config.BastionHost, "bastion", err); coded != nil {
				return nil, coded
			}
			return nil, fmt.Errorf("failed to connect to bastion host: %w", err)
		}

		conn, err := bastionClient.Dial("tcp", targetAddr)
		if err != nil {
			bastionClient.Close()
			return nil, fmt.Errorf("failed to dial target through bastion: %w", err)
		}

		ncc, chans, reqs, err := ssh.NewClientConn(conn, targetAddr, sshConfig)
		if err != nil {
			conn.Close()
			bastionClient.Close()
			if coded := classifyHandshakeError(config.Host, "", err); coded != nil {
				return nil, coded
			}
			return nil, fmt.Errorf("failed to create SSH connection through bastion: %w", err)
		}

		sshClient = ssh.NewClient(ncc, chans, reqs)
	} else {
		sshClient, err = ssh.Dial("tcp", targetAddr, sshConfig)
		if err != nil {
			if coded := classifyHandshakeError(config.Host, "", err); coded != nil {
				return nil, coded
			}
			return nil, fmt.Errorf("failed to connect to %s: %w", targetAddr, err)
		}
	}

	rawSftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		if bastionClient != nil {
			bastionClient.Close()
		}
		return nil, &ConnectionError{Host: config.Host, Op: "start SFTP subsystem", Err: err, code: CodeSFTPSubsystem}
	}

	client := NewClientWithSFTP(NewSFTPClientWrapper(rawSftpClient), sshClient)
	client.bastionClient = bastionClient
	client.host = config.Host
	return client, nil
}

// isAuthError matches the message x/crypto/ssh gives when every auth
// method was rejected; it has no typed error for that case.
func isAuthError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unable to authenticate")
}

func isHostKeyError(err error) bool {
	var keyErr *knownhosts.KeyError
	var revoked *knownhosts.RevokedError
	return errors.As(err, &keyErr) || errors.As(err, &revoked)
}

// classifyHandshakeError turns rejected credentials and host keys into
// coded *ConnectionError values, or returns nil for other failures. via
// names the hop ("bastion") when the failure happened on the jump host.
func classifyHandshakeError(host, via string, err error) error {
	suffix := ""
	if via != "" {
		suffix = " with " + via
	}
	switch {
	case isHostKeyError(err):
		return &ConnectionError{Host: host, Op: "verify host key" + suffix, Err: err, code: CodeHostKeyRejected}
	case isAuthError(err):
		return &ConnectionError{Host: host, Op: "authenticate" + suffix, Err: err, code: CodeAuthFailed}
	}
	return nil
}

func (c *Client) enterBase(ctx context.Context, base string) error {
	if base == "" {
		return nil
	}
	if !c.IsDir(ctx, base) {
		return &ConnectionError{
			Host: c.host,
			Op:   "enter remote path",
			Err:  fmt.Errorf("%s is not a directory", base),
			code: CodeRemoteBasePath,
		}
	}
	if err := c.Chdir(ctx, base); err != nil {
		return &ConnectionError{Host: c.host, Op: "enter remote path", Err: err, code: CodeRemoteBasePath}
	}
	return nil
}

// Close closes SFTP, SSH, and bastion connections.
func (c *Client) Close() error {
	if c.sftpClient != nil {
		c.sftpClient.Close()
	}
	if c.sshClient != nil {
		c.sshClient.Close()
	}
	if c.bastionClient != nil {
		c.bastionClient.Close()
	}
	return nil
}

// IsHealthy reports whether the SFTP session still answers requests.
func (c *Client) IsHealthy() bool {
	if c.sftpClient == nil {
		return false
	}
	_, err := c.sftpClient.Getwd()
	return err == nil
}

func (c *Client) fail(err error) error {
	c.lastErr = err.Error()
	return err
}

func (c *Client) abs(p string) string {
	return resolveRemotePath(c.cwd, p)
}

// LastError returns the message of the most recent failed operation.
func (c *Client) LastError() string {
	return c.lastErr
}

// Getwd returns the tracked working directory.
func (c *Client) Getwd(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("operation cancelled: %w", err)
	}
	return c.cwd, nil
}

// Chdir sets the working directory used to resolve relative paths.
func (c *Client) Chdir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}

	target := c.abs(dir)
	info, err := c.sftpClient.Stat(target)
	if err != nil {
		return c.fail(fmt.Errorf("failed to change directory to %s: %w", target, err))
	}
	if !info.IsDir() {
		return c.fail(fmt.Errorf("failed to change directory to %s: not a directory", target))
	}
	c.cwd = target
	return nil
}

// List returns full paths below dir in server order, descending into
// subdirectories when recursive is set.
func (c *Client) List(ctx context.Context, dir string, recursive bool) ([]string, error) {
	paths, err := listTree(ctx, c.abs(dir), recursive, c.sftpClient.ReadDir)
	if err != nil {
		return nil, c.fail(err)
	}
	return paths, nil
}

func (c *Client) stat(ctx context.Context, p string) (os.FileInfo, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	info, err := c.sftpClient.Stat(c.abs(p))
	if err != nil {
		if !os.IsNotExist(err) {
			c.fail(fmt.Errorf("failed to stat %s: %w", p, err))
		}
		return nil, false
	}
	return info, true
}

// IsDir reports whether p is a directory. Stat failures count as false.
func (c *Client) IsDir(ctx context.Context, p string) bool {
	info, ok := c.stat(ctx, p)
	return ok && info.IsDir()
}

// IsFile reports whether p is a regular file.
func (c *Client) IsFile(ctx context.Context, p string) bool {
	info, ok := c.stat(ctx, p)
	return ok && info.Mode().IsRegular()
}

// Exists reports whether p can be stat'ed.
func (c *Client) Exists(ctx context.Context, p string) bool {
	_, ok := c.stat(ctx, p)
	return ok
}

// FileSize returns the size of the regular file at p.
func (c *Client) FileSize(ctx context.Context, p string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("operation cancelled: %w", err)
	}
	info, err := c.sftpClient.Stat(c.abs(p))
	if err != nil {
		return 0, c.fail(fmt.Errorf("failed to stat %s: %w", p, err))
	}
	return info.Size(), nil
}

// ReadFile reads the whole remote file. Cancelling ctx abandons the read.
func (c *Client) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("operation cancelled: %w", err)
	}

	file, err := c.sftpClient.Open(c.abs(p))
	if err != nil {
		return nil, c.fail(fmt.Errorf("failed to open remote file %s: %w", p, err))
	}
	defer file.Close()

	type result struct {
		content []byte
		err     error
	}
	done := make(chan result, 1)
	go func() {
		content, err := io.ReadAll(file)
		done <- result{content, err}
	}()

	select {
	case <-ctx.Done():
		return nil, c.fail(fmt.Errorf("read cancelled: %w", ctx.Err()))
	case r := <-done:
		if r.err != nil {
			return nil, c.fail(fmt.Errorf("failed to read remote file %s: %w", p, r.err))
		}
		return r.content, nil
	}
}

// WriteFile creates or truncates the remote file and writes data.
// The parent directory must exist.
func (c *Client) WriteFile(ctx context.Context, p string, data []byte) error {
	return c.copyTo(ctx, c.abs(p), bytes.NewReader(data))
}

func (c *Client) copyTo(ctx context.Context, remotePath string, src io.Reader) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}

	remoteFile, err := c.sftpClient.Create(remotePath)
	if err != nil {
		return c.fail(fmt.Errorf("failed to create remote file %s: %w", remotePath, err))
	}
	defer remoteFile.Close()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(remoteFile, src)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return c.fail(fmt.Errorf("write cancelled: %w", ctx.Err()))
	case err := <-done:
		if err != nil {
			return c.fail(fmt.Errorf("failed to write remote file %s: %w", remotePath, err))
		}
		return nil
	}
}

// Mkdir creates a remote directory and applies mode to it.
func (c *Client) Mkdir(ctx context.Context, p string, mode os.FileMode, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}

	target := c.abs(p)
	mkdir := c.sftpClient.Mkdir
	if recursive {
		mkdir = c.sftpClient.MkdirAll
	}
	if err := mkdir(target); err != nil {
		return c.fail(fmt.Errorf("failed to create remote directory %s: %w", target, err))
	}
	if mode != 0 {
		if err := c.sftpClient.Chmod(target, mode); err != nil {
			return c.fail(fmt.Errorf("failed to set mode on %s: %w", target, err))
		}
	}
	return nil
}

// Upload streams a local file to remotePath, creating missing remote
// parent directories.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}

	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer localFile.Close()

	target := c.abs(remotePath)
	remoteDir := path.Dir(target)
	if remoteDir != "/" && remoteDir != "." {
		if err := c.sftpClient.MkdirAll(remoteDir); err != nil {
			return c.fail(fmt.Errorf("failed to create remote directory %s: %w", remoteDir, err))
		}
	}

	return c.copyTo(ctx, target, localFile)
}

// Download streams remotePath into a local file, creating missing local
// parent directories.
func (c *Client) Download(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}

	remoteFile, err := c.sftpClient.Open(c.abs(remotePath))
	if err != nil {
		return c.fail(fmt.Errorf("failed to open remote file %s: %w", remotePath, err))
	}
	defer remoteFile.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create local directory: %w", err)
	}
	localFile, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(localFile, remoteFile)
		done <- err
	}()

	select {
	case <-ctx.Done():
		localFile.Close()
		return fmt.Errorf("download cancelled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			localFile.Close()
			return c.fail(fmt.Errorf("failed to read remote file %s: %w", remotePath, err))
		}
		return localFile.Close()
	}
}

// Helper functions

func connectToBastion(config Config) (*ssh.Client, error) {
	var authMethods []ssh.AuthMethod

	if config.BastionPassword != "" {
		authMethods = append(authMethods, ssh.Password(config.BastionPassword))
	} else {
		var keyData []byte
		var err error

		switch {
		case config.BastionKey != "":
			keyData = []byte(config.BastionKey)
		case config.BastionKeyPath != "":
			keyData, err = os.ReadFile(ExpandPath(config.BastionKeyPath))
			if err != nil {
				return nil, fmt.Errorf("failed to read bastion key file: %w", err)
			}
		case config.PrivateKey != "":
			keyData = []byte(config.PrivateKey)
		case config.KeyPath != "":
			keyData, err = os.ReadFile(ExpandPath(config.KeyPath))
			if err != nil {
				return nil, fmt.Errorf("failed to read key file for bastion: %w", err)
			}
		default:
			return nil, fmt.Errorf("no SSH key configured for bastion host")
		}

		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bastion SSH key: %w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	bastionUser := config.BastionUser
	if bastionUser == "" {
		bastionUser = config.User
	}

	hostKeyCallback, err := buildHostKeyCallback(config)
	if err != nil {
		return nil, fmt.Errorf("failed to configure host key verification for bastion: %w", err)
	}

	bastionConfig := &ssh.ClientConfig{
		User:            bastionUser,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         config.Timeout,
	}

	bastionAddr := net.JoinHostPort(config.BastionHost, fmt.Sprint(config.BastionPort))
	return ssh.Dial("tcp", bastionAddr, bastionConfig)
}

func buildHostKeyCallback(config Config) (ssh.HostKeyCallback, error) {
	log := loggerOrNop(config.Logger)

	if config.InsecureIgnoreHostKey {
		log.Warnf("SSH host key verification disabled for %s:%d", config.Host, config.Port)
		return ssh.InsecureIgnoreHostKey(), nil
	}

	if config.KnownHostsFile != "" {
		expandedPath := ExpandPath(config.KnownHostsFile)
		callback, err := knownhosts.New(expandedPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts file %s: %w", expandedPath, err)
		}
		return callback, nil
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		defaultKnownHosts := filepath.Join(homeDir, ".ssh", "known_hosts")
		if _, err := os.Stat(defaultKnownHosts); err == nil {
			callback, err := knownhosts.New(defaultKnownHosts)
			if err == nil {
				return callback, nil
			}
			log.Warnf("could not parse known_hosts file %s: %v", defaultKnownHosts, err)
		}
	}

	log.Warnf("no known_hosts file found for %s:%d, host key verification disabled", config.Host, config.Port)
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		return nil
	}, nil
}

func buildAuthMethods(config Config) ([]ssh.AuthMethod, error) {
	authMethod := config.AuthMethod
	if authMethod == "" {
		authMethod = inferAuthMethod(config)
	}

	switch authMethod {
	case AuthMethodPassword:
		if config.Password == "" {
			return nil, fmt.Errorf("password authentication requires password to be set")
		}
		return []ssh.AuthMethod{ssh.Password(config.Password)}, nil

	case AuthMethodCertificate:
		certAuth, err := buildCertificateAuth(config)
		if err != nil {
			return nil, fmt.Errorf("certificate authentication failed: %w", err)
		}
		return []ssh.AuthMethod{certAuth}, nil

	case AuthMethodPrivateKey:
		keyAuth, err := buildPrivateKeyAuth(config)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{keyAuth}, nil
	}

	return nil, fmt.Errorf("unknown authentication method %q", authMethod)
}

func inferAuthMethod(config Config) AuthMethod {
	if config.Password != "" {
		return AuthMethodPassword
	}
	if config.Certificate != "" || config.CertificatePath != "" {
		return AuthMethodCertificate
	}
	return AuthMethodPrivateKey
}

func readPrivateKey(config Config) ([]byte, error) {
	if config.PrivateKey != "" {
		return []byte(config.PrivateKey), nil
	}
	if config.KeyPath != "" {
		keyData, err := os.ReadFile(ExpandPath(config.KeyPath))
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key file: %w", err)
		}
		return keyData, nil
	}
	return nil, fmt.Errorf("no SSH private key provided (set private_key or key_path)")
}

func buildPrivateKeyAuth(config Config) (ssh.AuthMethod, error) {
	keyData, err := readPrivateKey(config)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH private key: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

func buildCertificateAuth(config Config) (ssh.AuthMethod, error) {
	keyData, err := readPrivateKey(config)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	var certData []byte
	switch {
	case config.Certificate != "":
		certData = []byte(config.Certificate)
	case config.CertificatePath != "":
		certData, err = os.ReadFile(ExpandPath(config.CertificatePath))
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate file: %w", err)
		}
	default:
		return nil, fmt.Errorf("certificate auth requires certificate")
	}

	pubKey, _, _, _, err := ssh.ParseAuthorizedKey(certData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	cert, ok := pubKey.(*ssh.Certificate)
	if !ok {
		return nil, fmt.Errorf("provided file is not an SSH certificate")
	}

	certSigner, err := ssh.NewCertSigner(cert, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate signer: %w", err)
	}

	return ssh.PublicKeys(certSigner), nil
}

// ExpandPath expands a leading "~/" to the home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
