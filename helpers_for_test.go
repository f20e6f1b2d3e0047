package sshclient

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
)

// generateTestRSAKey creates a test RSA private key and returns both PEM-encoded
// key content and a path to a temp file containing the key.
func generateTestRSAKey(t *testing.T) (string, string) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	privateKeyPEM := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}))

	keyPath := filepath.Join(t.TempDir(), "test_key")
	if err := os.WriteFile(keyPath, []byte(privateKeyPEM), 0600); err != nil {
		t.Fatalf("failed to write key file: %v", err)
	}

	return privateKeyPEM, keyPath
}

// createTestFileStructure creates a directory structure with files for testing.
// Files is a map of relative path -> content.
func createTestFileStructure(t *testing.T, files map[string][]byte) string {
	t.Helper()

	tmpDir := t.TempDir()

	for relPath, content := range files {
		fullPath := filepath.Join(tmpDir, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, content, 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}

	return tmpDir
}

// newMemFs returns an in-memory filesystem holding files (absolute path ->
// content).
func newMemFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for p, content := range files {
		if err := fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", p, err)
		}
		if err := afero.WriteFile(fs, p, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}
	return fs
}

// withMockSFTPClient creates a client with a mock SFTP implementation for testing.
func withMockSFTPClient(t *testing.T, fn func(t *testing.T, client *Client, mock *MockSFTPClient)) {
	t.Helper()

	mock := NewMockSFTPClient()
	client := NewClientWithSFTP(mock, nil)
	defer client.Close()

	fn(t, client, mock)
}

// newInMemorySFTPClient connects a Client to an in-memory SFTP server over a
// pipe.
func newInMemorySFTPClient(t testing.TB) *Client {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	server := sftp.NewRequestServer(serverConn, sftp.InMemHandler())
	go server.Serve()

	raw, err := sftp.NewClientPipe(clientConn, clientConn)
	if err != nil {
		t.Fatalf("failed to start sftp client: %v", err)
	}

	client := NewClientWithSFTP(NewSFTPClientWrapper(raw), nil)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client
}

// assertFsContents verifies that a file on fs has the expected content.
func assertFsContents(t *testing.T, fs afero.Fs, p string, expected string) {
	t.Helper()

	content, err := afero.ReadFile(fs, p)
	if err != nil {
		t.Errorf("failed to read file %s: %v", p, err)
		return
	}
	if string(content) != expected {
		t.Errorf("file content mismatch for %s:\nexpected: %q\ngot: %q", p, expected, string(content))
	}
}

// assertFsNotExists verifies that p does not exist on fs.
func assertFsNotExists(t *testing.T, fs afero.Fs, p string) {
	t.Helper()

	if ok, _ := afero.Exists(fs, p); ok {
		t.Errorf("expected %s to not exist", p)
	}
}

// sortedCopy returns a sorted copy of s.
func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// newTestConfig creates a Config with sensible defaults for testing.
func newTestConfig(t *testing.T) Config {
	t.Helper()

	privateKey, _ := generateTestRSAKey(t)

	return Config{
		Host:                  "localhost",
		Port:                  22,
		User:                  "testuser",
		PrivateKey:            privateKey,
		InsecureIgnoreHostKey: true,
	}
}
