package sshclient

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// mockFileInfo implements os.FileInfo for testing.
type mockFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() os.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// MockRemote is an in-memory RemoteFilesystem that counts calls and can be
// told to fail specific operations or paths.
type MockRemote struct {
	files      map[string][]byte
	dirs       map[string]bool
	order      []string // insertion order, returned by List
	errors     map[string]error
	pathErrors map[string]error
	calls      map[string]int
	cwd        string
	lastErr    string
}

var _ RemoteFilesystem = (*MockRemote)(nil)

// NewMockRemote creates a MockRemote containing only "/".
func NewMockRemote() *MockRemote {
	return &MockRemote{
		files:      make(map[string][]byte),
		dirs:       map[string]bool{"/": true},
		errors:     make(map[string]error),
		pathErrors: make(map[string]error),
		calls:      make(map[string]int),
		cwd:        "/",
	}
}

// SetFile adds a file, creating parent directories.
func (m *MockRemote) SetFile(p string, content []byte) {
	m.AddDir(path.Dir(p))
	if _, ok := m.files[p]; !ok {
		m.order = append(m.order, p)
	}
	m.files[p] = content
}

// AddDir adds a directory and its parents.
func (m *MockRemote) AddDir(p string) {
	p = path.Clean(p)
	if m.dirs[p] {
		return
	}
	m.AddDir(path.Dir(p))
	m.dirs[p] = true
	m.order = append(m.order, p)
}

// SetError makes every call of op fail with err.
func (m *MockRemote) SetError(op string, err error) {
	m.errors[op] = err
}

// SetPathError makes op fail with err for p only.
func (m *MockRemote) SetPathError(op, p string, err error) {
	m.pathErrors[op+":"+p] = err
}

// Calls returns how often op was invoked.
func (m *MockRemote) Calls(op string) int {
	return m.calls[op]
}

func (m *MockRemote) check(op, p string) error {
	m.calls[op]++
	if err, ok := m.pathErrors[op+":"+p]; ok {
		m.lastErr = err.Error()
		return err
	}
	if err, ok := m.errors[op]; ok {
		m.lastErr = err.Error()
		return err
	}
	return nil
}

func (m *MockRemote) abs(p string) string {
	return resolveRemotePath(m.cwd, p)
}

func (m *MockRemote) Getwd(_ context.Context) (string, error) {
	if err := m.check("Getwd", ""); err != nil {
		return "", err
	}
	return m.cwd, nil
}

func (m *MockRemote) Chdir(_ context.Context, dir string) error {
	target := m.abs(dir)
	if err := m.check("Chdir", target); err != nil {
		return err
	}
	if !m.dirs[target] {
		return os.ErrNotExist
	}
	m.cwd = target
	return nil
}

func (m *MockRemote) List(_ context.Context, dir string, recursive bool) ([]string, error) {
	root := m.abs(dir)
	if err := m.check("List", root); err != nil {
		return nil, err
	}
	if !m.dirs[root] {
		return nil, os.ErrNotExist
	}
	var out []string
	for _, p := range m.order {
		if p == root {
			continue
		}
		if path.Dir(p) == root || (recursive && strings.HasPrefix(p, strings.TrimSuffix(root, "/")+"/")) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockRemote) IsDir(_ context.Context, p string) bool {
	target := m.abs(p)
	if m.check("IsDir", target) != nil {
		return false
	}
	return m.dirs[target]
}

func (m *MockRemote) IsFile(_ context.Context, p string) bool {
	target := m.abs(p)
	if m.check("IsFile", target) != nil {
		return false
	}
	_, ok := m.files[target]
	return ok
}

func (m *MockRemote) Exists(_ context.Context, p string) bool {
	target := m.abs(p)
	if m.check("Exists", target) != nil {
		return false
	}
	_, ok := m.files[target]
	return ok || m.dirs[target]
}

func (m *MockRemote) FileSize(_ context.Context, p string) (int64, error) {
	target := m.abs(p)
	if err := m.check("FileSize", target); err != nil {
		return 0, err
	}
	content, ok := m.files[target]
	if !ok {
		return 0, os.ErrNotExist
	}
	return int64(len(content)), nil
}

func (m *MockRemote) ReadFile(_ context.Context, p string) ([]byte, error) {
	target := m.abs(p)
	if err := m.check("ReadFile", target); err != nil {
		return nil, err
	}
	content, ok := m.files[target]
	if !ok {
		return nil, fmt.Errorf("failed to read %s: %w", target, os.ErrNotExist)
	}
	return append([]byte(nil), content...), nil
}

func (m *MockRemote) WriteFile(_ context.Context, p string, data []byte) error {
	target := m.abs(p)
	if err := m.check("WriteFile", target); err != nil {
		return err
	}
	if !m.dirs[path.Dir(target)] {
		return fmt.Errorf("failed to write %s: %w", target, os.ErrNotExist)
	}
	m.SetFile(target, append([]byte(nil), data...))
	return nil
}

func (m *MockRemote) Mkdir(_ context.Context, p string, _ os.FileMode, recursive bool) error {
	target := m.abs(p)
	if err := m.check("Mkdir", target); err != nil {
		return err
	}
	if !recursive && !m.dirs[path.Dir(target)] {
		return os.ErrNotExist
	}
	m.AddDir(target)
	return nil
}

func (m *MockRemote) LastError() string {
	return m.lastErr
}

// MockSFTPFile implements SFTPFile for testing. Writes land in data.
type MockSFTPFile struct {
	data       *MockSFTPFileData
	readOffset int
	closed     bool
}

func (f *MockSFTPFile) Read(p []byte) (n int, err error) {
	if f.readOffset >= len(f.data.content) {
		return 0, io.EOF
	}
	n = copy(p, f.data.content[f.readOffset:])
	f.readOffset += n
	return n, nil
}

func (f *MockSFTPFile) Write(p []byte) (n int, err error) {
	f.data.content = append(f.data.content, p...)
	return len(p), nil
}

func (f *MockSFTPFile) Close() error {
	f.closed = true
	return nil
}

// MockSFTPFileData holds file metadata for the mock SFTP client.
type MockSFTPFileData struct {
	content []byte
	mode    os.FileMode
}

// MockSFTPClient implements SFTPClientInterface for testing.
type MockSFTPClient struct {
	files  map[string]*MockSFTPFileData
	dirs   map[string]bool
	errors map[string]error
	wd     string
	closed bool
}

// NewMockSFTPClient creates a new mock SFTP client with a home directory.
func NewMockSFTPClient() *MockSFTPClient {
	return &MockSFTPClient{
		files:  make(map[string]*MockSFTPFileData),
		dirs:   map[string]bool{"/": true, "/home": true, "/home/test": true},
		errors: make(map[string]error),
		wd:     "/home/test",
	}
}

var _ SFTPClientInterface = (*MockSFTPClient)(nil)

// SetError sets an error to be returned for a specific method.
func (m *MockSFTPClient) SetError(method string, err error) {
	m.errors[method] = err
}

// SetFile sets a file in the mock SFTP client, creating parent directories.
func (m *MockSFTPClient) SetFile(p string, content []byte, mode os.FileMode) {
	m.mkdirAll(path.Dir(p))
	m.files[p] = &MockSFTPFileData{content: content, mode: mode}
}

func (m *MockSFTPClient) mkdirAll(p string) {
	for p != "/" && p != "." && !m.dirs[p] {
		m.dirs[p] = true
		p = path.Dir(p)
	}
}

func (m *MockSFTPClient) Open(p string) (SFTPFile, error) {
	if err := m.errors["Open"]; err != nil {
		return nil, err
	}
	data, ok := m.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &MockSFTPFile{data: data}, nil
}

func (m *MockSFTPClient) Create(p string) (SFTPFile, error) {
	if err := m.errors["Create"]; err != nil {
		return nil, err
	}
	if !m.dirs[path.Dir(p)] {
		return nil, os.ErrNotExist
	}
	data := &MockSFTPFileData{content: []byte{}, mode: 0644}
	m.files[p] = data
	return &MockSFTPFile{data: data}, nil
}

func (m *MockSFTPClient) Stat(p string) (os.FileInfo, error) {
	if err := m.errors["Stat"]; err != nil {
		return nil, err
	}
	if m.dirs[p] {
		return &mockFileInfo{name: path.Base(p), mode: os.ModeDir | 0755, modTime: time.Now(), isDir: true}, nil
	}
	data, ok := m.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &mockFileInfo{
		name:    path.Base(p),
		size:    int64(len(data.content)),
		mode:    data.mode,
		modTime: time.Now(),
	}, nil
}

func (m *MockSFTPClient) ReadDir(p string) ([]os.FileInfo, error) {
	if err := m.errors["ReadDir"]; err != nil {
		return nil, err
	}
	if !m.dirs[p] {
		return nil, os.ErrNotExist
	}
	var infos []os.FileInfo
	for d := range m.dirs {
		if d != p && path.Dir(d) == p {
			infos = append(infos, &mockFileInfo{name: path.Base(d), mode: os.ModeDir | 0755, isDir: true})
		}
	}
	for f, data := range m.files {
		if path.Dir(f) == p {
			infos = append(infos, &mockFileInfo{name: path.Base(f), size: int64(len(data.content)), mode: data.mode})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

func (m *MockSFTPClient) Mkdir(p string) error {
	if err := m.errors["Mkdir"]; err != nil {
		return err
	}
	if m.dirs[p] {
		return os.ErrExist
	}
	if !m.dirs[path.Dir(p)] {
		return os.ErrNotExist
	}
	m.dirs[p] = true
	return nil
}

func (m *MockSFTPClient) MkdirAll(p string) error {
	if err := m.errors["MkdirAll"]; err != nil {
		return err
	}
	m.mkdirAll(p)
	return nil
}

func (m *MockSFTPClient) Chmod(p string, mode os.FileMode) error {
	if err := m.errors["Chmod"]; err != nil {
		return err
	}
	if m.dirs[p] {
		return nil
	}
	data, ok := m.files[p]
	if !ok {
		return os.ErrNotExist
	}
	data.mode = mode
	return nil
}

func (m *MockSFTPClient) Getwd() (string, error) {
	if err := m.errors["Getwd"]; err != nil {
		return "", err
	}
	return m.wd, nil
}

func (m *MockSFTPClient) Close() error {
	if err := m.errors["Close"]; err != nil {
		return err
	}
	m.closed = true
	return nil
}
