package sshclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Connection is a RemoteFilesystem that owns a live session.
type Connection interface {
	RemoteFilesystem
	Close() error
	IsHealthy() bool
}

// DialFunc opens a Connection for config.
type DialFunc func(ctx context.Context, config Config) (Connection, error)

// Dial opens an SFTP connection, or a local one when config.LocalRoot is set.
func Dial(ctx context.Context, config Config) (Connection, error) {
	if config.LocalRoot != "" {
		root := ExpandPath(config.LocalRoot)
		conn := NewFsRemote(afero.NewBasePathFs(afero.NewOsFs(), root))
		if config.RemotePath != "" {
			if err := conn.Chdir(ctx, config.RemotePath); err != nil {
				return nil, &ConnectionError{Op: "enter remote path", Err: err, code: CodeRemoteBasePath}
			}
		}
		return conn, nil
	}

	client, err := Connect(ctx, config)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ConnectionManager hands out connections by name. A connection tracks its
// own working directory and last error, so it belongs to one caller at a
// time: Get reuses an idle session opened with the same parameters and
// dials a new one while all matching sessions are in use. Idle sessions
// are closed after maxIdle.
type ConnectionManager struct {
	mu          sync.RWMutex
	configs     map[string]Config
	connections map[string][]*managedConnection
	dial        DialFunc
	maxIdle     time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

type managedConnection struct {
	conn     Connection
	lastUsed time.Time
	inUse    bool
}

// ManagerOption configures a ConnectionManager.
type ManagerOption func(*ConnectionManager)

// WithDialer replaces the function used to open connections.
func WithDialer(dial DialFunc) ManagerOption {
	return func(m *ConnectionManager) {
		m.dial = dial
	}
}

// NewConnectionManager creates a manager for the named configs. A positive
// maxIdle starts a background loop closing idle connections.
func NewConnectionManager(configs map[string]Config, maxIdle time.Duration, opts ...ManagerOption) *ConnectionManager {
	m := &ConnectionManager{
		configs:     make(map[string]Config, len(configs)),
		connections: make(map[string][]*managedConnection),
		dial:        Dial,
		maxIdle:     maxIdle,
		done:        make(chan struct{}),
	}
	for name, cfg := range configs {
		m.configs[name] = cfg
	}
	for _, opt := range opts {
		opt(m)
	}

	if maxIdle > 0 {
		go m.cleanupLoop()
	}
	return m
}

// Names returns the configured connection names, sorted.
func (m *ConnectionManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is configured.
func (m *ConnectionManager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.configs[name]
	return ok
}

// Config returns the configuration registered under name.
func (m *ConnectionManager) Config(name string) (Config, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[name]
	return cfg, ok
}

// Get returns a connection for name that no other caller holds, reusing an
// idle healthy session when one exists. The caller must pass it to Release
// when done.
func (m *ConnectionManager) Get(ctx context.Context, name string) (Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[name]
	if !ok {
		return nil, &ConfigError{Field: "connection", Reason: fmt.Sprintf("%q is not configured", name)}
	}
	key := connectionKey(cfg)

	kept := m.connections[key][:0]
	var reused *managedConnection
	for _, mc := range m.connections[key] {
		if !mc.inUse && !mc.conn.IsHealthy() {
			mc.conn.Close()
			continue
		}
		kept = append(kept, mc)
		if reused == nil && !mc.inUse {
			reused = mc
		}
	}
	m.connections[key] = kept

	if reused != nil {
		reused.inUse = true
		reused.lastUsed = time.Now()
		return reused.conn, nil
	}

	conn, err := m.dial(ctx, cfg)
	if err != nil {
		if len(kept) == 0 {
			delete(m.connections, key)
		}
		return nil, err
	}

	m.connections[key] = append(kept, &managedConnection{
		conn:     conn,
		lastUsed: time.Now(),
		inUse:    true,
	})
	return conn, nil
}

// Release returns conn to the manager so a later Get may reuse it.
// Unknown connections are ignored.
func (m *ConnectionManager) Release(conn Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, list := range m.connections {
		for _, mc := range list {
			if mc.conn == conn {
				mc.inUse = false
				mc.lastUsed = time.Now()
				return
			}
		}
	}
}

// Close closes every connection and stops the cleanup loop.
func (m *ConnectionManager) Close() {
	m.closeOnce.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, list := range m.connections {
		for _, mc := range list {
			mc.conn.Close()
		}
		delete(m.connections, key)
	}
}

// CloseIdle closes unused connections idle for longer than maxIdle.
func (m *ConnectionManager) CloseIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, list := range m.connections {
		kept := list[:0]
		for _, mc := range list {
			if !mc.inUse && now.Sub(mc.lastUsed) > m.maxIdle {
				mc.conn.Close()
				continue
			}
			kept = append(kept, mc)
		}
		if len(kept) == 0 {
			delete(m.connections, key)
		} else {
			m.connections[key] = kept
		}
	}
}

// Stats returns current connection counts.
func (m *ConnectionManager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats ManagerStats
	for _, list := range m.connections {
		for _, mc := range list {
			stats.Total++
			if mc.inUse {
				stats.InUse++
			} else {
				stats.Idle++
			}
		}
	}
	return stats
}

// ManagerStats contains connection counts.
type ManagerStats struct {
	Total int
	InUse int
	Idle  int
}

func connectionKey(config Config) string {
	h := sha256.New()

	if config.LocalRoot != "" {
		h.Write([]byte("local:"))
		h.Write([]byte(config.LocalRoot))
	}

	h.Write([]byte(config.Host))
	fmt.Fprintf(h, ":%d:", config.Port)
	h.Write([]byte(config.User))

	if config.Password != "" {
		h.Write([]byte(":password:"))
		h.Write([]byte(config.Password))
	}
	if config.PrivateKey != "" {
		h.Write([]byte(":key:"))
		h.Write([]byte(config.PrivateKey))
	}
	if config.KeyPath != "" {
		h.Write([]byte(":keypath:"))
		h.Write([]byte(config.KeyPath))
	}
	if config.RemotePath != "" {
		h.Write([]byte(":path:"))
		h.Write([]byte(config.RemotePath))
	}

	if config.BastionHost != "" {
		h.Write([]byte(":bastion:"))
		h.Write([]byte(config.BastionHost))
		fmt.Fprintf(h, ":%d:", config.BastionPort)
	}

	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (m *ConnectionManager) cleanupLoop() {
	ticker := time.NewTicker(m.maxIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CloseIdle()
		case <-m.done:
			return
		}
	}
}
