// Package client is the Go counterpart of the browser session: it keeps the
// access and refresh tokens, reports whether the user is signed in, and
// recovers from expired access tokens with a single shared refresh.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Keys under which the session is persisted.
const (
	KeyAuthToken    = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyCurrentUser  = "current_user"
)

// Storage is durable key-value state local to the client.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(keys ...string) error
}

// MemoryStorage keeps values for the lifetime of the process.
type MemoryStorage struct {
	mu   sync.RWMutex
	vals map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{vals: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	m.vals[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Delete(keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.vals, k)
	}
	m.mu.Unlock()
	return nil
}

// FileStorage persists values as one JSON object readable only by the owner.
// Every write rewrites the whole file through a temporary sibling.
type FileStorage struct {
	path string

	mu   sync.Mutex
	vals map[string]string
}

// NewFileStorage loads path if it exists. A missing file is an empty store.
func NewFileStorage(path string) (*FileStorage, error) {
	fsStore := &FileStorage{path: path, vals: make(map[string]string)}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fsStore, nil
	case err != nil:
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(raw) == 0 {
		return fsStore, nil
	}
	if err := json.Unmarshal(raw, &fsStore.vals); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return fsStore, nil
}

func (f *FileStorage) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vals[key]
	return v, ok
}

func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vals[key] = value
	return f.flushLocked()
}

func (f *FileStorage) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.vals, k)
	}
	return f.flushLocked()
}

func (f *FileStorage) flushLocked() error {
	raw, err := json.MarshalIndent(f.vals, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
