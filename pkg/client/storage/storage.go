// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
)

const (
	appDir          = "hostedlogin"
	durableFileName = "state.json"
	sessionFileName = "session.json"
	lockSuffix      = ".lock"
	dirPerm         = 0700 // User-only directory permissions
	filePerm        = 0600 // User-only file permissions
)

// KV is a flat string key/value store. Implementations must treat a
// missing key as absent, never as an error.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(keys ...string) error
}

// DurableDir returns the directory holding state that survives restarts
func DurableDir() string {
	return filepath.Join(xdg.DataHome, appDir)
}

// SessionDir returns the directory holding state scoped to the login
// session. XDG_RUNTIME_DIR is wiped when the user session ends.
func SessionDir() string {
	return filepath.Join(xdg.RuntimeDir, appDir)
}

// NewDurable opens the durable store. An empty dir selects the XDG default.
func NewDurable(dir string) (*FileKV, error) {
	if dir == "" {
		dir = DurableDir()
	}
	return NewFileKV(filepath.Join(dir, durableFileName))
}

// NewSessionScoped opens the session scoped store. An empty dir selects
// the XDG runtime directory.
func NewSessionScoped(dir string) (*FileKV, error) {
	if dir == "" {
		dir = SessionDir()
	}
	return NewFileKV(filepath.Join(dir, sessionFileName))
}

// FileKV keeps its values in a single JSON object on disk. Every
// operation reads the file, so several processes can share it. Writes
// rewrite the file atomically under an advisory lock on path + ".lock".
type FileKV struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// NewFileKV opens (or prepares) the store at path
func NewFileKV(path string) (*FileKV, error) {
	if path == "" {
		return nil, errors.New("storage path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	kv := &FileKV{
		path: path,
		lock: flock.New(path + lockSuffix),
	}
	if _, err := kv.load(); err != nil {
		return nil, err
	}
	return kv, nil
}

// Path returns the file backing the store
func (s *FileKV) Path() string {
	return s.path
}

// Get reads key from the file. An unreadable file holds no keys.
func (s *FileKV) Get(key string) (string, bool) {
	values, err := s.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

func (s *FileKV) Set(key, value string) error {
	return s.update(func(values map[string]string) bool {
		if prev, ok := values[key]; ok && prev == value {
			return false
		}
		values[key] = value
		return true
	})
}

func (s *FileKV) Delete(keys ...string) error {
	return s.update(func(values map[string]string) bool {
		changed := false
		for _, k := range keys {
			if _, ok := values[k]; ok {
				delete(values, k)
				changed = true
			}
		}
		return changed
	})
}

// update runs a read-modify-write of the file while holding the file
// lock. fn reports whether it changed the values.
func (s *FileKV) update(fn func(values map[string]string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("locking storage file: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	values, err := s.load()
	if err != nil {
		return err
	}
	if !fn(values) {
		return nil
	}
	return s.flush(values)
}

// load reads the current file contents. A missing or empty file is an
// empty store.
func (s *FileKV) load() (map[string]string, error) {
	values := map[string]string{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("reading storage file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}

	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing storage file %s: %w", s.path, err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

// flush writes values to disk with a temp file and rename. Callers hold
// the file lock.
func (s *FileKV) flush(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling storage: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, filePerm); err != nil {
		return fmt.Errorf("writing storage file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath) //nolint:errcheck // Clean up temp file on error
		return fmt.Errorf("renaming storage file: %w", err)
	}

	return nil
}

// MemoryKV is a process-lifetime store
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

func (m *MemoryKV) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Len returns the number of stored keys
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
