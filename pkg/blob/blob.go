// Package blob is a small synchronous key-value store for string values.
package blob

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when a store is full.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is the persistence boundary: whole values under fixed keys.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// Open returns a store by backend name: "memory", "dir" or "sqlite".
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemory(0), nil
	case "dir":
		return NewDir(path)
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", backend)
	}
}

// Memory keeps values in a map. A positive quota caps the total number of
// bytes stored.
type Memory struct {
	quota int

	mu   sync.Mutex
	data map[string]string
}

// NewMemory returns an empty store; quota <= 0 means unlimited.
func NewMemory(quota int) *Memory {
	return &Memory{quota: quota, data: map[string]string{}}
}

func (m *Memory) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		used := len(value)
		for k, v := range m.data {
			if k != key {
				used += len(v)
			}
		}
		if used > m.quota {
			return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, used, m.quota)
		}
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
