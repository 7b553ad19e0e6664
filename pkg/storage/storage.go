// Package storage is the key/value persistence the auth core writes its user
// cache to. Values are opaque strings, in practice JSON documents.
package storage

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("storage: not found")

// Storage is implemented by every driver under drivers/. Implementations must
// be safe for concurrent use.
type Storage interface {
	// Get returns ErrNotFound when key has never been set or was removed.
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Memory keeps values in a map. State is lost with the process, which is what
// tests and short-lived tools want.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Keys returns a snapshot of the stored keys, unordered.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

type prefixed struct {
	inner  Storage
	prefix string
}

// Prefixed namespaces every key of s, so several apps can share one backend.
func Prefixed(s Storage, prefix string) Storage {
	return &prefixed{inner: s, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}
