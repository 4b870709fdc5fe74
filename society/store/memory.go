// Package store provides in-process society.KV implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/society-engine/society"
)

// =============================================================================
// MEMORY KV - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	fail   map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		values: make(map[string][]byte),
		fail:   make(map[string]error),
	}
}

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, society.ErrKeyNotFound
	}
	return clone(v), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[key]; err != nil {
		return err
	}
	m.values[key] = clone(value)
	return nil
}

// SetBatch writes all values or none.
func (m *Memory) SetBatch(_ context.Context, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check every key first (atomic check)
	for key := range values {
		if err := m.fail[key]; err != nil {
			return err
		}
	}
	for key, value := range values {
		m.values[key] = clone(value)
	}
	return nil
}

// FailWrites makes every later write to key return err. A nil err clears it.
// Tests use it to simulate a medium that rejects one collection.
func (m *Memory) FailWrites(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, key)
		return
	}
	m.fail[key] = err
}

// Keys lists the stored keys in order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
