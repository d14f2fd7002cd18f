package store

import (
	"context"
	"fmt"
	"sync"
)

type memoryKeyValue struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryKeyValue returns an in-memory [KeyValue]. Used in tests and as the
// degraded-mode fallback when the local database is unavailable: queued work
// keeps flowing for the current session but does not survive a restart.
func NewMemoryKeyValue() KeyValue {
	return &memoryKeyValue{items: make(map[string][]byte)}
}

func (m *memoryKeyValue) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *memoryKeyValue) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.items[key] = stored
	return nil
}

func (m *memoryKeyValue) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}
