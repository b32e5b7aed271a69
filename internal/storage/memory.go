package storage

import "sync"

// Memory is an in-memory Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string

	// FailSet, when non-nil, is returned by every Set call.
	FailSet error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements Store.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSet != nil {
		return m.FailSet
	}
	m.values[key] = value
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
