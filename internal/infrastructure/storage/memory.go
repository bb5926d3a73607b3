package storage

import "sync"

// Memory is an in-process Store. It serves two roles: the graceful-degrade
// fallback when durable storage cannot be opened, and a test double.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string

	// Err, when set, is returned by every operation. Tests use it to
	// simulate disabled or failing storage.
	Err error

	// SetCalls counts writes, for asserting persistence side effects.
	SetCalls int
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return "", false, m.Err
	}
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls++
	if m.Err != nil {
		return m.Err
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
