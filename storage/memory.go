package storage

import (
	"context"
	"sync"
)

// Memory is a process-local store for tests and throwaway sessions. Writes
// to chosen documents can be made to fail.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string][]byte
	failures map[string]error
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte), failures: make(map[string]error)}
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Close() error { return nil }

func (m *Memory) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, notExist(name)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Write(_ context.Context, name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[name]; err != nil {
		return err
	}
	m.docs[name] = append([]byte(nil), data...)
	return nil
}

// FailWrites makes every later Write of the named documents return err.
func (m *Memory) FailWrites(err error, names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.failures[n] = err
	}
}

// Heal clears all injected write failures.
func (m *Memory) Heal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string]error)
}
