// Package settings provides key/value preference storage.
package settings

import (
	"context"
	"sync"
)

// Stable preference keys. Changing one orphans values users already saved.
const (
	KeyTargetSeconds = "timed.seconds"
	KeyShowRate      = "timed.show-rate"
	KeyRateUnit      = "timed.rate-unit"
)

// Repository persists string values by key.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process Repository.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory returns an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

// Get implements Repository.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Repository.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete implements Repository.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
