package memory

import (
	"context"
	"sync"
)

// Adapter is a map-backed storage adapter for tests and degraded mode.
type Adapter struct {
	mu     sync.RWMutex
	values map[string]string
}

func New() *Adapter {
	return &Adapter{values: make(map[string]string)}
}

func (a *Adapter) Save(_ context.Context, key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = value
	return nil
}

func (a *Adapter) Load(_ context.Context, key string) (string, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	return v, ok, nil
}

func (a *Adapter) Remove(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.values, key)
	return nil
}

// Len reports stored keys, for tests.
func (a *Adapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.values)
}
