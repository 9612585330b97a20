package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps collections in process memory. Records are copied on the way
// in and out so callers cannot mutate stored state.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]json.RawMessage
	saves       map[string]int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]json.RawMessage),
		saves:       make(map[string]int),
	}
}

func (m *Memory) Load(_ context.Context, collection string) ([]json.RawMessage, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneRecords(m.collections[collection]), nil
}

func (m *Memory) Save(_ context.Context, collection string, records []json.RawMessage) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = cloneRecords(records)
	m.saves[collection]++
	return nil
}

// Saves returns how many times a collection has been written.
func (m *Memory) Saves(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves[collection]
}
