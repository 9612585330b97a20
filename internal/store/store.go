// Package store persists named collections of JSON records.
//
// Every backend implements whole-collection semantics: Load returns the
// current contents in stored order and Save atomically replaces them. There
// is no locking across calls, so two writers that load, modify, and save the
// same collection concurrently race and the last Save wins.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCollection is returned for empty collection names or names that
// would escape a file backend's directory.
var ErrInvalidCollection = errors.New("invalid collection name")

// Store loads and saves whole collections of raw JSON records.
type Store interface {
	// Load returns the records of a collection, or an empty slice if it was never written.
	Load(ctx context.Context, collection string) ([]json.RawMessage, error)
	// Save replaces the contents of a collection.
	Save(ctx context.Context, collection string, records []json.RawMessage) error
}

// LoadAll loads a collection and decodes every record into T.
func LoadAll[T any](ctx context.Context, s Store, collection string) ([]T, error) {
	raws, err := s.Load(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}
	items := make([]T, 0, len(raws))
	for i, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode %s record %d: %w", collection, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// SaveAll encodes items and replaces the collection with them.
func SaveAll[T any](ctx context.Context, s Store, collection string, items []T) error {
	raws := make([]json.RawMessage, 0, len(items))
	for i := range items {
		raw, err := json.Marshal(items[i])
		if err != nil {
			return fmt.Errorf("encode %s record %d: %w", collection, i, err)
		}
		raws = append(raws, raw)
	}
	if err := s.Save(ctx, collection, raws); err != nil {
		return fmt.Errorf("save %s: %w", collection, err)
	}
	return nil
}

// PruneExpired drops every record for which expired returns true, persists
// the remainder, and returns it with the number of records dropped. The
// collection is written even when nothing was dropped.
func PruneExpired[T any](ctx context.Context, s Store, collection string, expired func(T) bool) ([]T, int, error) {
	items, err := LoadAll[T](ctx, s, collection)
	if err != nil {
		return nil, 0, err
	}
	kept := items[:0]
	for _, item := range items {
		if !expired(item) {
			kept = append(kept, item)
		}
	}
	pruned := len(items) - len(kept)
	if err := SaveAll(ctx, s, collection, kept); err != nil {
		return nil, 0, err
	}
	return kept, pruned, nil
}

func validateCollection(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

func cloneRecords(records []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(records))
	for i, r := range records {
		out[i] = append(json.RawMessage(nil), r...)
	}
	return out
}
