package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// Memory keeps documents in process, normalized through their JSON encoding.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]map[string]any
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]map[string]any)}
}

// Insert implements Store.
func (m *Memory) Insert(_ context.Context, collection string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	var norm map[string]any
	if err := json.Unmarshal(raw, &norm); err != nil {
		return fmt.Errorf("document must encode to an object: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], norm)
	return nil
}

// FindOne implements Store.
func (m *Memory) FindOne(_ context.Context, collection string, filter Filter, out any) error {
	want, err := normalizeMap(filter)
	if err != nil {
		return err
	}

	m.mu.Lock()
	doc := m.first(collection, want)
	var raw []byte
	if doc != nil {
		raw, err = json.Marshal(doc)
	}
	m.mu.Unlock()

	if doc == nil {
		return ErrNoDocument
	}
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// UpdateOne implements Store. Setting a field to its current value does not count as a modification.
func (m *Memory) UpdateOne(_ context.Context, collection string, filter Filter, set Fields) (int64, error) {
	want, err := normalizeMap(filter)
	if err != nil {
		return 0, err
	}
	values, err := normalizeMap(set)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.first(collection, want)
	if doc == nil {
		return 0, nil
	}
	changed := false
	for k, v := range values {
		if cur, ok := doc[k]; !ok || !reflect.DeepEqual(cur, v) {
			doc[k] = v
			changed = true
		}
	}
	if !changed {
		return 0, nil
	}
	return 1, nil
}

// Close implements Store.
func (m *Memory) Close(context.Context) error { return nil }

func (m *Memory) first(collection string, want map[string]any) map[string]any {
	for _, doc := range m.collections[collection] {
		if matches(doc, want) {
			return doc
		}
	}
	return nil
}

// matches treats a missing field as null, like MongoDB.
func matches(doc, want map[string]any) bool {
	for k, v := range want {
		if !reflect.DeepEqual(doc[k], v) {
			return false
		}
	}
	return true
}

func normalizeMap[M ~map[string]any](in M) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		var norm any
		if err := json.Unmarshal(raw, &norm); err != nil {
			return nil, fmt.Errorf("normalize field %s: %w", k, err)
		}
		out[k] = norm
	}
	return out, nil
}
