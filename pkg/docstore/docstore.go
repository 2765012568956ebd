// Package docstore is a minimal schemaless document store abstraction with
// MongoDB, PostgreSQL (JSONB), Firestore and in-memory backends.
package docstore

import (
	"context"
	"errors"
	"sort"
)

// ErrNoDocument is returned by FindOne when nothing matches the filter.
var ErrNoDocument = errors.New("docstore: no document matches filter")

// Filter is an exact-match conjunction over named top-level fields.
type Filter map[string]any

// Fields are top-level field assignments applied by UpdateOne.
type Fields map[string]any

// Store is the document store contract. Implementations give no multi-document atomicity.
type Store interface {
	// Insert stores doc as a new document in collection.
	Insert(ctx context.Context, collection string, doc any) error
	// FindOne decodes the first document matching filter into out.
	FindOne(ctx context.Context, collection string, filter Filter, out any) error
	// UpdateOne sets fields on the first document matching filter and returns the modified count.
	UpdateOne(ctx context.Context, collection string, filter Filter, set Fields) (int64, error)
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
