package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Firestore stores documents in Firestore collections. Documents are encoded with their firestore tags.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore wraps a client; see database.NewFirestoreClient.
func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

// Insert implements Store.
func (f *Firestore) Insert(ctx context.Context, collection string, doc any) error {
	if _, _, err := f.client.Collection(collection).Add(ctx, doc); err != nil {
		return fmt.Errorf("firestore insert into %s: %w", collection, err)
	}
	return nil
}

// FindOne implements Store.
func (f *Firestore) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	snap, err := f.first(ctx, collection, filter)
	if err != nil {
		return err
	}
	if err := snap.DataTo(out); err != nil {
		return fmt.Errorf("decode document %s: %w", snap.Ref.ID, err)
	}
	return nil
}

// UpdateOne implements Store. The matching document is counted as modified whenever one matches.
func (f *Firestore) UpdateOne(ctx context.Context, collection string, filter Filter, set Fields) (int64, error) {
	snap, err := f.first(ctx, collection, filter)
	if errors.Is(err, ErrNoDocument) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	updates := make([]firestore.Update, 0, len(set))
	for _, k := range sortedKeys(set) {
		updates = append(updates, firestore.Update{Path: k, Value: set[k]})
	}
	if _, err := snap.Ref.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("firestore update %s: %w", snap.Ref.ID, err)
	}
	return 1, nil
}

// Close implements Store.
func (f *Firestore) Close(context.Context) error {
	return f.client.Close()
}

func (f *Firestore) first(ctx context.Context, collection string, filter Filter) (*firestore.DocumentSnapshot, error) {
	q := f.client.Collection(collection).Query
	for _, k := range sortedKeys(filter) {
		q = q.Where(k, "==", filter[k])
	}
	iter := q.Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("firestore query %s: %w", collection, err)
	}
	return snap, nil
}
