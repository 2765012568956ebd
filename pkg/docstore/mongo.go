package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mongo stores documents in a MongoDB database. Documents are encoded with their bson tags.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo wraps a connected client; see database.NewMongoClient.
func NewMongo(client *mongo.Client, database string) *Mongo {
	return &Mongo{client: client, db: client.Database(database)}
}

// Insert implements Store.
func (m *Mongo) Insert(ctx context.Context, collection string, doc any) error {
	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo insert into %s: %w", collection, err)
	}
	return nil
}

// FindOne implements Store.
func (m *Mongo) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	err := m.db.Collection(collection).FindOne(ctx, bson.M(filter)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNoDocument
	}
	if err != nil {
		return fmt.Errorf("mongo find in %s: %w", collection, err)
	}
	return nil
}

// UpdateOne implements Store using $set.
func (m *Mongo) UpdateOne(ctx context.Context, collection string, filter Filter, set Fields) (int64, error) {
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M(filter), bson.M{"$set": bson.M(set)})
	if err != nil {
		return 0, fmt.Errorf("mongo update in %s: %w", collection, err)
	}
	return res.ModifiedCount, nil
}

// Close implements Store.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
