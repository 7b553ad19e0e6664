// Package mongo stores each key as a {_id, value} document.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/stitch/pkg/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type document struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials uri and uses database.collection for storage.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	return &Store{client: client, coll: client.Database(database).Collection(collection)}, nil
}

// New uses an existing collection. Close is then a no-op.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("mongo: get %q: %w", key, err)
	}
	return doc.Value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "value", Value: value}}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("mongo: remove %q: %w", key, err)
	}
	return nil
}
