// Package mongostore keeps conversation thread ids in a MongoDB collection,
// one document per conversation key.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skosovsky/agentrun"
	"github.com/skosovsky/agentrun/guard"
)

// Store maps one conversation key to a thread id.
type Store struct {
	collection *mongo.Collection
	key        string
}

// threadDocument is the stored form of a conversation handle.
type threadDocument struct {
	Key       string    `bson:"_id"`
	ThreadID  string    `bson:"thread_id"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// New returns a Store for the conversation identified by key.
func New(collection *mongo.Collection, key string) (*Store, error) {
	if err := guard.First(
		guard.NotNil(collection, "mongodb collection is required"),
		guard.NotEmpty(key, "conversation key is required"),
	); err != nil {
		return nil, err
	}
	return &Store{collection: collection, key: key}, nil
}

// Get returns the stored thread id; ok is false when no document exists.
func (s *Store) Get(ctx context.Context) (string, bool, error) {
	var doc threadDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": s.key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongodb get thread %q: %w", s.key, err)
	}
	return doc.ThreadID, doc.ThreadID != "", nil
}

// Set upserts the conversation document with threadID.
func (s *Store) Set(ctx context.Context, threadID string) error {
	update := bson.M{"$set": bson.M{"thread_id": threadID, "updated_at": time.Now().UTC()}}
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": s.key}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb set thread %q: %w", s.key, err)
	}
	return nil
}

var _ agentrun.ThreadStore = (*Store)(nil)
