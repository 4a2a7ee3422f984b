package mongostore

import (
	"context"
	"fmt"
	"time"

	"fitness-gateway/internal/gateway/domain/model"
	"fitness-gateway/internal/gateway/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "sessions"

// Store is a MongoDB-backed SessionStore. A TTL index on expires_at lets
// Mongo reap dead sessions; Get additionally checks expiry because the TTL
// monitor only runs periodically.
type Store struct {
	collection *mongo.Collection
}

// NewStore creates a Mongo session store and ensures the TTL index.
func NewStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	collection := db.Collection(collectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session TTL index: %w", err)
	}

	return &Store{collection: collection}, nil
}

// Save upserts the session document.
func (s *Store) Save(ctx context.Context, session *model.Session) error {
	filter := bson.M{"_id": session.ID}
	update := bson.M{"$set": session}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get loads a session by ID.
func (s *Store) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	err := s.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Expired(time.Now()) {
		_ = s.Delete(ctx, sessionID)
		return nil, repository.ErrSessionNotFound
	}

	return &session, nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ repository.SessionStore = (*Store)(nil)
