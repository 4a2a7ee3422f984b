package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fitness-gateway/internal/gateway/domain/model"
	"fitness-gateway/internal/gateway/domain/repository"
	"fitness-gateway/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gateway:session:"

// record is the stored shape. The sealed token travels as base64 through
// encoding/json's []byte handling; it is ciphertext either way.
type record struct {
	ID          string     `json:"id"`
	User        model.User `json:"user"`
	LoggedInAt  time.Time  `json:"logged_in_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	SealedToken []byte     `json:"sealed_token"`
}

// Store is a Redis-backed SessionStore. Expiry is delegated to Redis TTLs.
type Store struct {
	client *redis.Client
	log    logger.Logger
}

// NewStore creates a Redis session store.
func NewStore(client *redis.Client, log logger.Logger) *Store {
	return &Store{
		client: client,
		log:    log.WithComponent("redis_session_store"),
	}
}

// Save writes the session with a TTL derived from its ExpiresAt.
func (s *Store) Save(ctx context.Context, session *model.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s is already expired", session.ID)
	}

	payload, err := json.Marshal(record{
		ID:          session.ID,
		User:        session.User,
		LoggedInAt:  session.LoggedInAt,
		ExpiresAt:   session.ExpiresAt,
		SealedToken: session.SealedToken,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get loads a session by ID.
func (s *Store) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	payload, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		s.log.Warnf("Dropping undecodable session %s: %v", sessionID, err)
		return nil, repository.ErrSessionNotFound
	}

	return &model.Session{
		ID:          rec.ID,
		User:        rec.User,
		LoggedInAt:  rec.LoggedInAt,
		ExpiresAt:   rec.ExpiresAt,
		SealedToken: rec.SealedToken,
	}, nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ repository.SessionStore = (*Store)(nil)
