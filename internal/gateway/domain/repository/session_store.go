package repository

import (
	"context"
	"errors"

	"fitness-gateway/internal/gateway/domain/model"
)

// ErrSessionNotFound is returned by Get when no live session exists for the ID.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists sessions keyed by session ID. Implementations must
// honor the session's ExpiresAt: a session past expiry behaves as absent.
type SessionStore interface {
	Save(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	Delete(ctx context.Context, sessionID string) error
}
