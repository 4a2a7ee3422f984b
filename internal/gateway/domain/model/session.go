package model

import "time"

// Session binds a viewer to an identity and an upstream credential. The
// credential is stored secretbox-sealed; it never appears in any JSON
// rendering of the session, so handlers can return the session's public
// fields without a redaction step.
type Session struct {
	ID          string    `json:"id" bson:"_id"`
	User        User      `json:"user" bson:"user"`
	LoggedInAt  time.Time `json:"loggedInAt" bson:"logged_in_at"`
	ExpiresAt   time.Time `json:"-" bson:"expires_at"`
	SealedToken []byte    `json:"-" bson:"sealed_token"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
