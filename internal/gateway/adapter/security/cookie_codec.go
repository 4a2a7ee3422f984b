package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrCookieInvalid          = errors.New("session cookie is invalid")
	ErrCookieExpired          = errors.New("session cookie is expired")
	ErrCookieSignatureInvalid = errors.New("session cookie signature is invalid")
)

// cookieClaims is the payload of the session cookie: the session ID plus
// standard registered claims. The cookie references the session; it never
// carries identity or the upstream credential.
type cookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// CookieCodec signs and verifies the session-reference cookie as an HS256 JWT.
type CookieCodec struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

// NewCookieCodec creates a new session cookie codec.
func NewCookieCodec(secretKey, issuer string, ttl time.Duration) (*CookieCodec, error) {
	if secretKey == "" {
		return nil, errors.New("session secret cannot be empty")
	}
	if issuer == "" {
		return nil, errors.New("session issuer cannot be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("session TTL must be positive")
	}

	return &CookieCodec{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       ttl,
	}, nil
}

// Issue signs a cookie value referencing the given session ID.
func (c *CookieCodec) Issue(sessionID string) (string, error) {
	now := time.Now()
	claims := &cookieClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    c.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secretKey)
}

// Verify validates a cookie value and returns the session ID it references.
func (c *CookieCodec) Verify(cookieValue string) (string, error) {
	if cookieValue == "" {
		return "", ErrCookieInvalid
	}

	token, err := jwt.ParseWithClaims(cookieValue, &cookieClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrCookieSignatureInvalid
		}
		return c.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrCookieExpired
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", ErrCookieSignatureInvalid
		}
		return "", ErrCookieInvalid
	}

	if !token.Valid {
		return "", ErrCookieInvalid
	}

	claims, ok := token.Claims.(*cookieClaims)
	if !ok || claims.SessionID == "" {
		return "", ErrCookieInvalid
	}

	return claims.SessionID, nil
}

// TTL returns the configured cookie lifetime.
func (c *CookieCodec) TTL() time.Duration {
	return c.ttl
}
