package http

import (
	"fitness-gateway/internal/gateway/adapter/security"
	"fitness-gateway/internal/gateway/usecase"
	"fitness-gateway/internal/shared/contextkeys"
	"fitness-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Locals keys set by the session middleware.
const (
	LocalsSessionID = "sessionID"
	LocalsSession   = "session"
)

// SessionMiddleware resolves the session cookie into request-scoped state.
type SessionMiddleware struct {
	usecase    usecase.GatewayUsecaseInterface
	codec      *security.CookieCodec
	cookieName string
	log        logger.Logger
}

// NewSessionMiddleware creates the session middleware.
func NewSessionMiddleware(uc usecase.GatewayUsecaseInterface, codec *security.CookieCodec, cookieName string, log logger.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		usecase:    uc,
		codec:      codec,
		cookieName: cookieName,
		log:        log.WithComponent("session_middleware"),
	}
}

// Load resolves the cookie into a session ID and, when the session is live,
// the session itself. Anonymous requests pass through untouched.
func (m *SessionMiddleware) Load() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := m.sessionID(c)
		if sessionID == "" {
			return c.Next()
		}
		c.Locals(LocalsSessionID, sessionID)

		session, err := m.usecase.Current(c.Context(), sessionID)
		if err == nil {
			c.Locals(LocalsSession, session)
		}
		return c.Next()
	}
}

// Protect requires a live session.
func (m *SessionMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := m.sessionID(c)
		if sessionID == "" {
			return respondStatus(c, fiber.StatusUnauthorized, "Authentication required")
		}

		session, err := m.usecase.Current(c.Context(), sessionID)
		if err != nil {
			return respondStatus(c, fiber.StatusUnauthorized, "Authentication required")
		}

		c.Locals(LocalsSessionID, sessionID)
		c.Locals(LocalsSession, session)
		return c.Next()
	}
}

// SecurityHeaders adds security headers
func (m *SessionMiddleware) SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	}
}

// RequestID middleware
func (m *SessionMiddleware) RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: string(contextkeys.RequestIDKey),
	})
}

// sessionID extracts and verifies the session cookie. Invalid or expired
// cookies resolve to the empty ID: the viewer is simply anonymous.
func (m *SessionMiddleware) sessionID(c *fiber.Ctx) string {
	cookieValue := c.Cookies(m.cookieName)
	if cookieValue == "" {
		return ""
	}
	sessionID, err := m.codec.Verify(cookieValue)
	if err != nil {
		m.log.Debugf("Rejected session cookie: %v", err)
		return ""
	}
	return sessionID
}
