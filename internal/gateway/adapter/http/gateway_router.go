package http

import (
	"net/url"
	"time"

	"fitness-gateway/internal/gateway/adapter/security"
	"fitness-gateway/internal/gateway/config"
	"fitness-gateway/internal/gateway/domain/repository"
	"fitness-gateway/internal/gateway/usecase"
	apperrors "fitness-gateway/internal/shared/errors"
	"fitness-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// GatewayHTTPHandler handles the browser-facing gateway surface:
// /api/auth/* plus the catch-all /api/proxy/*.
type GatewayHTTPHandler struct {
	usecase usecase.GatewayUsecaseInterface
	codec   *security.CookieCodec
	cfg     *config.Config
	log     logger.Logger
}

// NewGatewayHTTPHandler creates a new gateway HTTP handler.
func NewGatewayHTTPHandler(uc usecase.GatewayUsecaseInterface, codec *security.CookieCodec, cfg *config.Config, log logger.Logger) *GatewayHTTPHandler {
	return &GatewayHTTPHandler{
		usecase: uc,
		codec:   codec,
		cfg:     cfg,
		log:     log.WithComponent("gateway_http"),
	}
}

// SetupRoutes registers the gateway routes on the given router (mounted at /api).
func (h *GatewayHTTPHandler) SetupRoutes(router fiber.Router, middleware *SessionMiddleware) {
	auth := router.Group("/auth")
	auth.Post("/login", h.Login)
	auth.Post("/register", h.Register)
	auth.Post("/logout", h.Logout)
	auth.Post("/change-password", h.ChangePassword)
	auth.Get("/user", h.GetUser)
	auth.Put("/user", h.UpdateUser)

	router.All("/proxy/*", h.Proxy)
}

// Login authenticates with the upstream backend and creates a secure session.
func (h *GatewayHTTPHandler) Login(c *fiber.Ctx) error {
	var req usecase.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.usecase.Login(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.setCookie(c, session.ID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    session.User,
	})
}

// Register creates an upstream account and establishes a session.
func (h *GatewayHTTPHandler) Register(c *fiber.Ctx) error {
	var req usecase.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.usecase.Register(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.setCookie(c, session.ID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    session.User,
	})
}

// Logout clears the session and best-effort invalidates the upstream token.
func (h *GatewayHTTPHandler) Logout(c *fiber.Ctx) error {
	if err := h.usecase.Logout(c.Context(), h.sessionID(c)); err != nil {
		return respondError(c, err)
	}

	h.clearCookie(c)
	return c.JSON(fiber.Map{"success": true})
}

// GetUser fetches a fresh profile from the upstream and refreshes the session.
func (h *GatewayHTTPHandler) GetUser(c *fiber.Ctx) error {
	session, err := h.usecase.RefreshProfile(c.Context(), h.sessionID(c))
	if err != nil {
		if apperrors.IsSessionExpired(err) {
			h.clearCookie(c)
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"user": session.User})
}

// UpdateUser forwards a partial profile update and refreshes the session.
func (h *GatewayHTTPHandler) UpdateUser(c *fiber.Ctx) error {
	var update repository.ProfileUpdate
	if err := c.BodyParser(&update); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.usecase.UpdateProfile(c.Context(), h.sessionID(c), update)
	if err != nil {
		if apperrors.IsSessionExpired(err) {
			h.clearCookie(c)
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    session.User,
	})
}

// ChangePassword forwards the change and clears the session on success: the
// viewer must re-authenticate.
func (h *GatewayHTTPHandler) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		Password        string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "Invalid request body")
	}

	err := h.usecase.ChangePassword(c.Context(), h.sessionID(c), req.CurrentPassword, req.Password)
	if err != nil {
		if apperrors.IsSessionExpired(err) {
			h.clearCookie(c)
		}
		return respondError(c, err)
	}

	h.clearCookie(c)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password changed successfully. Please log in again.",
	})
}

// Proxy forwards an arbitrary request to the upstream backend with the
// session credential attached, so client code never sees the token.
func (h *GatewayHTTPHandler) Proxy(c *fiber.Ctx) error {
	path := c.Params("*")

	query := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		query.Add(string(key), string(value))
	})

	var body []byte
	if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
		body = c.Body()
	}

	resp, err := h.usecase.Forward(c.Context(), h.sessionID(c), c.Method(), path, query, body)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(resp.StatusCode).Send(resp.Body)
}

// Helper methods

func (h *GatewayHTTPHandler) sessionID(c *fiber.Ctx) string {
	cookieValue := c.Cookies(h.cfg.CookieName)
	if cookieValue == "" {
		return ""
	}
	sessionID, err := h.codec.Verify(cookieValue)
	if err != nil {
		return ""
	}
	return sessionID
}

func (h *GatewayHTTPHandler) setCookie(c *fiber.Ctx, sessionID string) error {
	value, err := h.codec.Issue(sessionID)
	if err != nil {
		return apperrors.NewInternalError("Failed to issue session cookie").WithCause(err)
	}

	maxAge := int(h.codec.TTL().Seconds())
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		MaxAge:   maxAge,
		Secure:   h.cfg.CookieSecure,
		HTTPOnly: h.cfg.CookieHTTPOnly,
		SameSite: h.cfg.CookieSameSite,
		Expires:  time.Now().Add(h.codec.TTL()),
	})
	return nil
}

func (h *GatewayHTTPHandler) clearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		MaxAge:   -1,
		Secure:   h.cfg.CookieSecure,
		HTTPOnly: h.cfg.CookieHTTPOnly,
		SameSite: h.cfg.CookieSameSite,
		Expires:  time.Now().Add(-time.Hour),
	})
}

// respondError maps a usecase error onto the {statusCode, statusMessage} wire
// shape.
func respondError(c *fiber.Ctx, err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return respondStatus(c, appErr.StatusCode, appErr.StatusMessage)
	}
	return respondStatus(c, fiber.StatusInternalServerError, "Internal Server Error")
}

func respondStatus(c *fiber.Ctx, statusCode int, statusMessage string) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"statusCode":    statusCode,
		"statusMessage": statusMessage,
	})
}
