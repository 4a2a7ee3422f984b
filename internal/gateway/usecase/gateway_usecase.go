package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fitness-gateway/internal/gateway/domain/model"
	"fitness-gateway/internal/gateway/domain/repository"
	apperrors "fitness-gateway/internal/shared/errors"
	"fitness-gateway/internal/shared/eventbus"
	"fitness-gateway/internal/shared/logger"
	"fitness-gateway/internal/shared/metrics"

	"github.com/google/uuid"
)

// GatewayUsecaseInterface defines the contract for the session proxy gateway.
// It is the sole holder of the upstream bearer credential: every operation
// that talks to the upstream attaches the credential server-side.
type GatewayUsecaseInterface interface {
	Login(ctx context.Context, req LoginRequest) (*model.Session, error)
	Register(ctx context.Context, req RegisterRequest) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	RefreshProfile(ctx context.Context, sessionID string) (*model.Session, error)
	UpdateProfile(ctx context.Context, sessionID string, update repository.ProfileUpdate) (*model.Session, error)
	ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) error
	Forward(ctx context.Context, sessionID, method, path string, query url.Values, body []byte) (*repository.UpstreamResponse, error)
	Current(ctx context.Context, sessionID string) (*model.Session, error)
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// TokenCipher seals and opens the upstream credential for storage at rest.
type TokenCipher interface {
	Seal(token string) ([]byte, error)
	Open(sealed []byte) (string, error)
}

// SessionEvent is the payload published on session lifecycle events.
type SessionEvent struct {
	SessionID string `json:"sessionId"`
	UserID    int64  `json:"userId"`
	Email     string `json:"email"`
}

// GatewayUsecase implements the session proxy gateway logic.
type GatewayUsecase struct {
	upstream repository.UpstreamClient
	store    repository.SessionStore
	cipher   TokenCipher
	bus      *eventbus.EventBus
	metrics  *metrics.Metrics
	ttl      time.Duration
	log      logger.Logger
}

// NewGatewayUsecase creates a new instance of GatewayUsecase.
func NewGatewayUsecase(
	upstream repository.UpstreamClient,
	store repository.SessionStore,
	cipher TokenCipher,
	bus *eventbus.EventBus,
	m *metrics.Metrics,
	sessionTTL time.Duration,
	log logger.Logger,
) *GatewayUsecase {
	return &GatewayUsecase{
		upstream: upstream,
		store:    store,
		cipher:   cipher,
		bus:      bus,
		metrics:  m,
		ttl:      sessionTTL,
		log:      log.WithComponent("gateway"),
	}
}

// Login authenticates against the upstream and establishes a session.
// Identity, credential and timestamp are captured in one store write; there
// is no state where one exists without the others.
func (uc *GatewayUsecase) Login(ctx context.Context, req LoginRequest) (*model.Session, error) {
	ve := apperrors.NewValidationErrors()
	if strings.TrimSpace(req.Email) == "" {
		ve.Add("email", "Email and password are required")
	}
	if req.Password == "" {
		ve.Add("password", "Email and password are required")
	}
	if ve.HasErrors() {
		return nil, ve.ToAppError()
	}

	payload, err := uc.upstream.Login(ctx, req.Email, req.Password)
	if err != nil {
		uc.observe("login", metrics.OutcomeError)
		var ue *repository.UpstreamError
		if errors.As(err, &ue) {
			return nil, apperrors.NewInvalidCredentialsError(ue.StatusCode, ue.Message)
		}
		return nil, apperrors.NewInvalidCredentialsError(0, "").WithCause(err)
	}

	session, err := uc.establishSession(ctx, payload)
	if err != nil {
		uc.observe("login", metrics.OutcomeError)
		return nil, err
	}

	uc.observe("login", metrics.OutcomeOK)
	uc.publish(ctx, eventbus.EventTypeSessionCreated, session)
	return session, nil
}

// Register validates locally, creates the upstream account, then establishes
// a session exactly as Login does. Validation failures never consume an
// upstream call.
func (uc *GatewayUsecase) Register(ctx context.Context, req RegisterRequest) (*model.Session, error) {
	ve := apperrors.NewValidationErrors()
	if strings.TrimSpace(req.Name) == "" {
		ve.Add("name", "All fields are required")
	}
	if strings.TrimSpace(req.Email) == "" {
		ve.Add("email", "All fields are required")
	}
	if req.Password == "" {
		ve.Add("password", "All fields are required")
	}
	if req.PasswordConfirmation == "" {
		ve.Add("password_confirmation", "All fields are required")
	}
	if ve.HasErrors() {
		return nil, ve.ToAppError()
	}
	if req.Password != req.PasswordConfirmation {
		return nil, apperrors.NewValidationError("Passwords do not match")
	}

	payload, err := uc.upstream.Register(ctx, repository.RegisterPayload{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		uc.observe("register", metrics.OutcomeError)
		return nil, uc.mapUpstreamError(err, http.StatusBadRequest, "Registration failed")
	}

	session, err := uc.establishSession(ctx, payload)
	if err != nil {
		uc.observe("register", metrics.OutcomeError)
		return nil, err
	}

	uc.observe("register", metrics.OutcomeOK)
	uc.publish(ctx, eventbus.EventTypeSessionCreated, session)
	return session, nil
}

// Logout invalidates the credential upstream on a best-effort basis and
// clears the local session unconditionally, even when the upstream call
// fails.
func (uc *GatewayUsecase) Logout(ctx context.Context, sessionID string) error {
	session, err := uc.loadSession(ctx, sessionID)
	if err == nil && session != nil {
		if token, openErr := uc.cipher.Open(session.SealedToken); openErr == nil {
			if upErr := uc.upstream.Logout(ctx, token); upErr != nil {
				uc.log.Warnf("Failed to invalidate token upstream for session %s: %v", sessionID, upErr)
			}
		} else {
			uc.log.Warnf("Failed to open sealed token for session %s: %v", sessionID, openErr)
		}
	}

	if sessionID != "" {
		if delErr := uc.store.Delete(ctx, sessionID); delErr != nil {
			uc.observe("logout", metrics.OutcomeError)
			return apperrors.NewInternalError("Failed to clear session").WithCause(delErr)
		}
	}

	uc.observe("logout", metrics.OutcomeOK)
	uc.publish(ctx, eventbus.EventTypeSessionCleared, session)
	return nil
}

// RefreshProfile fetches a fresh identity from the upstream and replaces it
// in the session, preserving loggedInAt.
func (uc *GatewayUsecase) RefreshProfile(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := uc.requireSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	token, err := uc.cipher.Open(session.SealedToken)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to open session credential").WithCause(err)
	}

	user, err := uc.upstream.FetchUser(ctx, token)
	if err != nil {
		return nil, uc.mapCredentialedError(ctx, session, err, "Failed to fetch user profile")
	}

	session.User = *user
	if err := uc.store.Save(ctx, session); err != nil {
		return nil, apperrors.NewInternalError("Failed to update session").WithCause(err)
	}

	uc.observe("refresh", metrics.OutcomeOK)
	uc.publish(ctx, eventbus.EventTypeSessionRefreshed, session)
	return session, nil
}

// UpdateProfile forwards a partial identity update and refreshes the session
// identity on success, preserving loggedInAt.
func (uc *GatewayUsecase) UpdateProfile(ctx context.Context, sessionID string, update repository.ProfileUpdate) (*model.Session, error) {
	session, err := uc.requireSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	token, err := uc.cipher.Open(session.SealedToken)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to open session credential").WithCause(err)
	}

	user, err := uc.upstream.UpdateUser(ctx, token, update)
	if err != nil {
		return nil, uc.mapCredentialedError(ctx, session, err, "Failed to update profile")
	}

	session.User = *user
	if err := uc.store.Save(ctx, session); err != nil {
		return nil, apperrors.NewInternalError("Failed to update session").WithCause(err)
	}

	uc.observe("update", metrics.OutcomeOK)
	uc.publish(ctx, eventbus.EventTypeSessionRefreshed, session)
	return session, nil
}

// ChangePassword forwards the change and, on success, clears the session:
// a password change forces re-authentication by design.
func (uc *GatewayUsecase) ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) error {
	ve := apperrors.NewValidationErrors()
	if currentPassword == "" {
		ve.Add("current_password", "Current password and new password are required")
	}
	if newPassword == "" {
		ve.Add("password", "Current password and new password are required")
	}
	if ve.HasErrors() {
		return ve.ToAppError()
	}

	session, err := uc.requireSession(ctx, sessionID)
	if err != nil {
		return err
	}

	token, err := uc.cipher.Open(session.SealedToken)
	if err != nil {
		return apperrors.NewInternalError("Failed to open session credential").WithCause(err)
	}

	if err := uc.upstream.ChangePassword(ctx, token, currentPassword, newPassword); err != nil {
		uc.observe("change_password", metrics.OutcomeError)
		return uc.mapCredentialedError(ctx, session, err, "Failed to change password")
	}

	if err := uc.store.Delete(ctx, sessionID); err != nil {
		return apperrors.NewInternalError("Failed to clear session").WithCause(err)
	}

	uc.observe("change_password", metrics.OutcomeOK)
	uc.publish(ctx, eventbus.EventTypeSessionCleared, session)
	return nil
}

// Forward proxies an arbitrary request to the upstream with the session
// credential attached when a session exists. A 401 from the upstream clears
// the local session before the failure is re-signaled: stale credentials
// must not linger.
func (uc *GatewayUsecase) Forward(ctx context.Context, sessionID, method, path string, query url.Values, body []byte) (*repository.UpstreamResponse, error) {
	session, err := uc.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var token string
	if session != nil {
		token, err = uc.cipher.Open(session.SealedToken)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to open session credential").WithCause(err)
		}
	}

	resp, err := uc.upstream.Do(ctx, token, method, path, query, body)
	if err != nil {
		var ue *repository.UpstreamError
		if errors.As(err, &ue) {
			if ue.StatusCode == http.StatusUnauthorized && session != nil {
				uc.clearExpiredSession(ctx, session)
			}
			return nil, apperrors.NewUpstreamError(ue.StatusCode, ue.Message)
		}
		return nil, apperrors.NewUpstreamError(0, "API request failed").WithCause(err)
	}

	return resp, nil
}

// Current loads the session without touching the upstream.
func (uc *GatewayUsecase) Current(ctx context.Context, sessionID string) (*model.Session, error) {
	return uc.requireSession(ctx, sessionID)
}

// Helper methods

// establishSession seals the credential and writes the session atomically.
func (uc *GatewayUsecase) establishSession(ctx context.Context, payload *repository.AuthPayload) (*model.Session, error) {
	sealed, err := uc.cipher.Seal(payload.AccessToken)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to seal session credential").WithCause(err)
	}

	now := time.Now()
	session := &model.Session{
		ID:          uuid.New().String(),
		User:        payload.User,
		LoggedInAt:  now,
		ExpiresAt:   now.Add(uc.ttl),
		SealedToken: sealed,
	}

	if err := uc.store.Save(ctx, session); err != nil {
		return nil, apperrors.NewInternalError("Failed to store session").WithCause(err)
	}
	return session, nil
}

// loadSession resolves a session ID that may legitimately be absent.
func (uc *GatewayUsecase) loadSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := uc.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError("Failed to load session").WithCause(err)
	}
	return session, nil
}

// requireSession resolves a session ID that must exist.
func (uc *GatewayUsecase) requireSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := uc.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NewUnauthenticatedError()
	}
	return session, nil
}

// mapCredentialedError maps an upstream failure on a credentialed call. A
// 401 clears the session and becomes SESSION_EXPIRED; everything else passes
// through with the upstream status and message.
func (uc *GatewayUsecase) mapCredentialedError(ctx context.Context, session *model.Session, err error, fallback string) error {
	var ue *repository.UpstreamError
	if errors.As(err, &ue) {
		if ue.StatusCode == http.StatusUnauthorized {
			uc.clearExpiredSession(ctx, session)
			return apperrors.NewSessionExpiredError()
		}
		return apperrors.NewUpstreamError(ue.StatusCode, ue.Message)
	}
	return apperrors.NewUpstreamError(0, fallback).WithCause(err)
}

// mapUpstreamError maps an upstream failure on an uncredentialed call.
func (uc *GatewayUsecase) mapUpstreamError(err error, fallbackStatus int, fallbackMessage string) error {
	var ue *repository.UpstreamError
	if errors.As(err, &ue) {
		message := ue.Message
		if message == "" {
			message = fallbackMessage
		}
		status := ue.StatusCode
		if status == 0 {
			status = fallbackStatus
		}
		return apperrors.NewUpstreamError(status, message)
	}
	return apperrors.NewUpstreamError(fallbackStatus, fallbackMessage).WithCause(err)
}

// clearExpiredSession removes a session whose credential the upstream
// rejected. Guaranteed side effect: failures here are logged, never allowed
// to keep the stale session alive silently.
func (uc *GatewayUsecase) clearExpiredSession(ctx context.Context, session *model.Session) {
	if err := uc.store.Delete(ctx, session.ID); err != nil {
		uc.log.Errorf("Failed to clear rejected session %s: %v", session.ID, err)
	}
	uc.observe("expire", metrics.OutcomeOK)
	uc.publish(ctx, eventbus.EventTypeSessionExpired, session)
}

func (uc *GatewayUsecase) publish(ctx context.Context, eventType string, session *model.Session) {
	if uc.bus == nil || session == nil {
		return
	}
	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(eventType, SessionEvent{
		SessionID: session.ID,
		UserID:    session.User.ID,
		Email:     session.User.Email,
	}, "gateway"))
}

func (uc *GatewayUsecase) observe(operation, outcome string) {
	if uc.metrics != nil {
		uc.metrics.ObserveSessionOp(operation, outcome)
	}
}

// Ensure GatewayUsecase implements GatewayUsecaseInterface
var _ GatewayUsecaseInterface = (*GatewayUsecase)(nil)
