package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"fitness-gateway/internal/gateway/adapter/persistence/memory"
	"fitness-gateway/internal/gateway/domain/model"
	"fitness-gateway/internal/gateway/domain/repository"
	"fitness-gateway/internal/gateway/usecase"
	apperrors "fitness-gateway/internal/shared/errors"
	"fitness-gateway/internal/shared/eventbus"
	"fitness-gateway/internal/shared/logger"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// Mock upstream client
type mockUpstreamClient struct {
	mock.Mock
}

func (m *mockUpstreamClient) Login(ctx context.Context, email, password string) (*repository.AuthPayload, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AuthPayload), args.Error(1)
}

func (m *mockUpstreamClient) Register(ctx context.Context, payload repository.RegisterPayload) (*repository.AuthPayload, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AuthPayload), args.Error(1)
}

func (m *mockUpstreamClient) FetchUser(ctx context.Context, token string) (*model.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUpstreamClient) UpdateUser(ctx context.Context, token string, update repository.ProfileUpdate) (*model.User, error) {
	args := m.Called(ctx, token, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUpstreamClient) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error {
	args := m.Called(ctx, token, currentPassword, newPassword)
	return args.Error(0)
}

func (m *mockUpstreamClient) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockUpstreamClient) Do(ctx context.Context, token, method, path string, query url.Values, body []byte) (*repository.UpstreamResponse, error) {
	args := m.Called(ctx, token, method, path, query, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.UpstreamResponse), args.Error(1)
}

// stubCipher is a transparent cipher so tests can assert on the sealed form.
type stubCipher struct{}

func (stubCipher) Seal(token string) ([]byte, error) {
	return []byte("sealed:" + token), nil
}

func (stubCipher) Open(sealed []byte) (string, error) {
	s := string(sealed)
	if !strings.HasPrefix(s, "sealed:") {
		return "", errors.New("not sealed")
	}
	return strings.TrimPrefix(s, "sealed:"), nil
}

type GatewayUsecaseTestSuite struct {
	suite.Suite
	upstream *mockUpstreamClient
	store    *memory.Store
	bus      *eventbus.EventBus
	usecase  *usecase.GatewayUsecase
}

func (s *GatewayUsecaseTestSuite) SetupTest() {
	s.upstream = &mockUpstreamClient{}
	s.store = memory.NewStore()
	s.bus = eventbus.NewEventBus(nil)
	s.usecase = usecase.NewGatewayUsecase(
		s.upstream, s.store, stubCipher{}, s.bus, nil, time.Hour, logger.NewLogger())
}

func (s *GatewayUsecaseTestSuite) seedSession() *model.Session {
	session := &model.Session{
		ID:          "sess-1",
		User:        model.User{ID: 7, Name: "Jo", Email: "jo@example.com"},
		LoggedInAt:  time.Now().Add(-time.Hour),
		ExpiresAt:   time.Now().Add(time.Hour),
		SealedToken: []byte("sealed:upstream-token"),
	}
	s.Require().NoError(s.store.Save(context.Background(), session))
	return session
}

func (s *GatewayUsecaseTestSuite) TestLogin_EstablishesSession() {
	ctx := context.Background()
	payload := &repository.AuthPayload{
		AccessToken: "upstream-token",
		User:        model.User{ID: 7, Email: "jo@example.com", Roles: []string{"trainer"}},
	}
	s.upstream.On("Login", ctx, "jo@example.com", "secret").Return(payload, nil)

	session, err := s.usecase.Login(ctx, usecase.LoginRequest{Email: "jo@example.com", Password: "secret"})

	s.Require().NoError(err)
	s.NotEmpty(session.ID)
	s.Equal(int64(7), session.User.ID)
	s.Equal([]byte("sealed:upstream-token"), session.SealedToken)
	s.False(session.LoggedInAt.IsZero())
	s.True(session.ExpiresAt.After(session.LoggedInAt))

	stored, err := s.store.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.User.Email, stored.User.Email)
}

func (s *GatewayUsecaseTestSuite) TestLogin_ValidationSkipsUpstream() {
	_, err := s.usecase.Login(context.Background(), usecase.LoginRequest{Email: "  ", Password: ""})

	s.Require().Error(err)
	s.True(apperrors.IsValidation(err))
	s.upstream.AssertNotCalled(s.T(), "Login", mock.Anything, mock.Anything, mock.Anything)
	s.Equal(0, s.store.Len())
}

func (s *GatewayUsecaseTestSuite) TestLogin_UpstreamRejectionMapsToInvalidCredentials() {
	ctx := context.Background()
	s.upstream.On("Login", ctx, "jo@example.com", "wrong").
		Return(nil, &repository.UpstreamError{StatusCode: http.StatusUnprocessableEntity, Message: "These credentials do not match our records."})

	_, err := s.usecase.Login(ctx, usecase.LoginRequest{Email: "jo@example.com", Password: "wrong"})

	s.Require().Error(err)
	s.True(apperrors.IsInvalidCredentials(err))
	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok)
	s.Equal(http.StatusUnprocessableEntity, appErr.StatusCode)
	s.Equal("These credentials do not match our records.", appErr.StatusMessage)
	s.Equal(0, s.store.Len())
}

func (s *GatewayUsecaseTestSuite) TestLogin_NetworkFailureMapsToInvalidCredentials() {
	ctx := context.Background()
	s.upstream.On("Login", ctx, "jo@example.com", "secret").Return(nil, errors.New("connection refused"))

	_, err := s.usecase.Login(ctx, usecase.LoginRequest{Email: "jo@example.com", Password: "secret"})

	s.Require().Error(err)
	s.True(apperrors.IsInvalidCredentials(err))
}

func (s *GatewayUsecaseTestSuite) TestRegister_PasswordMismatchSkipsUpstream() {
	_, err := s.usecase.Register(context.Background(), usecase.RegisterRequest{
		Name: "Jo", Email: "jo@example.com", Password: "one", PasswordConfirmation: "two",
	})

	s.Require().Error(err)
	s.True(apperrors.IsValidation(err))
	s.upstream.AssertNotCalled(s.T(), "Register", mock.Anything, mock.Anything)
}

func (s *GatewayUsecaseTestSuite) TestRegister_Success() {
	ctx := context.Background()
	payload := &repository.AuthPayload{
		AccessToken: "fresh-token",
		User:        model.User{ID: 9, Email: "new@example.com"},
	}
	s.upstream.On("Register", ctx, mock.MatchedBy(func(p repository.RegisterPayload) bool {
		return p.Email == "new@example.com" && p.Password == "pw" && p.PasswordConfirmation == "pw"
	})).Return(payload, nil)

	session, err := s.usecase.Register(ctx, usecase.RegisterRequest{
		Name: "New", Email: "new@example.com", Password: "pw", PasswordConfirmation: "pw",
	})

	s.Require().NoError(err)
	s.Equal(int64(9), session.User.ID)
	s.Equal(1, s.store.Len())
}

func (s *GatewayUsecaseTestSuite) TestLogout_ClearsSessionDespiteUpstreamFailure() {
	ctx := context.Background()
	session := s.seedSession()
	s.upstream.On("Logout", ctx, "upstream-token").Return(errors.New("upstream down"))

	err := s.usecase.Logout(ctx, session.ID)

	s.Require().NoError(err)
	s.Equal(0, s.store.Len())
	s.upstream.AssertCalled(s.T(), "Logout", ctx, "upstream-token")
}

func (s *GatewayUsecaseTestSuite) TestLogout_NoSessionIsANoop() {
	err := s.usecase.Logout(context.Background(), "")
	s.NoError(err)
	s.upstream.AssertNotCalled(s.T(), "Logout", mock.Anything, mock.Anything)
}

func (s *GatewayUsecaseTestSuite) TestRefreshProfile_PreservesLoggedInAt() {
	ctx := context.Background()
	session := s.seedSession()
	loggedInAt := session.LoggedInAt
	fresh := &model.User{ID: 7, Name: "Jo Updated", Email: "jo@example.com"}
	s.upstream.On("FetchUser", ctx, "upstream-token").Return(fresh, nil)

	refreshed, err := s.usecase.RefreshProfile(ctx, session.ID)

	s.Require().NoError(err)
	s.Equal("Jo Updated", refreshed.User.Name)
	s.True(refreshed.LoggedInAt.Equal(loggedInAt))
}

func (s *GatewayUsecaseTestSuite) TestRefreshProfile_401ClearsSession() {
	ctx := context.Background()
	session := s.seedSession()
	s.upstream.On("FetchUser", ctx, "upstream-token").
		Return(nil, &repository.UpstreamError{StatusCode: http.StatusUnauthorized, Message: "Unauthenticated."})

	_, err := s.usecase.RefreshProfile(ctx, session.ID)

	s.Require().Error(err)
	s.True(apperrors.IsSessionExpired(err))
	s.Equal(0, s.store.Len())
}

func (s *GatewayUsecaseTestSuite) TestRefreshProfile_MissingSession() {
	_, err := s.usecase.RefreshProfile(context.Background(), "no-such-session")

	s.Require().Error(err)
	s.True(apperrors.IsUnauthenticated(err))
}

func (s *GatewayUsecaseTestSuite) TestUpdateProfile_RefreshesIdentity() {
	ctx := context.Background()
	session := s.seedSession()
	updated := &model.User{ID: 7, Name: "Renamed", Email: "jo@example.com"}
	update := repository.ProfileUpdate{Name: "Renamed"}
	s.upstream.On("UpdateUser", ctx, "upstream-token", update).Return(updated, nil)

	result, err := s.usecase.UpdateProfile(ctx, session.ID, update)

	s.Require().NoError(err)
	s.Equal("Renamed", result.User.Name)

	stored, err := s.store.Get(ctx, session.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", stored.User.Name)
}

func (s *GatewayUsecaseTestSuite) TestChangePassword_ClearsSessionOnSuccess() {
	ctx := context.Background()
	session := s.seedSession()
	s.upstream.On("ChangePassword", ctx, "upstream-token", "old", "new").Return(nil)

	err := s.usecase.ChangePassword(ctx, session.ID, "old", "new")

	s.Require().NoError(err)
	s.Equal(0, s.store.Len())
}

func (s *GatewayUsecaseTestSuite) TestChangePassword_WrongCurrentKeepsSession() {
	ctx := context.Background()
	session := s.seedSession()
	s.upstream.On("ChangePassword", ctx, "upstream-token", "bad", "new").
		Return(&repository.UpstreamError{StatusCode: http.StatusUnprocessableEntity, Message: "The current password is incorrect."})

	err := s.usecase.ChangePassword(ctx, session.ID, "bad", "new")

	s.Require().Error(err)
	s.True(apperrors.IsUpstream(err))
	_, getErr := s.store.Get(ctx, session.ID)
	s.NoError(getErr)
}

func (s *GatewayUsecaseTestSuite) TestChangePassword_ValidationBeforeSessionLookup() {
	err := s.usecase.ChangePassword(context.Background(), "sess-1", "", "")

	s.Require().Error(err)
	s.True(apperrors.IsValidation(err))
	s.upstream.AssertNotCalled(s.T(), "ChangePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *GatewayUsecaseTestSuite) TestForward_AttachesCredential() {
	ctx := context.Background()
	session := s.seedSession()
	query := url.Values{"page": []string{"2"}}
	resp := &repository.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(`{"data":[]}`)}
	s.upstream.On("Do", ctx, "upstream-token", http.MethodGet, "exercises", query, []byte(nil)).Return(resp, nil)

	result, err := s.usecase.Forward(ctx, session.ID, http.MethodGet, "exercises", query, nil)

	s.Require().NoError(err)
	s.Equal(http.StatusOK, result.StatusCode)
}

func (s *GatewayUsecaseTestSuite) TestForward_AnonymousGoesWithoutToken() {
	ctx := context.Background()
	resp := &repository.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(`{}`)}
	s.upstream.On("Do", ctx, "", http.MethodGet, "public", url.Values(nil), []byte(nil)).Return(resp, nil)

	result, err := s.usecase.Forward(ctx, "", http.MethodGet, "public", nil, nil)

	s.Require().NoError(err)
	s.Equal(http.StatusOK, result.StatusCode)
}

func (s *GatewayUsecaseTestSuite) TestForward_401ClearsSession() {
	ctx := context.Background()
	session := s.seedSession()
	s.upstream.On("Do", ctx, "upstream-token", http.MethodGet, "exercises", url.Values(nil), []byte(nil)).
		Return(nil, &repository.UpstreamError{StatusCode: http.StatusUnauthorized, Message: "Unauthenticated."})

	_, err := s.usecase.Forward(ctx, session.ID, http.MethodGet, "exercises", nil, nil)

	s.Require().Error(err)
	s.True(apperrors.IsUpstream(err))
	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok)
	s.Equal(http.StatusUnauthorized, appErr.StatusCode)
	s.Equal(0, s.store.Len())
}

func (s *GatewayUsecaseTestSuite) TestForward_PassesUpstreamErrorsThrough() {
	ctx := context.Background()
	session := s.seedSession()
	s.upstream.On("Do", ctx, "upstream-token", http.MethodPost, "exercises", url.Values(nil), []byte(`{}`)).
		Return(nil, &repository.UpstreamError{StatusCode: http.StatusUnprocessableEntity, Message: "The name field is required."})

	_, err := s.usecase.Forward(ctx, session.ID, http.MethodPost, "exercises", nil, []byte(`{}`))

	s.Require().Error(err)
	appErr, ok := apperrors.AsAppError(err)
	s.Require().True(ok)
	s.Equal(http.StatusUnprocessableEntity, appErr.StatusCode)
	s.Equal("The name field is required.", appErr.StatusMessage)
	// Non-401 failures never touch the session.
	s.Equal(1, s.store.Len())
}

func (s *GatewayUsecaseTestSuite) TestCurrent_ReturnsLiveSession() {
	ctx := context.Background()
	session := s.seedSession()

	current, err := s.usecase.Current(ctx, session.ID)

	s.Require().NoError(err)
	s.Equal(session.ID, current.ID)

	_, err = s.usecase.Current(ctx, "missing")
	s.True(apperrors.IsUnauthenticated(err))
}

func (s *GatewayUsecaseTestSuite) TestSessionEvents_PublishedOnLifecycle() {
	ctx := context.Background()
	events := make(chan string, 8)
	for _, eventType := range []string{
		eventbus.EventTypeSessionCreated,
		eventbus.EventTypeSessionCleared,
	} {
		captured := eventType
		s.bus.Subscribe(captured, func(_ context.Context, event eventbus.Event) error {
			events <- event.Type()
			return nil
		})
	}

	payload := &repository.AuthPayload{AccessToken: "t", User: model.User{ID: 1, Email: "a@b.c"}}
	s.upstream.On("Login", ctx, "a@b.c", "pw").Return(payload, nil)
	s.upstream.On("Logout", ctx, "t").Return(nil)

	session, err := s.usecase.Login(ctx, usecase.LoginRequest{Email: "a@b.c", Password: "pw"})
	s.Require().NoError(err)
	s.Require().NoError(s.usecase.Logout(ctx, session.ID))

	received := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case eventType := <-events:
			received[eventType] = true
		case <-time.After(time.Second):
			s.T().Fatal("timeout waiting for session events")
		}
	}
	s.True(received[eventbus.EventTypeSessionCreated])
	s.True(received[eventbus.EventTypeSessionCleared])
}

func TestGatewayUsecaseTestSuite(t *testing.T) {
	suite.Run(t, new(GatewayUsecaseTestSuite))
}
