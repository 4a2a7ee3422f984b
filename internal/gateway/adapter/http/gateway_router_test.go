package http_test

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gatewayhttp "fitness-gateway/internal/gateway/adapter/http"
	"fitness-gateway/internal/gateway/adapter/security"
	"fitness-gateway/internal/gateway/config"
	"fitness-gateway/internal/gateway/domain/model"
	"fitness-gateway/internal/gateway/domain/repository"
	"fitness-gateway/internal/gateway/usecase"
	apperrors "fitness-gateway/internal/shared/errors"
	"fitness-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock usecase
type mockGatewayUsecase struct {
	mock.Mock
}

func (m *mockGatewayUsecase) Login(ctx context.Context, req usecase.LoginRequest) (*model.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockGatewayUsecase) Register(ctx context.Context, req usecase.RegisterRequest) (*model.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockGatewayUsecase) Logout(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockGatewayUsecase) RefreshProfile(ctx context.Context, sessionID string) (*model.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockGatewayUsecase) UpdateProfile(ctx context.Context, sessionID string, update repository.ProfileUpdate) (*model.Session, error) {
	args := m.Called(ctx, sessionID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockGatewayUsecase) ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) error {
	args := m.Called(ctx, sessionID, currentPassword, newPassword)
	return args.Error(0)
}

func (m *mockGatewayUsecase) Forward(ctx context.Context, sessionID, method, path string, query url.Values, body []byte) (*repository.UpstreamResponse, error) {
	args := m.Called(ctx, sessionID, method, path, query, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.UpstreamResponse), args.Error(1)
}

func (m *mockGatewayUsecase) Current(ctx context.Context, sessionID string) (*model.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

var _ usecase.GatewayUsecaseInterface = (*mockGatewayUsecase)(nil)

type routerFixture struct {
	app   *fiber.App
	uc    *mockGatewayUsecase
	codec *security.CookieCodec
	cfg   *config.Config
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	cfg := &config.Config{
		CookieName:     "fg_session",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	}
	codec, err := security.NewCookieCodec("test-secret", "test-issuer", time.Hour)
	require.NoError(t, err)

	uc := &mockGatewayUsecase{}
	log := logger.NewLogger()
	handler := gatewayhttp.NewGatewayHTTPHandler(uc, codec, cfg, log)
	middleware := gatewayhttp.NewSessionMiddleware(uc, codec, cfg.CookieName, log)

	app := fiber.New()
	api := app.Group("/api")
	handler.SetupRoutes(api, middleware)

	return &routerFixture{app: app, uc: uc, codec: codec, cfg: cfg}
}

func (f *routerFixture) cookieFor(t *testing.T, sessionID string) *nethttp.Cookie {
	t.Helper()
	value, err := f.codec.Issue(sessionID)
	require.NoError(t, err)
	return &nethttp.Cookie{Name: f.cfg.CookieName, Value: value}
}

func decodeBody(t *testing.T, resp *nethttp.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func sessionCookie(resp *nethttp.Response, name string) *nethttp.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	f := newRouterFixture(t)
	session := &model.Session{ID: "sess-1", User: model.User{ID: 7, Email: "jo@example.com"}}
	f.uc.On("Login", mock.Anything, usecase.LoginRequest{Email: "jo@example.com", Password: "secret"}).
		Return(session, nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"jo@example.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	cookie := sessionCookie(resp, "fg_session")
	require.NotNil(t, cookie)
	sessionID, err := f.codec.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "jo@example.com", user["email"])
}

func TestLogin_InvalidCredentialsShape(t *testing.T) {
	f := newRouterFixture(t)
	f.uc.On("Login", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewInvalidCredentialsError(nethttp.StatusUnprocessableEntity, "These credentials do not match our records."))

	req := httptest.NewRequest(nethttp.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"jo@example.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(nethttp.StatusUnprocessableEntity), body["statusCode"])
	assert.Equal(t, "These credentials do not match our records.", body["statusMessage"])
	assert.Nil(t, sessionCookie(resp, "fg_session"))
}

func TestLogin_MalformedBody(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/auth/login", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	f.uc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestGetUser_SessionExpiredClearsCookie(t *testing.T) {
	f := newRouterFixture(t)
	f.uc.On("RefreshProfile", mock.Anything, "sess-1").Return(nil, apperrors.NewSessionExpiredError())

	req := httptest.NewRequest(nethttp.MethodGet, "/api/auth/user", nil)
	req.AddCookie(f.cookieFor(t, "sess-1"))

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	cookie := sessionCookie(resp, "fg_session")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()))
}

func TestGetUser_ReturnsProfile(t *testing.T) {
	f := newRouterFixture(t)
	session := &model.Session{ID: "sess-1", User: model.User{ID: 7, Name: "Jo"}}
	f.uc.On("RefreshProfile", mock.Anything, "sess-1").Return(session, nil)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/auth/user", nil)
	req.AddCookie(f.cookieFor(t, "sess-1"))

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "Jo", user["name"])
}

func TestGetUser_TamperedCookieIsAnonymous(t *testing.T) {
	f := newRouterFixture(t)
	f.uc.On("RefreshProfile", mock.Anything, "").Return(nil, apperrors.NewUnauthenticatedError())

	req := httptest.NewRequest(nethttp.MethodGet, "/api/auth/user", nil)
	req.AddCookie(&nethttp.Cookie{Name: "fg_session", Value: "tampered"})

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newRouterFixture(t)
	f.uc.On("Logout", mock.Anything, "sess-1").Return(nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(f.cookieFor(t, "sess-1"))

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	cookie := sessionCookie(resp, "fg_session")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}

func TestChangePassword_SuccessClearsCookie(t *testing.T) {
	f := newRouterFixture(t)
	f.uc.On("ChangePassword", mock.Anything, "sess-1", "old", "new").Return(nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/auth/change-password",
		strings.NewReader(`{"current_password":"old","password":"new"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(f.cookieFor(t, "sess-1"))

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	cookie := sessionCookie(resp, "fg_session")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}

func TestUpdateUser_ForwardsPartialUpdate(t *testing.T) {
	f := newRouterFixture(t)
	session := &model.Session{ID: "sess-1", User: model.User{ID: 7, Name: "Renamed"}}
	f.uc.On("UpdateProfile", mock.Anything, "sess-1", repository.ProfileUpdate{Name: "Renamed"}).
		Return(session, nil)

	req := httptest.NewRequest(nethttp.MethodPut, "/api/auth/user",
		strings.NewReader(`{"name":"Renamed"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(f.cookieFor(t, "sess-1"))

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "Renamed", user["name"])
}

func TestProxy_ForwardsMethodPathQueryBody(t *testing.T) {
	f := newRouterFixture(t)
	resp := &repository.UpstreamResponse{StatusCode: nethttp.StatusCreated, Body: []byte(`{"id":1}`)}
	f.uc.On("Forward", mock.Anything, "sess-1", nethttp.MethodPost, "exercises",
		url.Values{"page": []string{"2"}}, []byte(`{"name":"Squat"}`)).Return(resp, nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/proxy/exercises?page=2",
		strings.NewReader(`{"name":"Squat"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(f.cookieFor(t, "sess-1"))

	httpResp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusCreated, httpResp.StatusCode)

	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(raw))
}

func TestProxy_GetHasNoBody(t *testing.T) {
	f := newRouterFixture(t)
	resp := &repository.UpstreamResponse{StatusCode: nethttp.StatusOK, Body: []byte(`{"data":[]}`)}
	f.uc.On("Forward", mock.Anything, "", nethttp.MethodGet, "exercises", url.Values{}, []byte(nil)).
		Return(resp, nil)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/proxy/exercises", nil)

	httpResp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, httpResp.StatusCode)
}

func TestProxy_UpstreamErrorShape(t *testing.T) {
	f := newRouterFixture(t)
	f.uc.On("Forward", mock.Anything, "", nethttp.MethodGet, "missing", url.Values{}, []byte(nil)).
		Return(nil, apperrors.NewUpstreamError(nethttp.StatusNotFound, "Not found"))

	req := httptest.NewRequest(nethttp.MethodGet, "/api/proxy/missing", nil)

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Not found", body["statusMessage"])
}
