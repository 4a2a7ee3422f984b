package http_test

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	gatewayhttp "fitness-gateway/internal/gateway/adapter/http"
	"fitness-gateway/internal/gateway/adapter/security"
	gwmodel "fitness-gateway/internal/gateway/domain/model"
	"fitness-gateway/internal/gateway/domain/repository"
	"fitness-gateway/internal/gateway/usecase"
	menuhttp "fitness-gateway/internal/menu/adapter/http"
	"fitness-gateway/internal/menu/domain/model"
	"fitness-gateway/internal/menu/engine"
	"fitness-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSessionUsecase serves one session for one ID without an upstream.
type fixedSessionUsecase struct {
	usecase.GatewayUsecaseInterface
	session *gwmodel.Session
}

func (f *fixedSessionUsecase) Current(_ context.Context, sessionID string) (*gwmodel.Session, error) {
	if f.session != nil && f.session.ID == sessionID {
		return f.session, nil
	}
	return nil, repository.ErrSessionNotFound
}

func testTree() model.Items {
	return model.Flat(
		model.Item{ID: "dashboard", Label: "Dashboard", To: "/"},
		model.Item{
			ID:          "workouts",
			Label:       "Workouts",
			Description: "Training",
			To:          "/workouts",
			Children: []model.Node{
				model.Item{ID: "exercises", Label: "Exercises", To: "/workouts/exercises"},
			},
		},
		model.Item{ID: "crm", Label: "CRM", To: "/crm", Permissions: []string{"crm_access"}},
	)
}

type menuFixture struct {
	app   *fiber.App
	codec *security.CookieCodec
}

func newMenuFixture(t *testing.T, session *gwmodel.Session) *menuFixture {
	t.Helper()

	codec, err := security.NewCookieCodec("test-secret", "test-issuer", time.Hour)
	require.NoError(t, err)

	log := logger.NewLogger()
	uc := &fixedSessionUsecase{session: session}
	middleware := gatewayhttp.NewSessionMiddleware(uc, codec, "fg_session", log)

	handler := menuhttp.NewMenuHTTPHandler(engine.Config{Items: testTree()}, nil, log)

	app := fiber.New()
	handler.SetupRoutes(app.Group("/api"), middleware)

	return &menuFixture{app: app, codec: codec}
}

func (f *menuFixture) request(t *testing.T, target, sessionID string) *nethttp.Response {
	t.Helper()
	req := httptest.NewRequest(nethttp.MethodGet, target, nil)
	if sessionID != "" {
		value, err := f.codec.Issue(sessionID)
		require.NoError(t, err)
		req.AddCookie(&nethttp.Cookie{Name: "fg_session", Value: value})
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

type menuPayload struct {
	Items       []json.RawMessage `json:"items"`
	ActiveKey   string            `json:"activeKey"`
	Expanded    []string          `json:"expanded"`
	Breadcrumbs []model.Item      `json:"breadcrumbs"`
}

func decodeMenu(t *testing.T, resp *nethttp.Response) menuPayload {
	t.Helper()
	defer resp.Body.Close()
	var payload menuPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func itemIDs(t *testing.T, raw []json.RawMessage) []string {
	t.Helper()
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		var item struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(r, &item))
		ids = append(ids, item.ID)
	}
	return ids
}

func TestGetMenu_AnonymousViewerIsFiltered(t *testing.T) {
	f := newMenuFixture(t, nil)

	resp := f.request(t, "/api/menu/", "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	payload := decodeMenu(t, resp)
	assert.Equal(t, []string{"dashboard", "workouts"}, itemIDs(t, payload.Items))
	assert.Empty(t, payload.ActiveKey)
}

func TestGetMenu_SessionViewerSeesGatedEntries(t *testing.T) {
	session := &gwmodel.Session{
		ID:   "sess-1",
		User: gwmodel.User{ID: 7, Permissions: []string{"crm_access"}},
	}
	f := newMenuFixture(t, session)

	resp := f.request(t, "/api/menu/", "sess-1")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	payload := decodeMenu(t, resp)
	assert.Contains(t, itemIDs(t, payload.Items), "crm")
}

func TestGetMenu_PathResolvesActiveAndExpands(t *testing.T) {
	f := newMenuFixture(t, nil)

	target := "/api/menu/?path=" + url.QueryEscape("/workouts/exercises")
	resp := f.request(t, target, "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	payload := decodeMenu(t, resp)
	assert.Equal(t, "workouts", payload.ActiveKey)
	require.NotEmpty(t, payload.Breadcrumbs)
	assert.Equal(t, "workouts", payload.Breadcrumbs[len(payload.Breadcrumbs)-1].ID)
}

func TestSearchMenu_FiltersByQuery(t *testing.T) {
	f := newMenuFixture(t, nil)

	resp := f.request(t, "/api/menu/search?q=exer", "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	var payload struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, []string{"workouts"}, itemIDs(t, payload.Items))
}

func TestSearchMenu_RespectsCapabilities(t *testing.T) {
	f := newMenuFixture(t, nil)

	resp := f.request(t, "/api/menu/search?q=crm", "")
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	var payload struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Empty(t, payload.Items)
}
