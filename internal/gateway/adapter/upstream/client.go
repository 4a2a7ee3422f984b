package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fitness-gateway/internal/gateway/domain/model"
	"fitness-gateway/internal/gateway/domain/repository"
	"fitness-gateway/internal/shared/logger"
	"fitness-gateway/internal/shared/metrics"
)

// Fixed upstream endpoints. The backend contract is not negotiable.
const (
	pathLogin          = "/login"
	pathRegister       = "/register"
	pathUser           = "/user"
	pathChangePassword = "/user/change-password"
	pathLogout         = "/logout"
)

// Client talks to the upstream backend over JSON/HTTP. It is the only place
// the bearer credential is attached to an outbound request.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics enables upstream request counting.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates an upstream client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.WithComponent("upstream"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// upstreamMessage is the error body shape the backend returns.
type upstreamMessage struct {
	Message string `json:"message"`
}

// userEnvelope wraps profile responses.
type userEnvelope struct {
	User model.User `json:"user"`
}

// Login authenticates against the upstream backend.
func (c *Client) Login(ctx context.Context, email, password string) (*repository.AuthPayload, error) {
	body := map[string]string{"email": email, "password": password}

	var payload repository.AuthPayload
	if err := c.doJSON(ctx, http.MethodPost, pathLogin, "", body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Register creates a new upstream account.
func (c *Client) Register(ctx context.Context, reg repository.RegisterPayload) (*repository.AuthPayload, error) {
	var payload repository.AuthPayload
	if err := c.doJSON(ctx, http.MethodPost, pathRegister, "", reg, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchUser retrieves the fresh identity for the credential.
func (c *Client) FetchUser(ctx context.Context, token string) (*model.User, error) {
	var envelope userEnvelope
	if err := c.doJSON(ctx, http.MethodGet, pathUser, token, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.User, nil
}

// UpdateUser forwards a partial identity update.
func (c *Client) UpdateUser(ctx context.Context, token string, update repository.ProfileUpdate) (*model.User, error) {
	var envelope userEnvelope
	if err := c.doJSON(ctx, http.MethodPut, pathUser, token, update, &envelope); err != nil {
		return nil, err
	}
	return &envelope.User, nil
}

// ChangePassword forwards a password change for the credential's account.
func (c *Client) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error {
	body := map[string]string{
		"current_password": currentPassword,
		"password":         newPassword,
	}
	return c.doJSON(ctx, http.MethodPost, pathChangePassword, token, body, nil)
}

// Logout invalidates the credential upstream.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, pathLogout, token, nil, nil)
}

// Do forwards an arbitrary request for the proxy path, returning the
// upstream response verbatim on success.
func (c *Client) Do(ctx context.Context, token, method, path string, query url.Values, body []byte) (*repository.UpstreamResponse, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var reader io.Reader
	if len(body) > 0 && method != http.MethodGet && method != http.MethodHead {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	c.observe(method, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &repository.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(respBody),
		}
	}

	return &repository.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}

// doJSON performs a JSON request against a fixed endpoint, decoding the
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build upstream request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	c.observe(method, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &repository.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) observe(method string, statusCode int) {
	if c.metrics != nil {
		c.metrics.ObserveUpstreamRequest(method, statusCode)
	}
}

// extractMessage pulls the upstream error message out of a JSON error body.
func extractMessage(body []byte) string {
	var msg upstreamMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return ""
	}
	return msg.Message
}

// Ensure Client implements the domain contract
var _ repository.UpstreamClient = (*Client)(nil)
