package repository

import (
	"context"
	"fmt"
	"net/url"

	"fitness-gateway/internal/gateway/domain/model"
)

// UpstreamError carries a non-2xx upstream response back to the caller.
// StatusCode is the upstream HTTP status; Message is the upstream error
// message where one was given.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

// UpstreamResponse is a verbatim upstream success response for the proxy
// path: status plus raw JSON body.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

// AuthPayload is the upstream response shape for login and register.
type AuthPayload struct {
	AccessToken string     `json:"access_token"`
	User        model.User `json:"user"`
}

// RegisterPayload is the upstream request shape for registration.
type RegisterPayload struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ProfileUpdate is a partial identity update forwarded to the upstream.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UpstreamClient is the gateway's view of the upstream backend. All methods
// return *UpstreamError for non-2xx responses; any other error is a
// transport failure with no upstream status attached.
type UpstreamClient interface {
	Login(ctx context.Context, email, password string) (*AuthPayload, error)
	Register(ctx context.Context, payload RegisterPayload) (*AuthPayload, error)
	FetchUser(ctx context.Context, token string) (*model.User, error)
	UpdateUser(ctx context.Context, token string, update ProfileUpdate) (*model.User, error)
	ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error
	Logout(ctx context.Context, token string) error

	// Do forwards an arbitrary request with the given credential attached,
	// for the catch-all proxy path.
	Do(ctx context.Context, token, method, path string, query url.Values, body []byte) (*UpstreamResponse, error)
}
