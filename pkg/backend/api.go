package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// UserProfile is the immutable profile snapshot the backend returns once a
// session is authenticated. It is replaced wholesale or cleared, never
// partially updated.
type UserProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	VerifiedEmail bool   `json:"verified_email"`
}

// Status is the backend's answer to an authorization status check.
type Status struct {
	Authenticated bool         `json:"authenticated"`
	User          *UserProfile `json:"user"`
}

// Client talks to the chatbot backend's auth endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With().Str("component", "backend").Logger(),
	}
}

// Status queries GET /auth/status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/status", nil)
	if err != nil {
		return Status{}, errors.Wrap(err, "build status request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, errors.Wrap(err, "auth status check")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Status{}, errors.Errorf("auth status check: unexpected status %d", resp.StatusCode)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, errors.Wrap(err, "decode auth status")
	}
	return st, nil
}

// Logout invalidates the backend session via POST /auth/logout.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return errors.Wrap(err, "build logout request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "logout")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("logout: unexpected status %d", resp.StatusCode)
	}
	c.logger.Info().Msg("backend session invalidated")
	return nil
}
