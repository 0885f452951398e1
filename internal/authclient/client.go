// Package authclient talks to the external authentication provider. The
// wizard's guard only ever asks whether a user is present.
package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"exhibitforms/pkg/domain"
)

// Client calls the auth provider over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs an auth provider client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Me validates the bearer token and returns the current user.
func (c *Client) Me(ctx context.Context, token string) (domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return domain.User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.User{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return domain.User{}, &APIError{Status: resp.StatusCode, Message: resp.Status}
	}
	var user domain.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// APIError represents an auth provider error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}
