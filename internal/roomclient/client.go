// Package roomclient calls the remote room-creation procedure. The wizard
// consumes nothing from the response beyond success or failure.
package roomclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"exhibitforms/pkg/domain"
)

// Request is the callable's input contract.
type Request struct {
	FormID          string             `json:"formId"`
	GeneratorType   string             `json:"generatorType"`
	RoomGeneratorID string             `json:"roomGeneratorId"`
	RoomWaiting     domain.RoomWaiting `json:"roomWaiting"`
}

// Client calls the room-creation procedure over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a room procedure client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetRoomWaiting submits the composed room payload.
func (c *Client) SetRoomWaiting(ctx context.Context, r Request) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode room waiting: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rooms/waiting", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: resp.Status}
	}
	return nil
}

// APIError represents a room procedure error response. Attempts failing with
// it are retryable by the user.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}
