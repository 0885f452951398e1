// Package timeclient calls the remote time authority. The wizard trusts the
// returned timestamp's lexical shape (YYYY-MM-DDTHH-mm-ss-SSS) verbatim.
package timeclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Client calls the time authority over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a time authority client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// FilenameTimestamp fetches the server-formatted timestamp used for upload
// folder names.
func (c *Client) FilenameTimestamp(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/time/filename-format", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", errors.New("time authority: " + resp.Status)
	}
	var body struct {
		Data string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if strings.TrimSpace(body.Data) == "" {
		return "", errors.New("time authority: empty timestamp")
	}
	return body.Data, nil
}
