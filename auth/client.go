package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the small JSON client the identity adapters use to talk to
// provider APIs directly.
type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// StatusError is returned for any non-2xx answer. Body holds the raw
// response so callers can decode a provider's error envelope.
type StatusError struct {
	Status     string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %s: %s", e.Status, string(e.Body))
}

func (c *Client) GetJSONWithToken(ctx context.Context, endpoint, token string, query url.Values, out interface{}) error {
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Status: resp.Status, StatusCode: resp.StatusCode, Body: body}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
