// Package drone is the drone-control collaborator behind the
// vector_drone_op tool: it lets the live session start and stop
// roaming, read vehicle status and speak through the drone.
package drone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the drone-control service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient overrides the default instrumented client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SetRoaming starts or stops autonomous roaming.
func (c *Client) SetRoaming(ctx context.Context, active bool) error {
	payload := struct {
		Active bool `json:"active"`
	}{Active: active}

	_, err := c.post(ctx, "/v1/roam", payload)
	return err
}

// Status returns the vehicle status as the service reports it, as a
// JSON-encoded string for the session to read back.
func (c *Client) Status(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/status", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach drone-control service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("drone-control service returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read status response: %w", err)
	}

	// Re-encode through a generic map so a malformed body fails here
	// rather than in the session.
	var status map[string]any
	if err := json.Unmarshal(body, &status); err != nil {
		return "", fmt.Errorf("malformed status response: %w", err)
	}
	encoded, err := json.Marshal(status)
	if err != nil {
		return "", fmt.Errorf("failed to encode status: %w", err)
	}
	return string(encoded), nil
}

// Say makes the drone speak the given text.
func (c *Client) Say(ctx context.Context, text string) error {
	payload := struct {
		Text string `json:"text"`
	}{Text: text}

	_, err := c.post(ctx, "/v1/say", payload)
	return err
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach drone-control service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drone-control service returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
