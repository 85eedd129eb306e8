// Package catalog validates recommendation names against an external
// product catalog over HTTP.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ArticleFactory/internal/config"
	"ArticleFactory/internal/ports"
)

// errUnknown marks a 404 from the lookup endpoint.
var errUnknown = errors.New("unknown entity")

// Client talks to the catalog lookup service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.FactOracle = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.OracleConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Exists asks the catalog whether name is a known entity. A 404 answers no;
// any other failure is returned as an error.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	if c.endpoint == "" {
		return false, fmt.Errorf("catalog endpoint not configured")
	}

	var resp struct {
		Exists bool `json:"exists"`
	}
	err := c.post(ctx, "/lookup", map[string]string{"name": name}, &resp)
	switch {
	case errors.Is(err, errUnknown):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup %q: %w", name, err)
	}
	return resp.Exists, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return errUnknown
	default:
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
