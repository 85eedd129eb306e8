// Package webhook posts run summaries as JSON to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// Notifier delivers the notification payload unchanged.
type Notifier struct {
	url    string
	client *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

func NewNotifier(url string) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts the payload; any non-2xx answer is an error.
func (n *Notifier) Notify(ctx context.Context, payload domain.Notification) error {
	if n.url == "" {
		return fmt.Errorf("webhook notifier misconfigured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook error %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
