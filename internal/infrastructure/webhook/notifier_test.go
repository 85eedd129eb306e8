package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ArticleFactory/internal/domain"
)

func TestNotifyPostsJSON(t *testing.T) {
	t.Parallel()

	var got domain.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	payload := domain.Notification{
		RunID:     "run-1",
		Text:      "Content pipeline run run-1",
		Generated: 2,
		Highlights: []domain.NotificationItem{
			{Kind: "generated", Slug: "best-wine-with-salmon", Category: "pairings", URL: "https://example.com/pairings/best-wine-with-salmon"},
		},
	}
	if err := NewNotifier(srv.URL).Notify(context.Background(), payload); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.RunID != "run-1" || got.Generated != 2 || len(got.Highlights) != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestNotifyFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL).Notify(context.Background(), domain.Notification{})
	if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected 502 error, got %v", err)
	}
	if err := NewNotifier("").Notify(context.Background(), domain.Notification{}); err == nil {
		t.Fatal("expected misconfigured error")
	}
}
