package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/khidma-co/khidma/internal/config"
	"github.com/khidma-co/khidma/internal/notify"
)

type gateway struct {
	mu       sync.Mutex
	statuses []int
	requests []*http.Request
	bodies   []map[string]string
	keys     []string
}

func newGateway(t *testing.T, statuses ...int) (*gateway, *httptest.Server) {
	t.Helper()
	g := &gateway{statuses: statuses}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()

		var body map[string]string
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)

		g.requests = append(g.requests, r)
		g.bodies = append(g.bodies, body)
		g.keys = append(g.keys, r.Header.Get("X-Idempotency-Key"))

		status := http.StatusOK
		if len(g.statuses) > 0 {
			status = g.statuses[0]
			g.statuses = g.statuses[1:]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return g, srv
}

func newClient(t *testing.T, baseURL string) notify.Notifier {
	t.Helper()
	cfg := &config.NotifyConfig{
		Enabled:    true,
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Sender:     "+97440000000",
		Timeout:    "5s",
		MaxElapsed: "3s",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return notify.New(cfg, logger)
}

func TestSendDeliversPayload(t *testing.T) {
	g, srv := newGateway(t)
	client := newClient(t, srv.URL)

	if err := client.Send(context.Background(), "+97455512345", "Your request has been received."); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.requests) != 1 {
		t.Fatalf("requests: got %d, want 1", len(g.requests))
	}
	if got := g.requests[0].URL.Path; got != "/messages" {
		t.Errorf("path: got %s, want /messages", got)
	}
	if got := g.requests[0].Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("authorization: got %s", got)
	}
	if got := g.bodies[0]["to"]; got != "+97455512345" {
		t.Errorf("to: got %s", got)
	}
	if got := g.bodies[0]["from"]; got != "+97440000000" {
		t.Errorf("from: got %s", got)
	}
	if g.keys[0] == "" {
		t.Error("idempotency key should be set")
	}
}

func TestSendRetriesServerErrorsWithStableKey(t *testing.T) {
	g, srv := newGateway(t, http.StatusBadGateway, http.StatusInternalServerError)
	client := newClient(t, srv.URL)

	if err := client.Send(context.Background(), "+97455512345", "hello"); err != nil {
		t.Fatalf("send should succeed after retries: %v", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.keys) != 3 {
		t.Fatalf("attempts: got %d, want 3", len(g.keys))
	}
	for i, key := range g.keys {
		if key != g.keys[0] {
			t.Errorf("attempt %d used key %s, want %s", i, key, g.keys[0])
		}
	}
}

func TestSendClientErrorIsPermanent(t *testing.T) {
	g, srv := newGateway(t, http.StatusUnprocessableEntity)
	client := newClient(t, srv.URL)

	if err := client.Send(context.Background(), "bad-number", "hello"); err == nil {
		t.Fatal("expected error for rejected message")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.requests) != 1 {
		t.Errorf("4xx should not be retried: got %d attempts", len(g.requests))
	}
}

func TestSendDistinctMessagesUseDistinctKeys(t *testing.T) {
	g, srv := newGateway(t)
	client := newClient(t, srv.URL)

	ctx := context.Background()
	if err := client.Send(ctx, "+97455512345", "first"); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if err := client.Send(ctx, "+97455512345", "second"); err != nil {
		t.Fatalf("second send failed: %v", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.keys[0] == g.keys[1] {
		t.Error("separate messages should not share an idempotency key")
	}
}

func TestDisabledConfigYieldsNoopNotifier(t *testing.T) {
	cfg := &config.NotifyConfig{Enabled: false}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	n := notify.New(cfg, logger)
	if err := n.Send(context.Background(), "+97455512345", "hello"); err != nil {
		t.Errorf("noop notifier should never fail: %v", err)
	}
}
