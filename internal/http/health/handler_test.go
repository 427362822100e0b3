package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/janisto/greeting-service/internal/service/greeting"
)

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	Handler(greeting.New(nil))(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.Code)
	}

	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var h Response
	if err := json.Unmarshal(resp.Body.Bytes(), &h); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if h.Status != "healthy" {
		t.Fatalf("expected status 'healthy', got %s", h.Status)
	}
	if h.GreetingsServed != 0 {
		t.Fatalf("expected 0 greetings served, got %d", h.GreetingsServed)
	}
}

func TestHealthReportsServedWithoutConsuming(t *testing.T) {
	counter := greeting.NewCounter()
	svc := greeting.New(counter)
	for range 3 {
		if _, err := svc.Greet(context.Background(), ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	handler := Handler(svc)
	for range 2 {
		resp := httptest.NewRecorder()
		handler(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

		var h Response
		if err := json.Unmarshal(resp.Body.Bytes(), &h); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if h.GreetingsServed != 3 {
			t.Fatalf("expected 3 greetings served, got %d", h.GreetingsServed)
		}
	}
	if counter.Current() != 3 {
		t.Fatalf("health check consumed an id: counter at %d", counter.Current())
	}
}

func TestHealthNilCounter(t *testing.T) {
	resp := httptest.NewRecorder()
	Handler(nil)(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.Code)
	}
}
