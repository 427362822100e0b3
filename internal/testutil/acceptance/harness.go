// Package acceptance drives a real greeting server over HTTP for black-box
// tests: start it on a random port, issue requests, assert on responses.
package acceptance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/janisto/greeting-service/internal/config"
	applog "github.com/janisto/greeting-service/internal/platform/logging"
	"github.com/janisto/greeting-service/internal/server"
	greetingsvc "github.com/janisto/greeting-service/internal/service/greeting"
)

const requestTimeout = 5 * time.Second

// Harness is a running server plus a client pointed at it.
type Harness struct {
	port   int
	client *http.Client
}

// Greeting is the decoded greeting body.
type Greeting struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// Result is a completed response with its body read.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
}

// Start runs a server with a fresh counter on a random loopback port and
// stops it when the test ends. Host and port in cfg are overridden.
func Start(t testing.TB, cfg config.Config) *Harness {
	t.Helper()

	cfg.Host = "127.0.0.1"
	cfg.Port = "0"
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = config.Default().ShutdownTimeout
	}
	srv := server.New(cfg, greetingsvc.New(greetingsvc.NewCounter()), server.WithVersion("acceptance"))

	ln, err := srv.Listen()
	if err != nil {
		t.Fatalf("start server: %v", err)
	}
	addr, err := srv.Addr()
	if err != nil {
		t.Fatalf("server address: %v", err)
	}

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(ln)
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("shutdown server: %v", err)
		}
		if err := <-served; err != nil {
			t.Errorf("serve: %v", err)
		}
	})

	applog.LogInfo(context.Background(), "acceptance server started",
		zap.Int("port", addr.Port),
		zap.Int("pid", os.Getpid()),
	)
	t.Logf("server listening on port %d (pid %d)", addr.Port, os.Getpid())

	return &Harness{
		port:   addr.Port,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Port is the bound TCP port.
func (h *Harness) Port() int {
	return h.port
}

// BaseURL is the server root, without a trailing slash.
func (h *Harness) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", h.port)
}

// Get issues GET to path.
func (h *Harness) Get(t testing.TB, path string) *Result {
	t.Helper()
	res, err := h.Fetch(path)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return res
}

// Fetch issues GET to path and returns transport errors instead of failing
// the test, so it is safe to call from spawned goroutines.
func (h *Harness) Fetch(path string) (*Result, error) {
	return h.fetch(h.BaseURL() + path)
}

// GetWithParam issues GET to path with a single URL-encoded query parameter.
func (h *Harness) GetWithParam(t testing.TB, path, key, value string) *Result {
	t.Helper()
	q := url.Values{}
	q.Set(key, value)
	res, err := h.fetch(h.BaseURL() + path + "?" + q.Encode())
	if err != nil {
		t.Fatalf("%v", err)
	}
	return res
}

func (h *Harness) fetch(target string) (*Result, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of GET %s: %w", target, err)
	}
	return &Result{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// ExpectStatus fails the test unless the response status is code.
func (r *Result) ExpectStatus(t testing.TB, code int) *Result {
	t.Helper()
	if r.Status != code {
		t.Fatalf("expected status %d, got %d: %s", code, r.Status, r.Body)
	}
	return r
}

// ExpectContent fails the test unless the body's content field equals want.
func (r *Result) ExpectContent(t testing.TB, want string) *Result {
	t.Helper()
	if got := r.Greeting(t).Content; got != want {
		t.Fatalf("expected content %q, got %q", want, got)
	}
	return r
}

// ExpectKeys fails the test unless the body is a JSON object with exactly
// the given top-level keys.
func (r *Result) ExpectKeys(t testing.TB, keys ...string) *Result {
	t.Helper()
	var body map[string]json.RawMessage
	r.Decode(t, &body)
	if len(body) != len(keys) {
		t.Fatalf("expected keys %v, got body %s", keys, r.Body)
	}
	for _, k := range keys {
		if _, ok := body[k]; !ok {
			t.Fatalf("expected key %q, got body %s", k, r.Body)
		}
	}
	return r
}

// Greeting decodes the body as a greeting.
func (r *Result) Greeting(t testing.TB) Greeting {
	t.Helper()
	var g Greeting
	r.Decode(t, &g)
	return g
}

// Decode unmarshals the JSON body into v.
func (r *Result) Decode(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("decode body %q: %v", r.Body, err)
	}
}
