package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/greeting-service/internal/config"
	"github.com/janisto/greeting-service/internal/http/health"
	"github.com/janisto/greeting-service/internal/http/v1/routes"
	applog "github.com/janisto/greeting-service/internal/platform/logging"
	appmiddleware "github.com/janisto/greeting-service/internal/platform/middleware"
	"github.com/janisto/greeting-service/internal/platform/respond"
	greetingsvc "github.com/janisto/greeting-service/internal/service/greeting"
)

const (
	title          = "Greeting API"
	maxRequestBody = 1 << 20 // 1 MB
)

// ErrNotListening is returned by Serve and Addr before Listen succeeded.
var ErrNotListening = errors.New("server is not listening")

// Server is the greeting HTTP server.
type Server struct {
	cfg     config.Config
	version string
	router  chi.Router
	api     huma.API
	http    *http.Server

	mu sync.Mutex
	ln net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the API version published in the OpenAPI document.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New builds the router, middleware stack and huma API for svc.
// A nil svc gets a greeting service with a fresh counter.
func New(cfg config.Config, svc greetingsvc.Service, opts ...Option) *Server {
	if svc == nil {
		svc = greetingsvc.New(nil)
	}
	if cfg.DocsPath == "" {
		cfg.DocsPath = config.Default().DocsPath
	}
	s := &Server{cfg: cfg, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}

	respond.Install()

	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	router.Use(
		appmiddleware.Security(cfg.DocsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// Trust X-Forwarded-For only behind a proxy that rewrites it.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxRequestBody),
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.WriteRedirect(w, r, cfg.DocsPath, http.StatusFound)
	})
	router.Get("/health", health.Handler(svc))

	api := humachi.New(router, humaConfig(s.version, cfg.DocsPath))
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, addCBORContent)

	routes.Register(api, svc)

	s.router = router
	s.api = api
	s.http = &http.Server{
		Handler:           router,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
	return s
}

// humaConfig is huma's default config without the schema-link hook, which
// would add a $schema field to every response body. The greeting body is
// exactly {id, content}.
func humaConfig(version, docsPath string) huma.Config {
	cfg := huma.DefaultConfig(title, version)
	cfg.DocsPath = docsPath
	cfg.CreateHooks = nil
	return cfg
}

// addCBORContent mirrors every JSON media type in the OpenAPI document as CBOR.
func addCBORContent(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}

// Handler returns the fully wired router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API exposes the huma API, mainly for its OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Listen binds the configured address. Port 0 picks a free port.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return ln, nil
}

// Addr reports the bound address after Listen.
func (s *Server) Addr() (*net.TCPAddr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil, ErrNotListening
	}
	addr, ok := s.ln.Addr().(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected listener address %T", s.ln.Addr())
	}
	return addr, nil
}

// Serve accepts connections on ln until Shutdown. A clean shutdown returns nil.
func (s *Server) Serve(ln net.Listener) error {
	if ln == nil {
		return ErrNotListening
	}
	applog.LogInfo(context.Background(), "server listening", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Run listens, serves and shuts down gracefully once ctx is cancelled,
// waiting at most cfg.ShutdownTimeout for in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		applog.LogInfo(context.Background(), "shutdown signal received")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.Default().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil {
		return err
	}
	applog.LogInfo(context.Background(), "server exited")
	return nil
}
