// Package httpapi exposes chats and organization ingestion over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Headers carrying the caller's identity.
const (
	UserHeader = "X-Docqa-User"
	RoleHeader = "X-Docqa-Role"
)

// DefaultMaxUploadBytes bounds one multipart request.
const DefaultMaxUploadBytes = 110 << 20

// Ports are the driving ports the API serves.
type Ports struct {
	Identity driving.IdentityService

	// Sessions returns the long-lived manager for a user.
	Sessions func(domain.Identity) driving.SessionManager

	// Collections is optional; without it /api/ingest is not routed.
	Collections driving.CollectionService
}

// Server is the HTTP API server.
type Server struct {
	router         chi.Router
	ports          Ports
	apiKey         string
	maxUploadBytes int64

	// locks serialises requests per user so a load and the call that
	// follows it see the same open chat.
	locks sync.Map
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey requires "Authorization: Bearer <key>" on /api routes.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer creates and configures the HTTP server.
func NewServer(ports Ports, opts ...Option) *Server {
	s := &Server{
		ports:          ports,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(AuthMiddleware(s.apiKey))
		}
		r.Use(s.identityMiddleware)

		r.Get("/chats", s.handleListChats)
		r.Post("/chats", s.handleNewChat)
		r.Get("/chats/{chatID}", s.handleGetChat)
		r.Patch("/chats/{chatID}", s.handleRenameChat)
		r.Delete("/chats/{chatID}", s.handleDeleteChat)
		r.Post("/chats/{chatID}/files", s.handleUpload)
		r.Post("/chats/{chatID}/ask", s.handleAsk)

		if s.ports.Collections != nil {
			r.Post("/ingest", s.handleIngest)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lock serialises work for one user.
func (s *Server) lock(user string) func() {
	v, _ := s.locks.LoadOrStore(user, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
