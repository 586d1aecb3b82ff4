// Package mcp serves docqa over the Model Context Protocol. An assistant
// connected to it can start chats, upload documents and ask questions on
// behalf of one user.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

const Version = "0.1.0"

var (
	ErrMissingSessions = errors.New("mcp: session manager is required")
	ErrMissingIdentity = errors.New("mcp: identity is required")
)

const instructions = `docqa answers questions from documents the user uploads.
Start with new_chat (optionally passing local file paths) or upload_documents,
then call ask. Answers cite the files they came from; when the documents do
not cover a question, the answer says so instead of guessing.`

// Ports are the driving ports the server calls.
type Ports struct {
	Session func(domain.Identity) driving.SessionManager

	// Collections is set only for organization admins, and enables the
	// ingest_documents tool.
	Collections driving.CollectionService

	KnowledgeBases driving.KnowledgeBaseService
}

func (p *Ports) Validate() error {
	if p == nil || p.Session == nil {
		return ErrMissingSessions
	}
	return nil
}

// Server acts for a single user. Calls that change the open chat run one
// at a time.
type Server struct {
	ports    *Ports
	identity domain.Identity
	server   *mcp.Server
	mu       sync.Mutex
}

func NewServer(ports *Ports, identity domain.Identity) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if identity.User == "" {
		return nil, ErrMissingIdentity
	}

	s := &Server{
		ports:    ports,
		identity: identity,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "docqa", Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

func (s *Server) sessions() driving.SessionManager {
	return s.ports.Session(s.identity)
}

// exclusive holds the server lock until the returned func is called.
func (s *Server) exclusive() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
}

// RunHTTP serves Handler on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcp: listening on %s", addr)
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
