// Package authzhttp is the loopback HTTP transport adapter for the
// authorization server (spec.md §4.4): listens on 127.0.0.1 with an
// OS-assigned port, authenticates every request with a random bearer
// secret, and dispatches the four routes to the application service.
package authzhttp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/latchagent/latch-core/internal/service"
)

// maxBodyBytes is the request body cap (spec.md §4.4).
const maxBodyBytes = 64 * 1024

// Server is the loopback authorization HTTP server.
type Server struct {
	svc    *service.AuthzService
	logger *slog.Logger
	secret string

	listener   net.Listener
	httpServer *http.Server
	metrics    *Metrics

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// New binds a loopback listener on an OS-assigned port and generates a
// fresh 16-byte shared secret. The server is not yet accepting
// connections until Start is called.
func New(svc *service.AuthzService, reg prometheus.Registerer, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	secretBytes := make([]byte, 16)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("authzhttp: failed to generate shared secret: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("authzhttp: failed to listen on loopback: %w", err)
	}

	s := &Server{
		svc:      svc,
		logger:   logger,
		secret:   hex.EncodeToString(secretBytes),
		listener: ln,
		metrics:  NewMetrics(reg),
		conns:    make(map[net.Conn]struct{}),
	}

	s.httpServer = &http.Server{
		Handler:   s.routes(),
		ConnState: s.trackConnState,
	}

	return s, nil
}

// Port returns the OS-assigned loopback port other local components
// (the harness config generator, the MCP wrapper launcher) inject into
// spawned children.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Secret returns the bearer secret spawned children authenticate with.
func (s *Server) Secret() string {
	return s.secret
}

// Start begins serving in the background. Call Stop to shut down.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("authorization server stopped unexpectedly", "error", err)
		}
	}()
}

// feedCloser is the optional capability a ui.Publisher implementation
// may expose to tear down every subscriber across all sessions at once.
type feedCloser interface {
	CloseAll()
}

// Stop resolves every pending approval as deny, closes the listener, and
// forcibly tears down any idle connections (spec.md §4.4 Shutdown).
func (s *Server) Stop(ctx context.Context) error {
	s.svc.Coordinator.Stop()
	if c, ok := s.svc.UIFeed.(feedCloser); ok {
		c.CloseAll()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)

	s.connsMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.conns = make(map[net.Conn]struct{})
	s.connsMu.Unlock()

	if err != nil {
		// Shutdown's grace period elapsed with connections still parked on
		// approvals that Stop() above already resolved; force-close and
		// report success since every approval has a final decision.
		_ = s.httpServer.Close()
		return nil
	}
	return nil
}

func (s *Server) trackConnState(c net.Conn, state http.ConnState) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	switch state {
	case http.StateNew, http.StateActive, http.StateIdle:
		s.conns[c] = struct{}{}
	case http.StateClosed, http.StateHijacked:
		delete(s.conns, c)
	}
}
