// Package webhook exposes the HTTP ingress: a message endpoint that
// channel integrations post customer messages to, and a health check.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tidybook/tidybook/internal/assistant"
	"github.com/tidybook/tidybook/internal/logging"
)

// Processor handles one incoming customer message.
type Processor interface {
	Process(ctx context.Context, req assistant.Request) (*assistant.Result, error)
}

// Server is the webhook HTTP server.
type Server struct {
	httpServer *http.Server
	proc       Processor
	log        *logging.Logger
}

// NewServer creates the webhook server listening on addr.
func NewServer(addr string, proc Processor, log *logging.Logger) *Server {
	s := &Server{
		proc: proc,
		log:  log.Sub("webhook"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", s.handleMessage)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start runs the server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("webhook server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("webhook server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down webhook server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook shutdown: %w", err)
	}
	return nil
}

// Handler returns the server's HTTP handler. Used in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
