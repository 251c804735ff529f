package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orangehats/orangehats/internal/ipfilter"
)

// Server serves Prometheus metrics on a separate listener
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the metrics listener; only addresses passing filter may scrape
func NewServer(m *Metrics, addr, path string, filter *ipfilter.Filter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	handler := promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{EnableOpenMetrics: true})
	mux.Handle(path, filter.Middleware(handler))

	// no IP filtering, for load balancers
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if filter.Enabled() {
		logger.Info("metrics IP filtering enabled")
	}

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		logger:     logger,
	}
}

// Handler exposes the mux for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server stops; a clean shutdown returns nil
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting metrics server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}
