// Package httpserver runs the small HTTP sidecars: the liveness responder used by
// the hosting platform and the optional Prometheus endpoint.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// LivenessRouter answers GET / with 200 "OK" and everything else with 404.
func LivenessRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.NotFound(http.NotFound)
	r.MethodNotAllowed(http.NotFound)
	return r
}

// MetricsRouter exposes the collectors of gatherer on /metrics.
func MetricsRouter(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// Server wraps http.Server with context-driven shutdown.
type Server struct {
	srv *http.Server
	log logrus.FieldLogger
}

// New creates a Server listening on addr.
func New(addr string, handler http.Handler, logger logrus.FieldLogger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		log: logger.WithFields(logrus.Fields{"component": "http", "addr": addr}),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.log.WithError(err).Error("HTTP server stopped")
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Error("HTTP server graceful shutdown failed")
		return err
	}
	s.log.Info("HTTP server stopped")
	return nil
}
