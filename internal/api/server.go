// Package api serves fee quotes, eligibility checks, and cover
// identification over HTTP.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/longbox/internal/eligibility"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/Veraticus/longbox/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 1 << 20
)

// Deps are the collaborators the handlers call into.
// Identifier may be nil when no metadata service is configured.
// A non-nil TLS config makes ListenAndServe serve HTTPS.
type Deps struct {
	Store      service.Storage
	Calculator *fees.Calculator
	Identifier *scanner.Identifier
	Logger     *slog.Logger
	TLS        *tls.Config
	Policy     eligibility.Policy
}

// Server is the longbox HTTP API.
type Server struct {
	store      service.Storage
	calc       *fees.Calculator
	identifier *scanner.Identifier
	logger     *slog.Logger
	tls        *tls.Config
	router     chi.Router
	policy     eligibility.Policy
	now        func() time.Time
}

// NewServer wires the routes for deps.
func NewServer(deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Calculator == nil {
		return nil, fmt.Errorf("fee calculator is required")
	}
	if err := deps.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid eligibility policy: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		store:      deps.Store,
		calc:       deps.Calculator,
		identifier: deps.Identifier,
		logger:     deps.Logger,
		tls:        deps.TLS,
		policy:     deps.Policy,
		now:        time.Now,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/fees/quote", s.handleFeeQuote)
		r.Get("/sellers/{sellerID}/eligibility", s.handleEligibility)
		r.Post("/scanner/queries", s.handleQueries)
		r.Post("/scanner/identify", s.handleIdentify)
		r.Get("/matches/{hash}", s.handleMatch)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.tls,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.tls != nil {
			s.logger.Info("API server listening", "addr", addr, "tls", true)
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		s.logger.Info("API server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
