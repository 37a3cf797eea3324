// Package httpapi serves the optional local control API.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/dispatch"
	"github.com/stow-dashboard/stow-desktop/internal/observability"
	"github.com/stow-dashboard/stow-desktop/internal/reqcontext"
)

// APIKeyHeader carries the control token on /api/v1 requests
const APIKeyHeader = "X-API-Key"

const (
	apiTimeout        = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Controller is the launcher surface exposed over HTTP
type Controller interface {
	Submit(cmd dispatch.Command, source reqcontext.Source) bool
	Status() Status
}

// Server provides the control API endpoints with a chi router
type Server struct {
	controller Controller
	logger     *zap.SugaredLogger
	router     *chi.Mux
	metrics    *observability.Metrics
	health     *observability.Health
	apiKey     string
}

// NewServer creates the control API. metrics and health may be nil. Every
// /api/v1 request must present apiKey; an empty apiKey rejects them all.
func NewServer(controller Controller, logger *zap.SugaredLogger, metrics *observability.Metrics, health *observability.Health, apiKey string) *Server {
	s := &Server{
		controller: controller,
		logger:     logger,
		router:     chi.NewRouter(),
		metrics:    metrics,
		health:     health,
		apiKey:     apiKey,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(s.metrics.HTTPMiddleware())
	}
	s.router.Use(RequestIDMiddleware)
	s.router.Use(AccessLogMiddleware(s.logger))
	s.router.Use(RequestLoggerMiddleware(s.logger))
	s.router.Use(middleware.Recoverer)

	if s.health != nil {
		s.router.Get("/healthz", s.health.HealthzHandler())
		s.router.Get("/readyz", s.health.ReadyzHandler())
	} else {
		s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.localOriginMiddleware())
		r.Use(s.apiKeyAuthMiddleware())
		r.Use(middleware.Timeout(apiTimeout))

		r.Get("/status", s.handleGetStatus)
		r.Post("/commands/{command}", s.handlePostCommand)
	})

	s.logger.Debug("Control API routes configured")
}

// localOriginMiddleware refuses requests issued by a web page served from
// another origin. Requests without an Origin header (curl, scripts) pass.
func (s *Server) localOriginMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && !isLocalOrigin(origin, r.Host) {
				GetLogger(r.Context()).Warnw("Rejected cross-origin control request",
					"origin", origin,
					"path", r.URL.Path)
				s.writeJSON(w, http.StatusForbidden, newErrorResponse("cross-origin requests are not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isLocalOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Host == host {
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// apiKeyAuthMiddleware requires the control token in the X-API-Key header
// or the apikey query parameter.
func (s *Server) apiKeyAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.apiKey == "" {
				GetLogger(r.Context()).Warn("Control API request rejected, no control token configured")
				s.writeJSON(w, http.StatusUnauthorized, newErrorResponse("Control token not configured"))
				return
			}
			if !validateAPIKey(r, s.apiKey) {
				GetLogger(r.Context()).Warnw("Invalid or missing control token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr)
				s.writeJSON(w, http.StatusUnauthorized, newErrorResponse("Invalid or missing API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validateAPIKey(r *http.Request, expected string) bool {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		key = r.URL.Query().Get("apikey")
	}
	return key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(expected)) == 1
}

func (s *Server) handleGetStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, newSuccessResponse(s.controller.Status()))
}

func (s *Server) handlePostCommand(w http.ResponseWriter, r *http.Request) {
	logger := GetLogger(r.Context())
	cmd := dispatch.Parse(chi.URLParam(r, "command"))

	if !cmd.Actionable() {
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse(fmt.Sprintf("unknown command %q", cmd)))
		return
	}

	if !s.controller.Submit(cmd, reqcontext.GetSource(r.Context())) {
		logger.Warnw("Command rejected, queue full", "command", cmd)
		s.writeJSON(w, http.StatusServiceUnavailable, newErrorResponse("command queue is full"))
		return
	}

	logger.Infow("Command queued", "command", cmd)
	s.writeJSON(w, http.StatusAccepted, newSuccessResponse(CommandAccepted{
		Command:   cmd.String(),
		RequestID: reqcontext.GetRequestID(r.Context()),
	}))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorw("Failed to encode JSON response", "error", err)
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Control API listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("control API shutdown: %w", err)
	}
	s.logger.Info("Control API stopped")
	return nil
}
