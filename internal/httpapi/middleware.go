package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/reqcontext"
)

// RequestIDMiddleware extracts or generates a request ID for each request.
// A valid client X-Request-Id is kept; otherwise a UUID is generated. The
// ID is set on the response before the handler runs and stored in the
// request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := reqcontext.GetOrGenerateRequestID(r.Header.Get(reqcontext.RequestIDHeader))
		w.Header().Set(reqcontext.RequestIDHeader, requestID)

		ctx := reqcontext.WithRequestID(r.Context(), requestID)
		ctx = reqcontext.WithSource(ctx, reqcontext.SourceControlAPI)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLoggerMiddleware stores a logger carrying the request ID in the
// context. Register it after RequestIDMiddleware.
func RequestLoggerMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestLogger := logger.With("request_id", reqcontext.GetRequestID(ctx))
			next.ServeHTTP(w, r.WithContext(WithLogger(ctx, requestLogger)))
		})
	}
}

// AccessLogMiddleware logs one line per request
func AccessLogMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Debugw("HTTP API Request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"request_id", reqcontext.GetRequestID(r.Context()))
		})
	}
}

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, reqcontext.LoggerKey, logger)
}

// GetLogger retrieves the logger from context, or returns a nop logger if not found
func GetLogger(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return zap.NewNop().Sugar()
	}
	if logger, ok := ctx.Value(reqcontext.LoggerKey).(*zap.SugaredLogger); ok && logger != nil {
		return logger
	}
	return zap.NewNop().Sugar()
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
