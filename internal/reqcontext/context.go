package reqcontext

import (
	"context"
)

// ContextKey is the type for context keys to avoid collisions
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	SourceKey    ContextKey = "request_source"
	LoggerKey    ContextKey = "logger"
)

// Source says where a command or request originated
type Source string

const (
	SourceTray       Source = "TRAY"
	SourceControlAPI Source = "CONTROL_API"
	SourceSignal     Source = "SIGNAL"
	SourceStartup    Source = "STARTUP"
	SourceUnknown    Source = "UNKNOWN"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSource adds the request source to the context
func WithSource(ctx context.Context, source Source) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// GetSource retrieves the request source from context
func GetSource(ctx context.Context) Source {
	if ctx == nil {
		return SourceUnknown
	}
	if source, ok := ctx.Value(SourceKey).(Source); ok {
		return source
	}
	return SourceUnknown
}
