package reqcontext

import (
	"regexp"

	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header name for request IDs
	RequestIDHeader = "X-Request-Id"

	// MaxRequestIDLength is the maximum allowed length for a request ID
	MaxRequestIDLength = 256
)

// requestIDPattern validates request ID format: alphanumeric, dashes, underscores
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,256}$`)

// IsValidRequestID checks if a request ID matches the allowed pattern.
func IsValidRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLength {
		return false
	}
	return requestIDPattern.MatchString(id)
}

// GenerateRequestID generates a new UUID v4 request ID
func GenerateRequestID() string {
	return uuid.New().String()
}

// GetOrGenerateRequestID returns the provided ID if valid, otherwise generates a new one.
func GetOrGenerateRequestID(providedID string) string {
	if IsValidRequestID(providedID) {
		return providedID
	}
	return GenerateRequestID()
}

// NewControlToken returns a random API key for the control API
func NewControlToken() string {
	return uuid.New().String()
}

// NewSessionID identifies one launcher process in logs. It is a short
// prefix of a UUID so log lines stay readable.
func NewSessionID() string {
	return uuid.New().String()[:8]
}
