package supervisor

import (
	"bytes"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const maxPendingOutput = 64 * 1024

// lineWriter logs child output one line at a time
type lineWriter struct {
	logger *zap.SugaredLogger
	stream string

	mu      sync.Mutex
	pending []byte
}

func newLineWriter(logger *zap.SugaredLogger, stream string) *lineWriter {
	return &lineWriter{logger: logger, stream: stream}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		idx := bytes.IndexByte(w.pending, '\n')
		if idx < 0 {
			break
		}
		w.logLine(string(w.pending[:idx]))
		w.pending = w.pending[idx+1:]
	}

	if len(w.pending) > maxPendingOutput {
		w.logLine(string(w.pending))
		w.pending = nil
	}
	return len(p), nil
}

// Flush logs any trailing partial line
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		w.logLine(string(w.pending))
		w.pending = nil
	}
}

func (w *lineWriter) logLine(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}

	lower := strings.ToLower(line)
	if strings.Contains(lower, "error") ||
		strings.Contains(lower, "failed") ||
		strings.Contains(lower, "panic") {
		w.logger.Warnw(line, "stream", w.stream)
		return
	}
	w.logger.Infow(line, "stream", w.stream)
}

var sensitiveKeyParts = []string{"key", "secret", "token", "password"}

// maskSensitiveEnv hides values of variables whose names look like credentials
func maskSensitiveEnv(env []string) []string {
	masked := make([]string, len(env))

	for i, kv := range env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !isSensitive(key) {
			masked[i] = kv
			continue
		}
		if len(value) > 8 {
			masked[i] = key + "=" + value[:4] + "****" + value[len(value)-4:]
		} else {
			masked[i] = key + "=****"
		}
	}

	return masked
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}
