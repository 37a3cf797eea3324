// Package observability provides the launcher's health checks and metrics
package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Checker reports whether one component is usable
type Checker interface {
	// Check returns nil if the component is fine
	Check(ctx context.Context) error
	Name() string
}

// ComponentStatus is the result of one check
type ComponentStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated response of a health or readiness endpoint
type Report struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentStatus `json:"components"`
}

// Health runs liveness and readiness checks
type Health struct {
	logger    *zap.SugaredLogger
	liveness  []Checker
	readiness []Checker
	timeout   time.Duration
}

// NewHealth creates an empty health manager
func NewHealth(logger *zap.SugaredLogger) *Health {
	return &Health{
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

// AddLiveness registers a liveness check
func (h *Health) AddLiveness(c Checker) {
	h.liveness = append(h.liveness, c)
}

// AddReadiness registers a readiness check
func (h *Health) AddReadiness(c Checker) {
	h.readiness = append(h.readiness, c)
}

// SetTimeout bounds each round of checks
func (h *Health) SetTimeout(timeout time.Duration) {
	h.timeout = timeout
}

// HealthzHandler serves liveness: 200 "healthy" or 503 "unhealthy"
func (h *Health) HealthzHandler() http.HandlerFunc {
	return h.handler(func(ctx context.Context) Report {
		return h.run(ctx, h.liveness, "healthy", "unhealthy")
	}, "healthy")
}

// ReadyzHandler serves readiness: 200 "ready" or 503 "not_ready"
func (h *Health) ReadyzHandler() http.HandlerFunc {
	return h.handler(func(ctx context.Context) Report {
		return h.run(ctx, h.readiness, "ready", "not_ready")
	}, "ready")
}

// Ready runs the readiness checks outside of HTTP
func (h *Health) Ready() bool {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.run(ctx, h.readiness, "ready", "not_ready").Status == "ready"
}

func (h *Health) handler(check func(context.Context) Report, okStatus string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		report := check(ctx)

		statusCode := http.StatusOK
		if report.Status != okStatus {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(report); err != nil {
			h.logger.Errorw("Failed to encode health response", "error", err)
		}
	}
}

func (h *Health) run(ctx context.Context, checkers []Checker, ok, failed string) Report {
	report := Report{
		Status:     ok,
		Timestamp:  time.Now(),
		Components: make([]ComponentStatus, 0, len(checkers)),
	}

	for _, checker := range checkers {
		start := time.Now()
		status := ComponentStatus{Name: checker.Name(), Status: ok}

		if err := checker.Check(ctx); err != nil {
			status.Status = failed
			status.Error = err.Error()
			report.Status = failed
			h.logger.Debugw("Check failed", "component", checker.Name(), "error", err)
		}

		status.Latency = time.Since(start).String()
		report.Components = append(report.Components, status)
	}

	return report
}
