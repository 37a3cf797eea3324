// Package probe waits for the dashboard server to accept TCP connections.
package probe

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/observability"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultInterval = 200 * time.Millisecond
)

// WaitUntilReady dials addr until a connection succeeds, the timeout
// elapses or ctx is done. It returns true on the first successful
// connection. A false result never comes before timeout has elapsed unless
// ctx was cancelled. There is no backoff: attempts are spaced by interval.
func WaitUntilReady(ctx context.Context, addr string, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	var dialer net.Dialer

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}

		dialCtx, cancel := context.WithDeadline(ctx, deadline)
		conn, err := dialer.DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			_ = conn.Close()
			return true
		}

		remaining = time.Until(deadline)
		if remaining <= 0 {
			return false
		}

		wait := interval
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// Prober runs WaitUntilReady for the configured server address
type Prober struct {
	addr     string
	timeout  time.Duration
	interval time.Duration
	logger   *zap.SugaredLogger
	metrics  *observability.Metrics
}

// New creates a prober. Zero durations fall back to the defaults.
func New(addr string, timeout, interval time.Duration, logger *zap.SugaredLogger, metrics *observability.Metrics) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Prober{
		addr:     addr,
		timeout:  timeout,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Addr returns the probed address
func (p *Prober) Addr() string {
	return p.addr
}

// Wait blocks until the server is reachable or the probe gives up
func (p *Prober) Wait(ctx context.Context) bool {
	p.logger.Infow("Waiting for server", "addr", p.addr, "timeout", p.timeout)

	start := time.Now()
	ready := WaitUntilReady(ctx, p.addr, p.timeout, p.interval)
	elapsed := time.Since(start)
	p.metrics.RecordProbe(ready, elapsed)

	switch {
	case ready:
		p.logger.Infow("Server is accepting connections", "addr", p.addr, "elapsed", elapsed)
	case ctx.Err() != nil:
		p.logger.Debugw("Readiness probe cancelled", "addr", p.addr, "elapsed", elapsed)
	default:
		p.logger.Warnw("Server did not become reachable", "addr", p.addr, "timeout", p.timeout)
	}
	return ready
}
