// Package rescan asks the running dashboard server to rescan its projects.
package rescan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/observability"
	"github.com/stow-dashboard/stow-desktop/internal/reqcontext"
)

const (
	DefaultTimeout     = 2 * time.Minute
	DefaultMaxInflight = 4
)

// Trigger fires best-effort POST requests at the rescan endpoint. Callers
// never see the outcome.
type Trigger struct {
	url     string
	client  *http.Client
	logger  *zap.SugaredLogger
	metrics *observability.Metrics

	slots chan struct{}
	wg    sync.WaitGroup
}

// New creates a trigger for url. At most maxInflight requests are
// outstanding; further fires are dropped until one completes.
func New(url string, timeout time.Duration, maxInflight int, logger *zap.SugaredLogger, metrics *observability.Metrics) *Trigger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxInflight <= 0 {
		maxInflight = DefaultMaxInflight
	}
	return &Trigger{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: metrics,
		slots:   make(chan struct{}, maxInflight),
	}
}

// Fire starts a detached request and returns immediately. It reports
// whether the request was started.
func (t *Trigger) Fire() bool {
	select {
	case t.slots <- struct{}{}:
	default:
		t.logger.Debugw("Rescan dropped, too many requests in flight", "max_inflight", cap(t.slots))
		t.metrics.RecordRescan(observability.ResultDropped)
		return false
	}

	requestID := reqcontext.GenerateRequestID()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() { <-t.slots }()
		t.post(requestID)
	}()
	return true
}

// Wait blocks until every started request has finished
func (t *Trigger) Wait() {
	t.wg.Wait()
}

func (t *Trigger) post(requestID string) {
	logger := t.logger.With("request_id", requestID)

	if err := t.do(requestID); err != nil {
		logger.Debugw("Rescan request failed", "url", t.url, "error", err)
		t.metrics.RecordRescan(observability.ResultFailed)
		return
	}
	logger.Debugw("Rescan request completed", "url", t.url)
	t.metrics.RecordRescan(observability.ResultSuccess)
}

func (t *Trigger) do(requestID string) error {
	ctx := reqcontext.WithRequestID(context.Background(), requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(reqcontext.RequestIDHeader, requestID)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
