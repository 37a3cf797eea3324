// Package dispatch routes commands to window, rescan and supervisor actions
// on a single goroutine.
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/observability"
	"github.com/stow-dashboard/stow-desktop/internal/reqcontext"
)

const (
	DefaultQueueSize = 16
	ExitSuccess      = 0
)

// WindowController is the window surface the dispatcher drives
type WindowController interface {
	ShowOrCreate()
	Hide()
	Toggle()
}

// Rescanner fires a rescan without waiting for it
type Rescanner interface {
	Fire() bool
}

// Stopper terminates the supervised server
type Stopper interface {
	Stop() error
}

// Request is one queued command
type Request struct {
	Command Command
	Source  reqcontext.Source
	ID      string
}

// Dispatcher owns the command queue. Run is the only consumer, so every
// window mutation happens on the goroutine that calls Run.
type Dispatcher struct {
	window  WindowController
	rescan  Rescanner
	stopper Stopper
	exit    func(code int)
	logger  *zap.SugaredLogger
	metrics *observability.Metrics

	queue chan Request
}

// Option customizes a Dispatcher
type Option func(*Dispatcher)

// WithQueueSize sets the command buffer size
func WithQueueSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queue = make(chan Request, size)
		}
	}
}

// New creates a dispatcher. exit is called with ExitSuccess after quit has
// stopped the server; in production it flushes logs and exits the process.
func New(window WindowController, rescan Rescanner, stopper Stopper, exit func(code int), logger *zap.SugaredLogger, metrics *observability.Metrics, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		window:  window,
		rescan:  rescan,
		stopper: stopper,
		exit:    exit,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan Request, DefaultQueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit queues cmd without blocking. It is safe from any goroutine and
// returns false when the queue is full.
func (d *Dispatcher) Submit(cmd Command, source reqcontext.Source) bool {
	req := Request{Command: cmd, Source: source, ID: reqcontext.GenerateRequestID()}
	select {
	case d.queue <- req:
		return true
	default:
		d.logger.Warnw("Command queue full, dropping command", "command", cmd, "source", source)
		return false
	}
}

// Run consumes commands until ctx is done or quit has been handled
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Debug("Dispatcher loop started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("Dispatcher loop stopped")
			return ctx.Err()
		case req := <-d.queue:
			d.logger.Debugw("Dispatching command",
				"command", req.Command,
				"source", req.Source,
				"request_id", req.ID)
			d.Dispatch(req.Command)
			if req.Command == CommandQuit {
				return nil
			}
		}
	}
}

// Dispatch runs the action for cmd on the calling goroutine
func (d *Dispatcher) Dispatch(cmd Command) {
	if cmd.Actionable() {
		d.metrics.RecordCommand(cmd.String())
	}

	switch cmd {
	case CommandShow:
		d.window.ShowOrCreate()
	case CommandHide:
		d.window.Hide()
	case CommandToggle:
		d.window.Toggle()
	case CommandRescan:
		d.rescan.Fire()
	case CommandQuit:
		d.quit()
	default:
		if cmd != Separator {
			d.logger.Debugw("Ignoring unknown command", "command", cmd)
		}
	}
}

// quit stops the server, then exits. Exit is the last action.
func (d *Dispatcher) quit() {
	d.logger.Info("Quit requested, stopping server")
	if err := d.stopper.Stop(); err != nil {
		d.logger.Errorw("Failed to stop server cleanly", "error", err)
	}
	d.logger.Info("Exiting")
	d.exit(ExitSuccess)
}
