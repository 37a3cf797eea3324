// Package window owns the single dashboard window and its visibility.
package window

import (
	"sync"

	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/observability"
)

// MainLabel identifies the singleton window
const MainLabel = "main"

// State is the visibility of the singleton window
type State int

const (
	StateAbsent State = iota
	StateVisible
	StateHidden
)

func (s State) String() string {
	switch s {
	case StateVisible:
		return "visible"
	case StateHidden:
		return "hidden"
	default:
		return "absent"
	}
}

var allStates = []string{StateAbsent.String(), StateVisible.String(), StateHidden.String()}

// Options describe the window to construct
type Options struct {
	Label     string
	Title     string
	URL       string
	Width     int
	Height    int
	MinWidth  int
	MinHeight int
	Center    bool
}

// Window is a constructed platform window
type Window interface {
	Show() error
	Hide() error
	Focus() error
	IsVisible() (bool, error)
}

// Builder constructs the platform window
type Builder interface {
	Build(opts Options) (Window, error)
}

// Controller drives the singleton window. Mutating calls are expected from
// one goroutine (the dispatcher loop); State is safe from any goroutine.
type Controller struct {
	builder Builder
	opts    Options
	logger  *zap.SugaredLogger
	metrics *observability.Metrics

	mu  sync.Mutex
	win Window
}

// NewController creates a controller in StateAbsent
func NewController(builder Builder, opts Options, logger *zap.SugaredLogger, metrics *observability.Metrics) *Controller {
	if opts.Label == "" {
		opts.Label = MainLabel
	}
	c := &Controller{
		builder: builder,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
	c.metrics.SetWindowState(StateAbsent.String(), allStates...)
	return c
}

// ShowOrCreate shows and focuses the window, constructing it on first use.
// Construction failure leaves the controller in StateAbsent.
func (c *Controller) ShowOrCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.win == nil {
		w, err := c.builder.Build(c.opts)
		if err != nil {
			c.logger.Warnw("Failed to create window", "label", c.opts.Label, "url", c.opts.URL, "error", err)
			return
		}
		c.logger.Infow("Window created", "label", c.opts.Label, "url", c.opts.URL)
		c.win = w
	}

	c.showLocked()
}

// Hide hides an existing window; without one it does nothing
func (c *Controller) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.win == nil {
		return
	}
	if err := c.win.Hide(); err != nil {
		c.logger.Debugw("Failed to hide window", "error", err)
	}
	c.recordLocked()
}

// Toggle creates the window when absent, otherwise flips its visibility
func (c *Controller) Toggle() {
	c.mu.Lock()
	win := c.win
	c.mu.Unlock()

	if win == nil {
		c.ShowOrCreate()
		return
	}

	if c.visible(win) {
		c.Hide()
		return
	}
	c.ShowOrCreate()
}

// State reports the current window state. A failed visibility query counts
// as hidden.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) showLocked() {
	if err := c.win.Show(); err != nil {
		c.logger.Debugw("Failed to show window", "error", err)
	}
	if err := c.win.Focus(); err != nil {
		c.logger.Debugw("Failed to focus window", "error", err)
	}
	c.recordLocked()
}

func (c *Controller) stateLocked() State {
	if c.win == nil {
		return StateAbsent
	}
	if c.visible(c.win) {
		return StateVisible
	}
	return StateHidden
}

func (c *Controller) visible(w Window) bool {
	visible, err := w.IsVisible()
	if err != nil {
		c.logger.Debugw("Window visibility query failed", "error", err)
		return false
	}
	return visible
}

func (c *Controller) recordLocked() {
	c.metrics.SetWindowState(c.stateLocked().String(), allStates...)
}
