package window

import (
	"errors"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/pkg/browser"
	"go.uber.org/zap"
)

// ErrNoDisplay is returned when no graphical session is available
var ErrNoDisplay = errors.New("no graphical session available")

func init() {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// BrowserBuilder presents the dashboard in the user's default browser. The
// browser owns the real window, so hide and focus are tracked logically and
// the URL is opened again on every transition to visible.
//
// Known limitation: a browser tab cannot be closed or hidden from outside,
// so Hide has no visible effect. The tab stays open and the next show opens
// another one. Tray and control API hide commands only update the tracked
// state with this builder.
type BrowserBuilder struct {
	logger  *zap.SugaredLogger
	openURL func(string) error
}

// NewBrowserBuilder creates a builder backed by github.com/pkg/browser
func NewBrowserBuilder(logger *zap.SugaredLogger) *BrowserBuilder {
	return &BrowserBuilder{logger: logger, openURL: browser.OpenURL}
}

// Build refuses to construct a window when the URL is empty or, on linux,
// when no graphical session is detected
func (b *BrowserBuilder) Build(opts Options) (Window, error) {
	if opts.URL == "" {
		return nil, errors.New("window URL is empty")
	}
	if runtime.GOOS == "linux" && !hasGUIEnvironment() {
		return nil, ErrNoDisplay
	}
	return &browserWindow{url: opts.URL, openURL: b.openURL, logger: b.logger}, nil
}

type browserWindow struct {
	url     string
	openURL func(string) error
	logger  *zap.SugaredLogger

	mu      sync.Mutex
	visible bool
}

func (w *browserWindow) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.visible {
		return nil
	}
	if err := w.openURL(w.url); err != nil {
		return err
	}
	w.logger.Debugw("Opened dashboard in browser", "url", w.url)
	w.visible = true
	return nil
}

// Hide only marks the window hidden; the open tab is left alone
func (w *browserWindow) Hide() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = false
	return nil
}

// Focus is a no-op: opening the URL already raises the browser
func (w *browserWindow) Focus() error {
	return nil
}

func (w *browserWindow) IsVisible() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible, nil
}

func hasGUIEnvironment() bool {
	for _, name := range []string{"DISPLAY", "WAYLAND_DISPLAY", "XDG_SESSION_TYPE"} {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}
