// Package launcher wires the supervisor, prober, window, dispatcher and
// control API into one application object and runs the startup sequence.
package launcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/config"
	"github.com/stow-dashboard/stow-desktop/internal/dispatch"
	"github.com/stow-dashboard/stow-desktop/internal/httpapi"
	"github.com/stow-dashboard/stow-desktop/internal/notify"
	"github.com/stow-dashboard/stow-desktop/internal/observability"
	"github.com/stow-dashboard/stow-desktop/internal/probe"
	"github.com/stow-dashboard/stow-desktop/internal/reqcontext"
	"github.com/stow-dashboard/stow-desktop/internal/rescan"
	"github.com/stow-dashboard/stow-desktop/internal/resolve"
	"github.com/stow-dashboard/stow-desktop/internal/supervisor"
	"github.com/stow-dashboard/stow-desktop/internal/window"
)

const notificationTitle = "Stow Dashboard"

// App is the application context shared by the tray, signal handlers and
// the control API
type App struct {
	cfg       *config.Config
	logger    *zap.SugaredLogger
	sessionID string

	metrics    *observability.Metrics
	health     *observability.Health
	resolver   *resolve.Resolver
	supervisor *supervisor.Supervisor
	prober     *probe.Prober
	window     *window.Controller
	rescan     *rescan.Trigger
	dispatcher *dispatch.Dispatcher
	notifier   notify.Notifier
	api        *httpapi.Server

	controlToken string

	exit        func(code int)
	builder     window.Builder
	resolveOpts []resolve.Option

	running atomic.Bool
	wg      sync.WaitGroup
}

// Option customizes an App
type Option func(*App)

// WithExit replaces the process exit called after quit
func WithExit(exit func(code int)) Option {
	return func(a *App) {
		a.exit = exit
	}
}

// WithNotifier replaces the desktop notifier
func WithNotifier(n notify.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}

// WithWindowBuilder replaces the browser window backend
func WithWindowBuilder(b window.Builder) Option {
	return func(a *App) {
		a.builder = b
	}
}

// WithResolverOptions passes options through to the resolver
func WithResolverOptions(opts ...resolve.Option) Option {
	return func(a *App) {
		a.resolveOpts = append(a.resolveOpts, opts...)
	}
}

// WithSessionID sets the session id reported by the status endpoint
func WithSessionID(id string) Option {
	return func(a *App) {
		a.sessionID = id
	}
}

// New builds the application from a validated configuration
func New(cfg *config.Config, logger *zap.SugaredLogger, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.exit == nil {
		a.exit = func(code int) {
			_ = logger.Sync()
			os.Exit(code)
		}
	}
	if a.notifier == nil {
		if cfg.Notifications {
			a.notifier = notify.NewDesktop(named(logger, "notify"))
		} else {
			a.notifier = notify.Nop{}
		}
	}
	if a.builder == nil {
		a.builder = window.NewBrowserBuilder(named(logger, "window"))
	}

	a.metrics = observability.NewMetrics(named(logger, "metrics"))

	a.resolver = resolve.New(cfg, named(logger, "resolve"), a.resolveOpts...)
	a.supervisor = supervisor.New(supervisor.Config{
		Port:        cfg.Port,
		Hostname:    cfg.Hostname,
		Entry:       cfg.Entry,
		StopTimeout: cfg.StopTimeout,
	}, a.resolver, named(logger, "supervisor"), a.metrics)

	a.prober = probe.New(cfg.ServerAddr(), cfg.ProbeTimeout, cfg.ProbeInterval, named(logger, "probe"), a.metrics)

	a.window = window.NewController(a.builder, window.Options{
		Label:     window.MainLabel,
		Title:     cfg.Window.Title,
		URL:       cfg.ServerURL(),
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		MinWidth:  cfg.Window.MinWidth,
		MinHeight: cfg.Window.MinHeight,
		Center:    true,
	}, named(logger, "window"), a.metrics)

	a.rescan = rescan.New(cfg.RescanURL(), cfg.RescanTimeout, cfg.RescanMaxInflight, named(logger, "rescan"), a.metrics)

	a.dispatcher = dispatch.New(a.window, a.rescan, a.supervisor, a.exit, named(logger, "dispatch"), a.metrics)

	a.health = observability.NewHealth(named(logger, "health"))
	a.health.AddLiveness(observability.NewFuncChecker("dispatcher", a.running.Load))
	a.health.AddReadiness(observability.NewDialChecker("server", cfg.ServerAddr()))

	if cfg.ControlListen != "" {
		a.controlToken = cfg.ControlToken
		if a.controlToken == "" {
			a.controlToken = reqcontext.NewControlToken()
			logger.Infow("Generated control API token for this session",
				"addr", cfg.ControlListen,
				"header", httpapi.APIKeyHeader,
				"control_token", a.controlToken)
		}
		a.api = httpapi.NewServer(a, named(logger, "httpapi"), a.metrics, a.health, a.controlToken)
	}

	return a
}

func named(logger *zap.SugaredLogger, name string) *zap.SugaredLogger {
	return logger.Desugar().Named(name).Sugar()
}

// Start spawns the server and starts the readiness probe. Failures are
// reported to the user and startup continues so the tray stays usable.
func (a *App) Start(ctx context.Context) {
	if a.cfg.SkipServer {
		a.logger.Infow("Server spawn disabled, expecting an external server", "addr", a.cfg.ServerAddr())
	} else if handle, err := a.supervisor.Start(ctx); err != nil {
		a.logger.Errorw("Failed to start server", "error", err)
		a.notifier.Notify(notificationTitle, fmt.Sprintf("Failed to start server: %v", err))
	} else {
		a.logger.Infow("Server spawned", "pid", handle.PID, "dir", handle.Dir)
	}

	a.wg.Add(1)
	go a.showWhenReady(ctx)
}

// showWhenReady waits for the server, then asks the dispatcher to show
// the window
func (a *App) showWhenReady(ctx context.Context) {
	defer a.wg.Done()

	if !a.prober.Wait(ctx) {
		if ctx.Err() == nil {
			a.notifier.Notify(notificationTitle,
				fmt.Sprintf("Server did not respond on %s within %s", a.prober.Addr(), a.cfg.ProbeTimeout))
		}
		return
	}

	if a.cfg.SettleDelay > 0 {
		select {
		case <-time.After(a.cfg.SettleDelay):
		case <-ctx.Done():
			return
		}
	}

	a.Submit(dispatch.CommandShow, reqcontext.SourceStartup)
}

// Run processes commands until ctx is done or quit was handled. The control
// API, when configured, is served for the same lifetime.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.api != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.api.ListenAndServe(runCtx, a.cfg.ControlListen); err != nil {
				a.logger.Errorw("Control API stopped", "addr", a.cfg.ControlListen, "error", err)
			}
		}()
	}

	a.running.Store(true)
	defer a.running.Store(false)

	return a.dispatcher.Run(runCtx)
}

// Submit queues a command for the dispatcher
func (a *App) Submit(cmd dispatch.Command, source reqcontext.Source) bool {
	return a.dispatcher.Submit(cmd, source)
}

// Status reports the supervised server and window state
func (a *App) Status() httpapi.Status {
	status := httpapi.Status{
		Port:      a.cfg.Port,
		URL:       a.cfg.ServerURL(),
		Window:    a.window.State().String(),
		SessionID: a.sessionID,
	}
	if handle, ok := a.supervisor.Current(); ok {
		startedAt := handle.StartedAt
		status.ServerRunning = true
		status.PID = handle.PID
		status.ServerDir = handle.Dir
		status.StartedAt = &startedAt
	}
	return status
}

// ControlToken is the API key the control API expects, empty when the API
// is disabled
func (a *App) ControlToken() string {
	return a.controlToken
}

// Health exposes the liveness and readiness checks
func (a *App) Health() *observability.Health {
	return a.health
}

// Shutdown stops the server and waits for background goroutines. It is
// used when the process ends without a quit command.
func (a *App) Shutdown() error {
	err := a.supervisor.Stop()
	a.wg.Wait()
	if d, ok := a.notifier.(*notify.Desktop); ok {
		d.Wait()
	}
	return err
}
