//go:build !nogui && !headless

package tray

import (
	"context"
	"runtime"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/dispatch"
	"github.com/stow-dashboard/stow-desktop/internal/reqcontext"
)

// App is the system tray. Run must be called from the main goroutine.
type App struct {
	submitter Submitter
	logger    *zap.SugaredLogger
	icon      []byte

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the tray application
func New(submitter Submitter, icon []byte, logger *zap.SugaredLogger) *App {
	return &App{
		submitter: submitter,
		logger:    logger,
		icon:      icon,
	}
}

// Run blocks in the platform event loop until ctx is done
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting system tray")
	a.ctx, a.cancel = context.WithCancel(ctx)

	go func() {
		<-a.ctx.Done()
		a.logger.Debug("Context cancelled, quitting systray")
		systray.Quit()
	}()

	systray.Run(a.onReady, a.onExit)
	return ctx.Err()
}

func (a *App) onReady() {
	systray.SetTitle(Title)
	systray.SetTooltip(Tooltip)

	if len(a.icon) > 0 {
		if runtime.GOOS == "darwin" {
			systray.SetTemplateIcon(a.icon, a.icon)
		} else {
			systray.SetIcon(a.icon)
		}
	} else {
		a.logger.Warn("Tray icon is empty")
	}

	for _, item := range Menu() {
		if item.Command == dispatch.Separator {
			systray.AddSeparator()
			continue
		}
		mi := systray.AddMenuItem(item.Label, item.Tooltip)
		go a.forward(mi, item.Command)
	}

	a.logger.Debug("Tray menu ready")
}

// forward turns clicks on mi into commands
func (a *App) forward(mi *systray.MenuItem, cmd dispatch.Command) {
	for {
		select {
		case <-mi.ClickedCh:
			a.logger.Debugw("Tray menu clicked", "command", cmd)
			a.submitter.Submit(cmd, reqcontext.SourceTray)
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) onExit() {
	a.logger.Info("System tray exited")
	a.cancel()
}
