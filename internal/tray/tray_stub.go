//go:build nogui || headless

package tray

import (
	"context"

	"go.uber.org/zap"
)

// App stands in for the tray in headless builds
type App struct {
	logger *zap.SugaredLogger
}

// New creates the headless tray stand-in
func New(_ Submitter, _ []byte, logger *zap.SugaredLogger) *App {
	return &App{logger: logger}
}

// Run waits for ctx. Commands arrive through signals or the control API.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Tray disabled (nogui/headless build)")
	<-ctx.Done()
	return ctx.Err()
}
