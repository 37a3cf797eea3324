package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/config"
	"github.com/stow-dashboard/stow-desktop/internal/launcher"
	"github.com/stow-dashboard/stow-desktop/internal/logs"
	"github.com/stow-dashboard/stow-desktop/internal/reqcontext"
	"github.com/stow-dashboard/stow-desktop/internal/tray"
)

const exitCodeGeneralError = 1

var version = "v0.1.0" // injected by -ldflags during build

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeGeneralError)
	}
}

func newRootCmd() *cobra.Command {
	d := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:           "stow-desktop",
		Short:         "Stow Dashboard desktop launcher",
		Long:          "Starts the bundled dashboard server, waits until it accepts connections and opens the dashboard from the system tray.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLauncher,
	}

	flags := rootCmd.Flags()
	flags.StringP(config.KeyConfig, "c", "", "Configuration file path")
	flags.Int("port", d.Port, "Port the dashboard server listens on")
	flags.String("hostname", d.Hostname, "Hostname passed to the server and used for probing")
	flags.String("server-dir", "", "Server directory (skips the automatic lookup)")
	flags.String("runtime", "", "Path of the node binary")
	flags.String("entry", d.Entry, "Server entry script inside the server directory")
	flags.String("env-file", d.EnvFile, "Env file inside the server directory")
	flags.String("standalone-subpath", d.StandaloneSubpath, "Server directory relative to a project root")
	flags.Int("search-depth", d.SearchDepth, "Maximum number of parent directories searched for the server")
	flags.Bool("skip-server", false, "Do not spawn the server; use one that is already running")
	flags.Duration("probe-timeout", d.ProbeTimeout, "How long to wait for the server to accept connections")
	flags.Duration("probe-interval", d.ProbeInterval, "Delay between connection attempts")
	flags.Duration("settle-delay", d.SettleDelay, "Delay between readiness and showing the window")
	flags.Duration("stop-timeout", d.StopTimeout, "How long to wait for the server to exit on quit")
	flags.String("rescan-path", d.RescanPath, "Server endpoint that triggers a rescan")
	flags.Duration("rescan-timeout", d.RescanTimeout, "Timeout of a rescan request")
	flags.Int("rescan-max-inflight", d.RescanMaxInflight, "Maximum concurrent rescan requests")
	flags.Bool("notifications", d.Notifications, "Show desktop notifications for startup failures")
	flags.String("control-listen", "", "Address of the local control API (disabled when empty)")
	flags.String("control-token", "", "API key required by the control API (generated per session when empty)")
	flags.String("icon", "", "Tray icon PNG (a built-in icon is used when empty)")
	flags.String("log-level", d.Logging.Level, "Log level (trace, debug, info, warn, error)")
	flags.String("log-dir", "", "Custom log directory path (overrides standard OS location)")
	flags.Bool("log-to-file", d.Logging.EnableFile, "Enable logging to file in standard OS location")
	flags.Bool("log-json", d.Logging.JSONFormat, "Write the log file as JSON")

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return nil, err
	}
	return config.Load(v)
}

func runLauncher(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	sessionID := reqcontext.NewSessionID()

	baseLogger, err := logs.SetupLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	logger := baseLogger.With(zap.String("session_id", sessionID))
	defer func() {
		_ = logger.Sync()
	}()

	if logDir, err := logs.GetLogDir(); err == nil && cfg.Logging.EnableFile {
		if cfg.Logging.LogDir != "" {
			logDir = cfg.Logging.LogDir
		}
		logger.Info("Log directory configured", zap.String("path", logDir))
	}

	logger.Info("Starting stow-desktop",
		zap.String("version", version),
		zap.Int("port", cfg.Port),
		zap.String("server_dir", cfg.ServerDir),
		zap.Bool("skip_server", cfg.SkipServer),
		zap.String("control_listen", cfg.ControlListen))

	exit := func(code int) {
		logger.Info("Exiting", zap.Int("code", code))
		_ = logger.Sync()
		os.Exit(code)
	}

	sugar := logger.Sugar()
	app := launcher.New(cfg, sugar,
		launcher.WithExit(exit),
		launcher.WithSessionID(sessionID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go forwardSignals(ctx, app, sugar)

	app.Start(ctx)

	go func() {
		if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Dispatcher stopped", zap.Error(err))
		}
		cancel()
	}()

	icon, err := tray.LoadIcon(cfg.Icon)
	if err != nil {
		logger.Warn("Failed to load tray icon, using the built-in icon", zap.Error(err))
		if icon, err = tray.DefaultIcon(); err != nil {
			logger.Warn("Failed to render tray icon", zap.Error(err))
		}
	}

	// The tray event loop must own the main thread
	trayApp := tray.New(app, icon, sugar.Desugar().Named("tray").Sugar())
	if err := trayApp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Tray application error", zap.Error(err))
	}

	// The tray is gone without a quit command. Take the server down with us.
	cancel()
	if err := app.Shutdown(); err != nil {
		logger.Error("Error stopping server", zap.Error(err))
	}
	return nil
}

// forwardSignals turns process signals into dispatcher commands
func forwardSignals(ctx context.Context, app *launcher.App, logger *zap.SugaredLogger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, handledSignals...)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			cmd := commandForSignal(sig)
			logger.Infow("Received signal", "signal", sig.String(), "command", cmd)
			if !app.Submit(cmd, reqcontext.SourceSignal) {
				logger.Warnw("Dropped signal command", "signal", sig.String(), "command", cmd)
			}
		}
	}
}
