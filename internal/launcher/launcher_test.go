//go:build !windows

package launcher

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stow-dashboard/stow-desktop/internal/config"
	"github.com/stow-dashboard/stow-desktop/internal/dispatch"
	"github.com/stow-dashboard/stow-desktop/internal/notify"
	"github.com/stow-dashboard/stow-desktop/internal/reqcontext"
	"github.com/stow-dashboard/stow-desktop/internal/resolve"
	"github.com/stow-dashboard/stow-desktop/internal/window"
)

type stubWindow struct {
	mu      sync.Mutex
	visible bool
}

func (w *stubWindow) Show() error  { w.set(true); return nil }
func (w *stubWindow) Hide() error  { w.set(false); return nil }
func (w *stubWindow) Focus() error { return nil }

func (w *stubWindow) IsVisible() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible, nil
}

func (w *stubWindow) set(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.visible = v
}

type stubBuilder struct{}

func (stubBuilder) Build(window.Options) (window.Window, error) {
	return &stubWindow{}, nil
}

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (e *exitRecorder) Exit(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = append(e.codes, code)
}

func (e *exitRecorder) Codes() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.codes...)
}

// freePort returns a port nothing listens on
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// listen stands in for the web server so the probe succeeds
func listen(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func testConfig(port int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Port = port
	cfg.ProbeTimeout = 300 * time.Millisecond
	cfg.ProbeInterval = 20 * time.Millisecond
	cfg.SettleDelay = 10 * time.Millisecond
	cfg.StopTimeout = 2 * time.Second
	return cfg
}

func serverDir(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.js"), []byte(script), 0644))
	return dir
}

func runApp(t *testing.T, a *App) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(context.Background()) }()
	return errCh
}

func waitRun(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after quit")
	}
}

func TestResolutionFailureThenQuit(t *testing.T) {
	exits := &exitRecorder{}
	notes := &notify.Recorder{}

	a := New(testConfig(freePort(t)), zaptest.NewLogger(t).Sugar(),
		WithExit(exits.Exit),
		WithNotifier(notes),
		WithWindowBuilder(stubBuilder{}),
		WithResolverOptions(resolve.WithStrategies()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	status := a.Status()
	assert.False(t, status.ServerRunning)
	assert.Equal(t, window.StateAbsent.String(), status.Window)

	// spawn failure and probe timeout are both reported
	require.Eventually(t, func() bool { return len(notes.All()) == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, notes.All()[0].Message, "Failed to start server")
	assert.Contains(t, notes.All()[1].Message, "did not respond")
	assert.Equal(t, window.StateAbsent.String(), a.Status().Window, "window is not shown after a probe timeout")

	errCh := runApp(t, a)
	require.True(t, a.Submit(dispatch.CommandQuit, reqcontext.SourceSignal))
	waitRun(t, errCh)

	assert.Equal(t, []int{dispatch.ExitSuccess}, exits.Codes())
	require.NoError(t, a.Shutdown())
}

func TestReadyServerShowsWindowAndQuitStopsIt(t *testing.T) {
	exits := &exitRecorder{}
	notes := &notify.Recorder{}

	cfg := testConfig(listen(t))
	cfg.ServerDir = serverDir(t, "sleep 30\n")
	cfg.Runtime = "/bin/sh"

	a := New(cfg, zaptest.NewLogger(t).Sugar(),
		WithExit(exits.Exit),
		WithNotifier(notes),
		WithWindowBuilder(stubBuilder{}),
		WithSessionID("abcd1234"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)
	errCh := runApp(t, a)

	require.Eventually(t, func() bool {
		return a.Status().Window == window.StateVisible.String()
	}, 5*time.Second, 10*time.Millisecond)

	status := a.Status()
	assert.True(t, status.ServerRunning)
	assert.Positive(t, status.PID)
	assert.Equal(t, cfg.ServerDir, status.ServerDir)
	assert.Equal(t, "abcd1234", status.SessionID)
	require.NotNil(t, status.StartedAt)
	assert.True(t, a.Health().Ready())

	require.True(t, a.Submit(dispatch.CommandHide, reqcontext.SourceTray))
	require.True(t, a.Submit(dispatch.CommandQuit, reqcontext.SourceTray))
	waitRun(t, errCh)

	assert.Equal(t, []int{dispatch.ExitSuccess}, exits.Codes())
	assert.False(t, a.Status().ServerRunning, "quit stops the server before exiting")
	assert.Equal(t, window.StateHidden.String(), a.Status().Window)
	assert.Empty(t, notes.All())
	require.NoError(t, a.Shutdown())
}

func TestEnvFileOverridesPort(t *testing.T) {
	dir := serverDir(t, "printf '%s' \"$PORT\" > port.out\nsleep 30\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("PORT=9999\n"), 0600))

	cfg := testConfig(freePort(t))
	cfg.ServerDir = dir
	cfg.Runtime = "/bin/sh"

	a := New(cfg, zaptest.NewLogger(t).Sugar(),
		WithExit(func(int) {}),
		WithNotifier(notify.Nop{}),
		WithWindowBuilder(stubBuilder{}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)
	t.Cleanup(func() { _ = a.Shutdown() })

	out := filepath.Join(dir, "port.out")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && string(data) == "9999"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSkipServerStillProbes(t *testing.T) {
	cfg := testConfig(listen(t))
	cfg.SkipServer = true

	a := New(cfg, zaptest.NewLogger(t).Sugar(),
		WithExit(func(int) {}),
		WithNotifier(notify.Nop{}),
		WithWindowBuilder(stubBuilder{}),
		WithResolverOptions(resolve.WithStrategies()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return a.Status().Window == window.StateVisible.String()
	}, 5*time.Second, 10*time.Millisecond)
	assert.False(t, a.Status().ServerRunning)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.NoError(t, a.Shutdown())
}

func TestControlToken(t *testing.T) {
	cfg := testConfig(freePort(t))
	a := New(cfg, zaptest.NewLogger(t).Sugar(), WithWindowBuilder(stubBuilder{}))
	assert.Empty(t, a.ControlToken(), "no token without a control API")

	cfg = testConfig(freePort(t))
	cfg.ControlListen = "127.0.0.1:0"
	a = New(cfg, zaptest.NewLogger(t).Sugar(), WithWindowBuilder(stubBuilder{}))
	assert.Len(t, a.ControlToken(), 36)

	cfg.ControlToken = "from-config"
	a = New(cfg, zaptest.NewLogger(t).Sugar(), WithWindowBuilder(stubBuilder{}))
	assert.Equal(t, "from-config", a.ControlToken())
}
