// Package supervisor spawns the dashboard server and owns its process.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/observability"
	"github.com/stow-dashboard/stow-desktop/internal/resolve"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrEntryNotFound  = errors.New("server entry script not found")
	ErrStopTimeout    = errors.New("server did not exit in time")
)

const (
	exitStopped = "stopped"
	exitExited  = "exited"
	exitCrashed = "crashed"

	defaultStopTimeout = 5 * time.Second
	outputWaitDelay    = 2 * time.Second
)

// Locator finds the server directory and the runtime that executes it
type Locator interface {
	ServerDir() (string, error)
	RuntimeBinary() (string, error)
	EnvFilePath(serverDir string) string
}

// Config controls how the child is launched
type Config struct {
	Port        int
	Hostname    string
	Entry       string
	StopTimeout time.Duration
}

// Handle describes the tracked child. It is a snapshot; the process itself
// is only reachable through the Supervisor.
type Handle struct {
	PID       int
	Dir       string
	Binary    string
	StartedAt time.Time
}

type child struct {
	cmd    *exec.Cmd
	handle Handle
	stdout *lineWriter
	stderr *lineWriter
	done   chan struct{}
}

// Supervisor tracks at most one server child process
type Supervisor struct {
	cfg     Config
	locator Locator
	logger  *zap.SugaredLogger
	output  *zap.SugaredLogger
	metrics *observability.Metrics
	kill    func(*os.Process) error

	mu   sync.Mutex
	proc *child
}

// New creates a supervisor. Child output goes to logger.Named("server").
func New(cfg Config, locator Locator, logger *zap.SugaredLogger, metrics *observability.Metrics) *Supervisor {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	return &Supervisor{
		cfg:     cfg,
		locator: locator,
		logger:  logger,
		output:  logger.Desugar().Named("server").Sugar(),
		metrics: metrics,
		kill:    killProcessTree,
	}
}

// Start resolves the server and spawns it. Nothing is spawned if any lookup
// fails. A tracked child is never replaced: Start returns ErrAlreadyRunning.
func (s *Supervisor) Start(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil {
		return s.proc.handle, ErrAlreadyRunning
	}

	dir, err := s.locator.ServerDir()
	if err != nil {
		s.metrics.RecordSpawn(observability.ResultFailed)
		return Handle{}, err
	}

	entry := filepath.Join(dir, s.cfg.Entry)
	if info, statErr := os.Stat(entry); statErr != nil || !info.Mode().IsRegular() {
		s.metrics.RecordSpawn(observability.ResultFailed)
		return Handle{}, fmt.Errorf("%w: %s", ErrEntryNotFound, entry)
	}

	binary, err := s.locator.RuntimeBinary()
	if err != nil {
		s.metrics.RecordSpawn(observability.ResultFailed)
		return Handle{}, err
	}

	envFile := s.locator.EnvFilePath(dir)
	fileVars := resolve.ParseEnvFile(envFile)
	env := resolve.MergeEnv(os.Environ(), s.fixedEnv(), fileVars)

	s.logger.Infow("Starting server",
		"binary", binary,
		"entry", s.cfg.Entry,
		"dir", dir,
		"env_file", envFile,
		"env_file_keys", fileVars.Keys(),
		"env_count", len(env))
	s.logger.Debugw("Server environment", "env_vars", maskSensitiveEnv(env))

	cmd := exec.Command(binary, s.cfg.Entry)
	cmd.Dir = dir
	cmd.Env = env
	cmd.WaitDelay = outputWaitDelay
	configureProcAttr(cmd)

	c := &child{
		cmd:    cmd,
		stdout: newLineWriter(s.output, "stdout"),
		stderr: newLineWriter(s.output, "stderr"),
		done:   make(chan struct{}),
	}
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	if err := cmd.Start(); err != nil {
		s.metrics.RecordSpawn(observability.ResultFailed)
		return Handle{}, fmt.Errorf("failed to start server: %w", err)
	}

	c.handle = Handle{
		PID:       cmd.Process.Pid,
		Dir:       dir,
		Binary:    binary,
		StartedAt: time.Now(),
	}
	s.proc = c
	s.metrics.RecordSpawn(observability.ResultSuccess)

	s.logger.Infow("Server started", "pid", c.handle.PID)

	go s.monitor(c)

	return c.handle, nil
}

// Stop kills the tracked child and its process tree, then waits for it to
// be reaped. Without a tracked child Stop is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	c := s.proc
	if c == nil {
		s.mu.Unlock()
		return nil
	}
	s.proc = nil
	s.mu.Unlock()

	// taskkill can take a while; status readers must not wait on it
	killErr := s.kill(c.cmd.Process)

	if killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
		s.logger.Warnw("Failed to kill server", "pid", c.handle.PID, "error", killErr)
	} else {
		s.logger.Infow("Server kill sent", "pid", c.handle.PID)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(s.cfg.StopTimeout):
		s.logger.Errorw("Server did not exit after kill", "pid", c.handle.PID, "timeout", s.cfg.StopTimeout)
		return fmt.Errorf("%w: pid %d", ErrStopTimeout, c.handle.PID)
	}
}

// Running reports whether a child is tracked
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// Current returns the tracked child, if any
func (s *Supervisor) Current() (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return Handle{}, false
	}
	return s.proc.handle, true
}

// Done is closed once the currently tracked child has been reaped. Without
// a tracked child the returned channel is already closed.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.proc.done
}

func (s *Supervisor) fixedEnv() resolve.EnvVarMap {
	return resolve.EnvVarMap{
		"PORT":     strconv.Itoa(s.cfg.Port),
		"HOSTNAME": s.cfg.Hostname,
	}
}

// monitor reaps the child and clears it if it is still the tracked one
func (s *Supervisor) monitor(c *child) {
	defer close(c.done)

	err := c.cmd.Wait()
	c.stdout.Flush()
	c.stderr.Flush()

	s.mu.Lock()
	stopped := s.proc != c
	if !stopped {
		s.proc = nil
	}
	s.mu.Unlock()

	elapsed := time.Since(c.handle.StartedAt)
	code, signal := exitInfo(c.cmd.ProcessState)

	reason := exitExited
	switch {
	case stopped:
		reason = exitStopped
		s.logger.Infow("Server stopped", "pid", c.handle.PID, "runtime", elapsed)
	case signal != "":
		reason = exitCrashed
		s.logger.Errorw("Server killed by signal",
			"pid", c.handle.PID,
			"signal", signal,
			"runtime", elapsed)
	case err != nil:
		s.logger.Errorw("Server exited with error",
			"pid", c.handle.PID,
			"error", err,
			"exit_code", code,
			"runtime", elapsed)
	default:
		s.logger.Infow("Server exited", "pid", c.handle.PID, "runtime", elapsed)
	}

	s.metrics.RecordExit(reason)
}

func exitInfo(state *os.ProcessState) (code int, signal string) {
	if state == nil {
		return -1, ""
	}
	return state.ExitCode(), exitSignal(state)
}
