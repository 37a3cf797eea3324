package resolve

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/stow-dashboard/stow-desktop/internal/config"
)

const runtimeName = "node"

var (
	ErrServerDirNotFound = errors.New("server directory not found")
	ErrRuntimeNotFound   = errors.New("runtime binary not found")
)

// Resolver locates the server directory and the runtime binary that runs it.
// Lookups are read-only: nothing is written and nothing is spawned.
type Resolver struct {
	logger *zap.SugaredLogger

	strategies        []Strategy
	runtimeOverride   string
	runtimeCandidates []string
	lookPath          func(string) (string, error)
	envFile           string
}

// Option customizes a Resolver
type Option func(*Resolver)

// WithStrategies replaces the server directory strategies
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Resolver) {
		r.strategies = strategies
	}
}

// WithRuntimeCandidates replaces the well-known runtime locations
func WithRuntimeCandidates(candidates ...string) Option {
	return func(r *Resolver) {
		r.runtimeCandidates = candidates
	}
}

// WithLookPath replaces the PATH lookup used as the last runtime fallback
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(r *Resolver) {
		r.lookPath = lookPath
	}
}

// New creates a resolver from configuration. The default strategy order is
// the configured override, the platform strategies, then the ancestor walk
// from the running executable.
func New(cfg *config.Config, logger *zap.SugaredLogger, opts ...Option) *Resolver {
	r := &Resolver{
		logger:            logger,
		runtimeOverride:   strings.TrimSpace(cfg.Runtime),
		runtimeCandidates: defaultRuntimeCandidates(),
		lookPath:          exec.LookPath,
		envFile:           cfg.EnvFile,
	}
	r.strategies = DefaultStrategies(cfg, logger)

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultStrategies builds the ordered strategy list for cfg
func DefaultStrategies(cfg *config.Config, logger *zap.SugaredLogger) []Strategy {
	var strategies []Strategy
	if dir := strings.TrimSpace(cfg.ServerDir); dir != "" {
		strategies = append(strategies, OverrideStrategy{Dir: dir})
	}

	exe, err := executablePath()
	if err != nil {
		logger.Warnw("Cannot resolve executable path, skipping install-relative lookups", "error", err)
		return strategies
	}

	strategies = append(strategies, platformStrategies(exe, cfg)...)
	strategies = append(strategies, AncestorWalkStrategy{
		Start:    filepath.Dir(exe),
		Subpath:  filepath.FromSlash(cfg.StandaloneSubpath),
		Entry:    cfg.Entry,
		MaxDepth: cfg.SearchDepth,
	})
	return strategies
}

// ServerDir returns the first directory reported by the strategies
func (r *Resolver) ServerDir() (string, error) {
	for _, s := range r.strategies {
		if dir, ok := s.Locate(); ok {
			r.logger.Debugw("Server directory resolved", "strategy", s.Name(), "dir", dir)
			return dir, nil
		}
		r.logger.Debugw("Strategy found no server directory", "strategy", s.Name())
	}
	return "", ErrServerDirNotFound
}

// EnvFilePath returns the optional environment file inside a server directory
func (r *Resolver) EnvFilePath(serverDir string) string {
	return filepath.Join(serverDir, r.envFile)
}

// RuntimeBinary returns the configured override, else the first existing
// well-known install location, else whatever PATH resolves.
func (r *Resolver) RuntimeBinary() (string, error) {
	if r.runtimeOverride != "" {
		if isExecutableFile(r.runtimeOverride) {
			return r.runtimeOverride, nil
		}
		return "", fmt.Errorf("%w: configured runtime %s is not an executable file", ErrRuntimeNotFound, r.runtimeOverride)
	}

	for _, candidate := range r.runtimeCandidates {
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}

	if r.lookPath != nil {
		if resolved, err := r.lookPath(runtimeName); err == nil && resolved != "" {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("%w: checked %v and PATH", ErrRuntimeNotFound, r.runtimeCandidates)
}

func executablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return resolved, nil
}
