package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the configuration and fills in defaults for optional sections
func (c *Config) Validate() error {
	var problems []string

	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range 1-65535", c.Port))
	}
	if strings.TrimSpace(c.Hostname) == "" {
		c.Hostname = DefaultHostname
	}
	if c.Entry == "" {
		c.Entry = DefaultEntry
	}
	if c.EnvFile == "" {
		c.EnvFile = DefaultEnvFile
	}
	if c.StandaloneSubpath == "" {
		c.StandaloneSubpath = DefaultStandaloneSubpath
	}
	if c.SearchDepth < 0 {
		problems = append(problems, "search-depth must not be negative")
	}
	if c.ProbeTimeout <= 0 {
		problems = append(problems, "probe-timeout must be positive")
	}
	if c.ProbeInterval <= 0 {
		problems = append(problems, "probe-interval must be positive")
	}
	if c.SettleDelay < 0 {
		problems = append(problems, "settle-delay must not be negative")
	}
	if c.StopTimeout <= 0 {
		problems = append(problems, "stop-timeout must be positive")
	}
	if !strings.HasPrefix(c.RescanPath, "/") {
		problems = append(problems, fmt.Sprintf("rescan-path %q must start with /", c.RescanPath))
	}
	if c.RescanTimeout <= 0 {
		problems = append(problems, "rescan-timeout must be positive")
	}
	if c.RescanMaxInflight <= 0 {
		problems = append(problems, "rescan-max-inflight must be positive")
	}

	defaults := DefaultConfig()
	if c.Window == nil {
		c.Window = defaults.Window
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		problems = append(problems, "window size must be positive")
	}
	if c.Window.MinWidth > c.Window.Width || c.Window.MinHeight > c.Window.Height {
		problems = append(problems, "window minimum size exceeds initial size")
	}
	if c.Logging == nil {
		c.Logging = defaults.Logging
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
