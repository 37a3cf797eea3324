package config

import (
	"fmt"
	"strconv"
	"time"
)

const (
	DefaultPort              = 3088
	DefaultHostname          = "localhost"
	DefaultEntry             = "server.js"
	DefaultEnvFile           = ".env.local"
	DefaultStandaloneSubpath = ".next/standalone"
	DefaultSearchDepth       = 10
	DefaultRescanPath        = "/api/scan"
)

// Config represents the launcher configuration
type Config struct {
	Port     int    `json:"port" mapstructure:"port"`
	Hostname string `json:"hostname" mapstructure:"hostname"`

	// Server artifact location
	ServerDir         string `json:"server_dir,omitempty" mapstructure:"server-dir"`
	Runtime           string `json:"runtime,omitempty" mapstructure:"runtime"`
	Entry             string `json:"entry" mapstructure:"entry"`
	EnvFile           string `json:"env_file" mapstructure:"env-file"`
	StandaloneSubpath string `json:"standalone_subpath" mapstructure:"standalone-subpath"`
	SearchDepth       int    `json:"search_depth" mapstructure:"search-depth"`
	SkipServer        bool   `json:"skip_server" mapstructure:"skip-server"`

	// Readiness gating
	ProbeTimeout  time.Duration `json:"probe_timeout" mapstructure:"probe-timeout"`
	ProbeInterval time.Duration `json:"probe_interval" mapstructure:"probe-interval"`
	SettleDelay   time.Duration `json:"settle_delay" mapstructure:"settle-delay"`
	StopTimeout   time.Duration `json:"stop_timeout" mapstructure:"stop-timeout"`

	// Rescan trigger
	RescanPath        string        `json:"rescan_path" mapstructure:"rescan-path"`
	RescanTimeout     time.Duration `json:"rescan_timeout" mapstructure:"rescan-timeout"`
	RescanMaxInflight int           `json:"rescan_max_inflight" mapstructure:"rescan-max-inflight"`

	Notifications bool   `json:"notifications" mapstructure:"notifications"`
	ControlListen string `json:"control_listen,omitempty" mapstructure:"control-listen"`
	ControlToken  string `json:"-" mapstructure:"control-token"`
	Icon          string `json:"icon,omitempty" mapstructure:"icon"`

	Window  *WindowConfig `json:"window,omitempty" mapstructure:"window"`
	Logging *LogConfig    `json:"logging,omitempty" mapstructure:"logging"`
}

// WindowConfig describes the singleton dashboard window
type WindowConfig struct {
	Title     string `json:"title" mapstructure:"title"`
	Width     int    `json:"width" mapstructure:"width"`
	Height    int    `json:"height" mapstructure:"height"`
	MinWidth  int    `json:"min_width" mapstructure:"min-width"`
	MinHeight int    `json:"min_height" mapstructure:"min-height"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level         string `json:"level" mapstructure:"level"`
	EnableFile    bool   `json:"enable_file" mapstructure:"enable-file"`
	EnableConsole bool   `json:"enable_console" mapstructure:"enable-console"`
	Filename      string `json:"filename" mapstructure:"filename"`
	LogDir        string `json:"log_dir,omitempty" mapstructure:"log-dir"` // Custom log directory
	MaxSize       int    `json:"max_size" mapstructure:"max-size"`         // MB
	MaxBackups    int    `json:"max_backups" mapstructure:"max-backups"`   // number of backup files
	MaxAge        int    `json:"max_age" mapstructure:"max-age"`           // days
	Compress      bool   `json:"compress" mapstructure:"compress"`
	JSONFormat    bool   `json:"json_format" mapstructure:"json-format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Port:              DefaultPort,
		Hostname:          DefaultHostname,
		Entry:             DefaultEntry,
		EnvFile:           DefaultEnvFile,
		StandaloneSubpath: DefaultStandaloneSubpath,
		SearchDepth:       DefaultSearchDepth,

		ProbeTimeout:  15 * time.Second,
		ProbeInterval: 200 * time.Millisecond,
		SettleDelay:   500 * time.Millisecond,
		StopTimeout:   5 * time.Second,

		RescanPath:        DefaultRescanPath,
		RescanTimeout:     2 * time.Minute,
		RescanMaxInflight: 4,

		Notifications: true,

		Window: &WindowConfig{
			Title:     "Stow Dashboard",
			Width:     1400,
			Height:    900,
			MinWidth:  800,
			MinHeight: 600,
		},

		Logging: &LogConfig{
			Level:         "info",
			EnableFile:    true,
			EnableConsole: true,
			Filename:      "desktop.log",
			MaxSize:       10, // 10MB
			MaxBackups:    5,  // 5 backup files
			MaxAge:        30, // 30 days
			Compress:      true,
			JSONFormat:    false,
		},
	}
}

// ServerAddr returns the host:port the supervised server listens on
func (c *Config) ServerAddr() string {
	return c.Hostname + ":" + strconv.Itoa(c.Port)
}

// ServerURL returns the root URL of the supervised server
func (c *Config) ServerURL() string {
	return fmt.Sprintf("http://%s", c.ServerAddr())
}

// RescanURL returns the endpoint that asks the server to re-scan its data
func (c *Config) RescanURL() string {
	return c.ServerURL() + c.RescanPath
}
