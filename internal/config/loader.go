package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "STOW"

	// KeyConfig is the viper key holding an optional config file path
	KeyConfig = "config"
)

// flagKeys maps CLI flag names onto configuration keys where they differ
var flagKeys = map[string]string{
	"log-level":   "logging.level",
	"log-dir":     "logging.log-dir",
	"log-to-file": "logging.enable-file",
	"log-json":    "logging.json-format",
}

// NewViper creates a viper instance with defaults and environment binding.
// Flags, when given, take precedence over environment and config file values.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil {
				return
			}
			key := f.Name
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault(KeyConfig, "")
	v.SetDefault("port", d.Port)
	v.SetDefault("hostname", d.Hostname)
	v.SetDefault("server-dir", "")
	v.SetDefault("runtime", "")
	v.SetDefault("entry", d.Entry)
	v.SetDefault("env-file", d.EnvFile)
	v.SetDefault("standalone-subpath", d.StandaloneSubpath)
	v.SetDefault("search-depth", d.SearchDepth)
	v.SetDefault("skip-server", d.SkipServer)

	v.SetDefault("probe-timeout", d.ProbeTimeout)
	v.SetDefault("probe-interval", d.ProbeInterval)
	v.SetDefault("settle-delay", d.SettleDelay)
	v.SetDefault("stop-timeout", d.StopTimeout)

	v.SetDefault("rescan-path", d.RescanPath)
	v.SetDefault("rescan-timeout", d.RescanTimeout)
	v.SetDefault("rescan-max-inflight", d.RescanMaxInflight)

	v.SetDefault("notifications", d.Notifications)
	v.SetDefault("control-listen", "")
	v.SetDefault("control-token", "")
	v.SetDefault("icon", "")

	v.SetDefault("window.title", d.Window.Title)
	v.SetDefault("window.width", d.Window.Width)
	v.SetDefault("window.height", d.Window.Height)
	v.SetDefault("window.min-width", d.Window.MinWidth)
	v.SetDefault("window.min-height", d.Window.MinHeight)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.enable-file", d.Logging.EnableFile)
	v.SetDefault("logging.enable-console", d.Logging.EnableConsole)
	v.SetDefault("logging.filename", d.Logging.Filename)
	v.SetDefault("logging.log-dir", "")
	v.SetDefault("logging.max-size", d.Logging.MaxSize)
	v.SetDefault("logging.max-backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max-age", d.Logging.MaxAge)
	v.SetDefault("logging.compress", d.Logging.Compress)
	v.SetDefault("logging.json-format", d.Logging.JSONFormat)
}

// Load reads the optional config file, applies environment and flag
// overrides and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		var err error
		if v, err = NewViper(nil); err != nil {
			return nil, err
		}
	}

	if configPath := strings.TrimSpace(v.GetString(KeyConfig)); configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
