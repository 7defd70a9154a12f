package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend names accepted by the backend key.
const (
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

// Config holds the resolved application configuration.
type Config struct {
	// Backend selects the library store: "sqlite" (default) or "http".
	Backend string `mapstructure:"backend"`
	// Database is the SQLite file used by the sqlite backend.
	Database string `mapstructure:"database"`
	// ServerURL, SessionCookie and CSRFToken configure the http backend.
	ServerURL     string `mapstructure:"server_url"`
	SessionCookie string `mapstructure:"session_cookie"`
	CSRFToken     string `mapstructure:"csrf_token"`

	// Theme name: "dark" (default) or "light".
	Theme string `mapstructure:"theme"`
	// ConfirmDestructive prompts before emptying folders or leaving shares.
	ConfirmDestructive bool `mapstructure:"confirm_destructive"`

	HoverSettle       time.Duration `mapstructure:"hover_settle"`
	HighlightDuration time.Duration `mapstructure:"highlight_duration"`
	ReconcileQuiet    time.Duration `mapstructure:"reconcile_quiet"`
	DropSettle        time.Duration `mapstructure:"drop_settle"`
	CoverWait         time.Duration `mapstructure:"cover_wait"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	WatchDebounce     time.Duration `mapstructure:"watch_debounce"`

	// LogFile is where the TUI logs; empty disables logging.
	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from ~/.config/crate/config.yaml (or TOML/JSON)
// and ./config.yaml, with CRATE_* environment overrides.
func Load() (*Config, error) {
	return load(viper.New(), configDirectory())
}

func load(v *viper.Viper, dir string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("CRATE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is fine; use defaults.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.Database == "" {
			return errors.New("config: database is required for the sqlite backend")
		}
	case BackendHTTP:
		if c.ServerURL == "" {
			return errors.New("config: server_url is required for the http backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("database", filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "library.db"))
	v.SetDefault("server_url", "")
	v.SetDefault("session_cookie", "")
	v.SetDefault("csrf_token", "")
	v.SetDefault("theme", "dark")
	v.SetDefault("confirm_destructive", true)
	v.SetDefault("hover_settle", 250*time.Millisecond)
	v.SetDefault("highlight_duration", 500*time.Millisecond)
	v.SetDefault("reconcile_quiet", 50*time.Millisecond)
	v.SetDefault("drop_settle", 500*time.Millisecond)
	v.SetDefault("cover_wait", time.Second)
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("cache_ttl", 2*time.Second)
	v.SetDefault("watch_debounce", 300*time.Millisecond)
	v.SetDefault("log_file", filepath.Join(xdgDir("XDG_STATE_HOME", ".local", "state"), "crate.log"))
	v.SetDefault("log_level", "info")
}

func configDirectory() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// xdgDir resolves $env/crate, falling back to ~/<fallback...>/crate.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, "crate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(append(append([]string{home}, fallback...), "crate")...)
}
