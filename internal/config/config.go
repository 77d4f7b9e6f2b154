package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "http://localhost:3001"
	DefaultRequestTimeout = 10 * time.Second
	DefaultTitle          = "No name"
	DefaultTickInterval   = time.Second
	DefaultTimezone       = "Local"
	DefaultRefreshCron    = "*/5 * * * *"
	DefaultLogLevel       = "info"
	DefaultListen         = "127.0.0.1:3001"
)

// ServerConfig configures the reference events server (`caltrack serve`).
type ServerConfig struct {
	Listen string `yaml:"listen" json:"listen"`
}

// Config is the top-level application configuration.
type Config struct {
	// BaseURL is the root of the remote events service; "/events" is appended.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// RequestTimeout bounds every single remote call.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// DefaultTitle names entries created by the session timer.
	DefaultTitle string `yaml:"default_title" json:"default_title"`

	// TickInterval drives the elapsed readout while recording. It never
	// affects the stored end time.
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`

	// Timezone is an IANA name or "Local", used for daily reports.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is the cron schedule used by `caltrack watch`.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Server ServerConfig `yaml:"server" json:"server"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: DefaultRequestTimeout,
		DefaultTitle:   DefaultTitle,
		TickInterval:   DefaultTickInterval,
		Timezone:       DefaultTimezone,
		RefreshCron:    DefaultRefreshCron,
		LogLevel:       DefaultLogLevel,
		Server:         ServerConfig{Listen: DefaultListen},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if strings.TrimSpace(c.DefaultTitle) == "" {
		c.DefaultTitle = DefaultTitle
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
}

// ApplyEnv overrides fields from CALTRACK_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CALTRACK_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("CALTRACK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	c.Normalize()
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read, unmarshalled and normalized.
//
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename,
// creating the parent directory (0700) and leaving the file at 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".caltrack-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// DefaultPath returns $XDG_CONFIG_HOME/caltrack/config.yaml or the
// platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "caltrack.yaml"
	}
	return filepath.Join(dir, "caltrack", "config.yaml")
}
