// Package config loads the ots configuration from <config dir>/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/Tiliavir/ots/internal/apperr"
)

const (
	// FileName is the config file inside the config directory.
	FileName = "config.toml"

	DefaultFilestore      = "filestore.db"
	DefaultHistoryDepth   = 10
	DefaultLogLevel       = "warn"
	DefaultKeyField       = "x_ots_key"
	DefaultTimeoutSeconds = 30
)

var (
	urlPattern      = regexp.MustCompile(`^https?://\S+$`)
	keyFieldPattern = regexp.MustCompile(`^x_[a-z0-9_]+$`)
)

// Config is the root configuration for ots.
type Config struct {
	// AutoMigrate upgrades an older filestore on open instead of refusing it.
	AutoMigrate bool `toml:"auto_migrate"`
	// Filestore is the store path; relative paths are resolved against the
	// config directory. A .db/.sqlite suffix selects the SQLite backend.
	Filestore    string  `toml:"filestore"`
	HistoryDepth int     `toml:"history_depth"`
	LogLevel     string  `toml:"log_level"`
	Backend      Backend `toml:"backend"`

	dir string
}

// Backend holds the Odoo connection settings. The API key itself lives in
// the session file written by login, never here.
type Backend struct {
	URL            string `toml:"url"`
	Database       string `toml:"database"`
	Login          string `toml:"login"`
	KeyField       string `toml:"key_field"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func defaultConfig(dir string) Config {
	return Config{
		AutoMigrate:  true,
		Filestore:    DefaultFilestore,
		HistoryDepth: DefaultHistoryDepth,
		LogLevel:     DefaultLogLevel,
		Backend: Backend{
			KeyField:       DefaultKeyField,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		dir: dir,
	}
}

// configTemplate is the annotated config written on first run.
const configTemplate = `# ots configuration
#
# Every setting is optional; the values below are the built-in defaults.
# OTS_AUTO_MIGRATE, OTS_FILESTORE, OTS_BACKEND_URL and OTS_LOG_LEVEL override
# the matching keys, also when set in the .env file next to this one.

# Upgrade a filestore written by an older ots automatically.
# With false, commands refuse to run until 'ots migrate' was called.
auto_migrate = true

# Where entries are stored. Relative paths are resolved against this
# directory. Files ending in .db, .sqlite or .sqlite3 use SQLite; anything
# else is treated as a directory of JSON files (one per day).
filestore = "filestore.db"

# How many previously running entries 'ots resume' remembers.
history_depth = 10

# Diagnostics on stderr: debug, info, warn or error.
log_level = "warn"

[backend]
# Odoo instance, database and login. 'ots login' fills these in.
url = ""
database = ""
login = ""

# Custom field on account.analytic.line that stores the push key, so a
# retried push finds the timesheet it already created.
key_field = "x_ots_key"

# Per-request timeout in seconds.
timeout_seconds = 30
`

// DefaultDir returns OTS_CONFIG_DIR, or ~/.ots when unset.
func DefaultDir() (string, error) {
	if dir := os.Getenv("OTS_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".ots"), nil
}

// Load reads dir/config.toml, creating it with annotated defaults on first
// run. dir/.env is loaded into the environment first; variables already set
// win over the file.
func Load(dir string) (Config, error) {
	cfg := defaultConfig(dir)

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
	case err != nil:
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return defaultConfig(dir), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if cfg.Backend.KeyField == "" {
		cfg.Backend.KeyField = DefaultKeyField
	}
	if err := cfg.Validate(); err != nil {
		return cfg, apperr.Errorf(apperr.ErrValidation, "invalid config %s: %v", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("OTS_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperr.Errorf(apperr.ErrValidation, "OTS_AUTO_MIGRATE=%q is not a boolean", v)
		}
		c.AutoMigrate = b
	}
	if v := os.Getenv("OTS_FILESTORE"); v != "" {
		c.Filestore = v
	}
	if v := os.Getenv("OTS_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("OTS_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Filestore, validation.Required),
		validation.Field(&c.HistoryDepth, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
	if err != nil {
		return err
	}
	return c.Backend.Validate()
}

// Validate checks the backend settings.
func (b *Backend) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.URL, validation.Match(urlPattern).Error("must be an http(s) URL")),
		validation.Field(&b.KeyField, validation.Match(keyFieldPattern).Error("must be a custom field name starting with x_")),
		validation.Field(&b.TimeoutSeconds, validation.Required, validation.Min(1), validation.Max(600)),
	)
}

// Dir returns the directory the config was loaded from.
func (c Config) Dir() string {
	return c.dir
}

// FilestorePath returns the absolute or config-relative store path.
func (c Config) FilestorePath() string {
	if filepath.IsAbs(c.Filestore) {
		return c.Filestore
	}
	return filepath.Join(c.dir, c.Filestore)
}

// Timeout returns the backend request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// SlogLevel maps LogLevel to a slog level; unknown values fall back to warn.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Save writes the config back to its directory. Comments of the annotated
// template are not preserved.
func (c Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path := filepath.Join(c.dir, FileName)
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	header := []byte("# ots configuration, see 'ots setup' for the annotated defaults\n\n")
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, append(header, data...), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving config file: %w", err)
	}
	return nil
}

// WriteTemplate writes the annotated defaults to dir/config.toml, replacing
// any existing file.
func WriteTemplate(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	return path, writeDefault(path)
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
