// Package config loads knoldeck settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/srs"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates sections: KNOLDECK_STORAGE__PATH sets storage.path.
const EnvPrefix = "KNOLDECK_"

// Config holds all application configuration.
type Config struct {
	Log       LogConfig     `koanf:"log"`
	Storage   StorageConfig `koanf:"storage"`
	Session   SessionConfig `koanf:"session"`
	Scheduler srs.Params    `koanf:"scheduler"`
	Server    ServerConfig  `koanf:"server"`
	Import    ImportConfig  `koanf:"import"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// StorageConfig locates the SQLite database and the bundle key inside it.
type StorageConfig struct {
	Path string `koanf:"path" validate:"required"`
	Key  string `koanf:"key" validate:"required"`
}

// SessionConfig controls review order and day boundaries.
type SessionConfig struct {
	Policy   string `koanf:"policy" validate:"oneof=round-robin due-first"`
	Timezone string `koanf:"timezone" validate:"required"`
}

// Location resolves Timezone.
func (c SessionConfig) Location() (*time.Location, error) {
	if c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid session.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `koanf:"addr" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
}

// ImportConfig configures deck imports.
type ImportConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:       LogConfig{Level: "info", Format: "text"},
		Storage:   StorageConfig{Path: "knoldeck.db", Key: storage.DefaultKey},
		Session:   SessionConfig{Policy: "round-robin", Timezone: "Local"},
		Scheduler: srs.DefaultParams(),
		Server:    ServerConfig{Addr: ":8080", ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
		Import:    ImportConfig{ReposDir: "repos"},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":          "storage.path",
	"storage-key": "storage.key",
	"policy":      "session.policy",
	"timezone":    "session.timezone",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"addr":        "server.addr",
	"repos-dir":   "import.repos_dir",
}

// RegisterFlags adds the overridable settings to fs with the defaults as flag defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "knoldeck.yaml", "Path to the YAML config file")
	fs.String("db", d.Storage.Path, "Path to the SQLite database file")
	fs.String("storage-key", d.Storage.Key, "Key the session is saved under")
	fs.String("policy", d.Session.Policy, "Review order: round-robin or due-first")
	fs.String("timezone", d.Session.Timezone, "IANA time zone used for daily stats")
	fs.String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
	fs.String("log-format", d.Log.Format, "Log format: text or json")
}

// Load builds the configuration. A missing config file is not an error.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	envKey := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		flagKey := func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Session.Location(); err != nil {
		return err
	}
	return nil
}

// NewLogger builds the slog logger described by c.
func NewLogger(c LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
