// Package config manages rndc-go configuration using koanf/v2.
//
// Supports YAML files, environment variables, and CLI flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete rndc-go configuration: the client/server
// connection parameters plus logging.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
}

// ServerConfig holds the connection parameters a client uses to reach a
// name server's control channel, and the address a reference server
// listens on.
type ServerConfig struct {
	// Host is the control channel's hostname or IP address. The
	// undocumented "server" key is accepted as an alias for this field,
	// matching long-standing rndc.conf usage where an options clause
	// names "server" instead of "default-server".
	Host string `koanf:"host"`

	// Port is the control channel's TCP port.
	Port int `koanf:"port"`

	// Key is the Base64-encoded HMAC-MD5 shared secret. Mutually
	// exclusive with KeyFile; if both are set, KeyFile wins.
	Key string `koanf:"key"`

	// KeyFile is a path to a file holding the Base64-encoded key,
	// mirroring BIND's rndc.key convention.
	KeyFile string `koanf:"key-file"`

	// MetricsAddr is the HTTP listen address for the Prometheus metrics
	// endpoint (reference server only, e.g. ":9100"). Empty disables it.
	MetricsAddr string `koanf:"metrics-addr"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults: BIND's
// traditional rndc port and loopback host, text logging at info level.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 953,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for rndc-go configuration.
// Variables are named RNDC_<section>_<key>, e.g., RNDC_SERVER_PORT.
const envPrefix = "RNDC_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (RNDC_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults. path may be empty, in which case only
// defaults and environment overrides apply.
//
// Environment variable mapping:
//
//	RNDC_SERVER_HOST    -> server.host
//	RNDC_SERVER_PORT    -> server.port
//	RNDC_SERVER_KEY     -> server.key
//	RNDC_LOG_LEVEL      -> log.level
//	RNDC_LOG_FORMAT     -> log.format
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	cfg, err := LoadPartial(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}
	return cfg, nil
}

// LoadPartial performs every step Load does -- file, environment, the
// "server" alias, and key-file resolution -- except the final Validate
// call. It exists for callers such as the CLI that still need to apply
// their own flag overrides (e.g. --key) before the result can be
// validated.
func LoadPartial(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	// The "server" key is an undocumented alias for "server.host": a
	// bare scalar at the same path the server sub-table occupies. koanf
	// lets that scalar replace the whole sub-table, defaults included, so
	// rebuild the sub-table from the alias and the default port before
	// the environment layer merges its own server.* keys on top.
	if alias, ok := k.Get("server").(string); ok && alias != "" {
		aliased := map[string]any{"server.host": alias, "server.port": defaults.Server.Port}
		for key, val := range aliased {
			if err := k.Set(key, val); err != nil {
				return nil, fmt.Errorf("apply server alias: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := ResolveKey(cfg); err != nil {
		return nil, fmt.Errorf("resolve key from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms RNDC_SERVER_HOST -> server.host.
// Strips the RNDC_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"server.host": defaults.Server.Host,
		"server.port": defaults.Server.Port,
		"log.level":   defaults.Log.Level,
		"log.format":  defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Key resolution
// -------------------------------------------------------------------------

// ResolveKey fills cfg.Server.Key from cfg.Server.KeyFile when KeyFile is
// set, reading and trimming the file's contents. KeyFile takes precedence
// over an inline Key so a deployment can rotate a key on disk without
// editing the YAML file itself.
func ResolveKey(cfg *Config) error {
	if cfg.Server.KeyFile == "" {
		return nil
	}
	raw, err := readKeyFile(cfg.Server.KeyFile)
	if err != nil {
		return err
	}
	cfg.Server.Key = raw
	return nil
}

// readKeyFile reads and trims a key file's contents.
func readKeyFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read key file %s: %w", path, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyHost indicates the server host is empty.
	ErrEmptyHost = errors.New("server.host must not be empty")

	// ErrInvalidPort indicates the server port is out of range.
	ErrInvalidPort = errors.New("server.port must be between 1 and 65535")

	// ErrMissingKeyMaterial indicates neither key nor key-file is set.
	ErrMissingKeyMaterial = errors.New("server.key or server.key-file must be set")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Server.Host == "" {
		return ErrEmptyHost
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return ErrInvalidPort
	}

	if cfg.Server.Key == "" {
		return ErrMissingKeyMaterial
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
