// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

// Package config loads server configuration from a YAML file, command line
// flags, and environment variables. Precedence, lowest to highest: defaults,
// config file, flags, environment.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig holds secrets and lifetimes for the auth service.
type AuthConfig struct {
	// SessionKey is the HMAC key for session secret digests. Rotating it
	// invalidates every stored session.
	SessionKey string `koanf:"session_key"`
	// AccessKey signs short-lived access tokens.
	AccessKey  string        `koanf:"access_key"`
	SessionTTL time.Duration `koanf:"session_ttl"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
}

// SMTPConfig holds mail delivery settings. When Enabled is false, reset
// codes are written to the log instead of sent.
type SMTPConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig holds the metrics/health listener settings. An empty Addr
// disables the listener.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the configuration used when no file, flag, or environment
// override is present.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080"},
		Auth:    AuthConfig{SessionTTL: 30 * 24 * time.Hour, AccessTTL: 15 * time.Minute},
		SMTP:    SMTPConfig{Port: 587},
		Log:     LogConfig{Format: "json", Level: "info"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9101"},
	}
}

// flagKeys maps command line flag names to config keys. Flags not listed
// here do not participate in config loading.
var flagKeys = map[string]string{
	"listen-addr":  "server.addr",
	"database-url": "database.url",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// envKeys maps environment variables to config keys. Secrets are accepted
// only through the environment or the config file, never flags.
var envKeys = map[string]string{
	"DATABASE_URL":         "database.url",
	"PRAXIS_SESSION_KEY":   "auth.session_key",
	"PRAXIS_ACCESS_KEY":    "auth.access_key",
	"PRAXIS_SMTP_PASSWORD": "smtp.password",
}

// Load builds a Config from the given file path (optional, empty to skip)
// and flag set (optional, nil to skip), then applies environment overrides
// and validates the result.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		p := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	for env, key := range envKeys {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		switch key {
		case "database.url":
			cfg.Database.URL = val
		case "auth.session_key":
			cfg.Auth.SessionKey = val
		case "auth.access_key":
			cfg.Auth.AccessKey = val
		case "smtp.password":
			cfg.SMTP.Password = val
		}
	}
}

// Validate checks that the configuration can actually run a server.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (database.url or DATABASE_URL)")
	}
	if c.Auth.SessionKey == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session key is required (auth.session_key or PRAXIS_SESSION_KEY)")
	}
	if c.Auth.AccessKey == "" {
		return oops.Code("CONFIG_INVALID").Errorf("access key is required (auth.access_key or PRAXIS_ACCESS_KEY)")
	}
	if c.Auth.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("session_ttl", c.Auth.SessionTTL.String()).
			Errorf("session TTL must be positive")
	}
	if c.Auth.AccessTTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("access_ttl", c.Auth.AccessTTL.String()).
			Errorf("access TTL must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("format", c.Log.Format).
			Errorf("log format must be json or text")
	}
	if c.SMTP.Enabled {
		if c.SMTP.Host == "" || c.SMTP.From == "" {
			return oops.Code("CONFIG_INVALID").Errorf("smtp host and from are required when smtp is enabled")
		}
	}
	return nil
}

// RegisterFlags adds the config-backed flags to a flag set. The keys in
// flagKeys must stay in sync with the names registered here.
func RegisterFlags(flags *pflag.FlagSet) {
	def := Default()
	flags.String("listen-addr", def.Server.Addr, "HTTP listen address")
	flags.String("database-url", "", "PostgreSQL connection URL")
	flags.String("metrics-addr", def.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	flags.String("log-format", def.Log.Format, "log format (json or text)")
	flags.String("log-level", def.Log.Level, "log level (debug, info, warn, error)")
}
