// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

// Package config loads authd settings from defaults, an optional YAML file,
// AUTHD_* environment variables and command-line flags, in that order.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/dealscope/authd/internal/auth"
	"github.com/dealscope/authd/internal/logging"
)

// EnvPrefix is the prefix of environment overrides, e.g. AUTHD_SECRET_KEY.
const EnvPrefix = "AUTHD_"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Process defaults, also shown as flag defaults.
const (
	DefaultHTTPAddr        = ":8000"
	DefaultMetricsAddr     = "127.0.0.1:9100"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultAllowedOrigin   = "http://localhost:3000"
	DefaultLogFormat       = "json"
	DefaultLogLevel        = "info"
)

// Config is the full runtime configuration.
type Config struct {
	SecretKey             string        `koanf:"secret_key"`
	AccessTokenTTL        time.Duration `koanf:"access_token_ttl"`
	SessionDuration       time.Duration `koanf:"session_duration"`
	MaxConcurrentSessions int           `koanf:"max_concurrent_sessions"`
	PasswordMinLength     int           `koanf:"password_min_length"`
	MaxLoginAttempts      int           `koanf:"max_login_attempts"`
	LockoutDuration       time.Duration `koanf:"lockout_duration"`
	BcryptCost            int           `koanf:"bcrypt_cost"`

	HTTPAddr          string        `koanf:"http_addr"`
	MetricsAddr       string        `koanf:"metrics_addr"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	AllowedOrigins    []string      `koanf:"allowed_origins"`
	TrustProxyHeaders bool          `koanf:"trust_proxy_headers"`

	Store       string `koanf:"store"`
	DatabaseURL string `koanf:"database_url"`

	LogFormat string `koanf:"log_format"`
	LogLevel  string `koanf:"log_level"`
}

func defaults() map[string]any {
	return map[string]any{
		"access_token_ttl":        auth.DefaultAccessTokenTTL.String(),
		"session_duration":        auth.DefaultSessionDuration.String(),
		"max_concurrent_sessions": auth.DefaultMaxConcurrentSessions,
		"password_min_length":     auth.DefaultPasswordMinLength,
		"max_login_attempts":      auth.DefaultMaxLoginAttempts,
		"lockout_duration":        auth.DefaultLockoutDuration.String(),
		"bcrypt_cost":             auth.DefaultBcryptCost,
		"http_addr":               DefaultHTTPAddr,
		"metrics_addr":            DefaultMetricsAddr,
		"shutdown_timeout":        DefaultShutdownTimeout.String(),
		"allowed_origins":         []string{DefaultAllowedOrigin},
		"trust_proxy_headers":     false,
		"store":                   StorePostgres,
		"log_format":              DefaultLogFormat,
		"log_level":               DefaultLogLevel,
	}
}

// Load layers the sources and validates the result. path may be empty;
// flags may be nil. Only flags the user set override earlier layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read layers the sources like Load but skips validation. Commands that
// need only part of the configuration, such as migrate, check what they use.
func Read(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagValue(flags)), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	return &cfg, nil
}

// envKey maps AUTHD_MAX_LOGIN_ATTEMPTS to max_login_attempts.
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// flagValue maps --max-login-attempts to max_login_attempts.
func flagValue(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			return key, slice.GetSlice()
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// Auth returns the policy settings for the auth services.
func (c *Config) Auth() auth.Config {
	return auth.Config{
		SecretKey:             c.SecretKey,
		AccessTokenTTL:        c.AccessTokenTTL,
		SessionDuration:       c.SessionDuration,
		MaxConcurrentSessions: c.MaxConcurrentSessions,
		PasswordMinLength:     c.PasswordMinLength,
		MaxLoginAttempts:      c.MaxLoginAttempts,
		LockoutDuration:       c.LockoutDuration,
		BcryptCost:            c.BcryptCost,
	}
}

// SlogLevel returns the parsed log level.
func (c *Config) SlogLevel() slog.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks the auth policy and the process settings.
func (c *Config) Validate() error {
	if err := c.Auth().Validate(); err != nil {
		return err
	}
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").With("field", "database_url").
				Errorf("database url is required for the postgres store")
		}
	case StoreMemory:
	default:
		return oops.Code("CONFIG_INVALID").With("field", "store").
			Errorf("store must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").With("field", "http_addr").Errorf("http address is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").With("field", "log_format").
			Errorf("log format must be json or text, got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "log_level").
			Errorf("unknown log level %q", c.LogLevel)
	}
	if c.ShutdownTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").With("field", "shutdown_timeout").
			Errorf("shutdown timeout must be positive")
	}
	return nil
}
