// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscope/authd/internal/auth"
	"github.com/dealscope/authd/internal/config"
	"github.com/dealscope/authd/pkg/errutil"
)

const testSecret = "config-test-secret-key-32-bytes-long!"

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTHD_SECRET_KEY", testSecret)
	t.Setenv("AUTHD_STORE", "memory")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, auth.DefaultAccessTokenTTL, cfg.AccessTokenTTL)
	assert.Equal(t, auth.DefaultSessionDuration, cfg.SessionDuration)
	assert.Equal(t, 3, cfg.MaxConcurrentSessions)
	assert.Equal(t, 8, cfg.PasswordMinLength)
	assert.Equal(t, 5, cfg.MaxLoginAttempts)
	assert.Equal(t, 30*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_Layering(t *testing.T) {
	path := writeFile(t, `
secret_key: `+testSecret+`
store: postgres
database_url: postgres://authd:authd@db:5432/authd
max_concurrent_sessions: 5
lockout_duration: 15m
allowed_origins:
  - https://app.example.com
  - https://admin.example.com
log_level: debug
`)

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := config.Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.MaxConcurrentSessions)
		assert.Equal(t, 15*time.Minute, cfg.LockoutDuration)
		assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
		assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("AUTHD_MAX_CONCURRENT_SESSIONS", "2")
		cfg, err := config.Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.MaxConcurrentSessions)
	})

	t.Run("changed flags override env", func(t *testing.T) {
		t.Setenv("AUTHD_MAX_CONCURRENT_SESSIONS", "2")
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("max-concurrent-sessions", 3, "")
		flags.String("http-addr", ":8000", "")
		require.NoError(t, flags.Parse([]string{"--max-concurrent-sessions=4"}))

		cfg, err := config.Load(path, flags)
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.MaxConcurrentSessions)
		assert.Equal(t, ":8000", cfg.HTTPAddr)
	})
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv("AUTHD_DATABASE_URL", "postgres://authd@db/authd")

	cfg, err := config.Read("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.SecretKey)
	assert.Equal(t, "postgres://authd@db/authd", cfg.DatabaseURL)
	assert.False(t, cfg.TrustProxyHeaders)

	_, err = config.Load("", nil)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			SecretKey:             testSecret,
			AccessTokenTTL:        time.Hour,
			SessionDuration:       time.Hour,
			MaxConcurrentSessions: 3,
			PasswordMinLength:     8,
			MaxLoginAttempts:      5,
			LockoutDuration:       time.Minute,
			BcryptCost:            10,
			HTTPAddr:              ":8000",
			ShutdownTimeout:       time.Second,
			Store:                 config.StoreMemory,
			LogFormat:             "json",
			LogLevel:              "info",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
		field  string
	}{
		{"short secret", func(c *config.Config) { c.SecretKey = "short" }, "secret_key"},
		{"zero session cap", func(c *config.Config) { c.MaxConcurrentSessions = 0 }, "max_concurrent_sessions"},
		{"bcrypt cost too high", func(c *config.Config) { c.BcryptCost = 40 }, "bcrypt_cost"},
		{"unknown store", func(c *config.Config) { c.Store = "redis" }, "store"},
		{"postgres without url", func(c *config.Config) { c.Store = config.StorePostgres }, "database_url"},
		{"bad log format", func(c *config.Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad log level", func(c *config.Config) { c.LogLevel = "loud" }, "log_level"},
		{"empty http addr", func(c *config.Config) { c.HTTPAddr = "" }, "http_addr"},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "field", tt.field)
		})
	}
}

func TestConfig_Auth(t *testing.T) {
	t.Setenv("AUTHD_SECRET_KEY", testSecret)
	t.Setenv("AUTHD_STORE", "memory")
	t.Setenv("AUTHD_BCRYPT_COST", "4")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	ac := cfg.Auth()
	assert.Equal(t, testSecret, ac.SecretKey)
	assert.Equal(t, 4, ac.BcryptCost)
	assert.NoError(t, ac.Validate())
}
