// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Default policy values.
const (
	DefaultAccessTokenTTL        = 24 * time.Hour
	DefaultSessionDuration       = 24 * time.Hour
	DefaultMaxConcurrentSessions = 3
	DefaultPasswordMinLength     = 8
	DefaultMaxLoginAttempts      = 5
	DefaultLockoutDuration       = 30 * time.Minute
	DefaultBcryptCost            = 12

	// PasswordResetTTL is fixed; it is not part of the configuration surface.
	PasswordResetTTL = time.Hour

	minSecretKeyLength = 32
)

// Config carries the policy knobs every service in this package is built with.
type Config struct {
	SecretKey             string
	AccessTokenTTL        time.Duration
	SessionDuration       time.Duration
	MaxConcurrentSessions int
	PasswordMinLength     int
	MaxLoginAttempts      int
	LockoutDuration       time.Duration
	BcryptCost            int
}

// DefaultConfig returns a Config with every default applied and the given secret.
func DefaultConfig(secretKey string) Config {
	return Config{
		SecretKey:             secretKey,
		AccessTokenTTL:        DefaultAccessTokenTTL,
		SessionDuration:       DefaultSessionDuration,
		MaxConcurrentSessions: DefaultMaxConcurrentSessions,
		PasswordMinLength:     DefaultPasswordMinLength,
		MaxLoginAttempts:      DefaultMaxLoginAttempts,
		LockoutDuration:       DefaultLockoutDuration,
		BcryptCost:            DefaultBcryptCost,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case len(c.SecretKey) < minSecretKeyLength:
		return oops.Code("CONFIG_INVALID").With("field", "secret_key").
			Errorf("secret key must be at least %d bytes", minSecretKeyLength)
	case c.AccessTokenTTL <= 0:
		return oops.Code("CONFIG_INVALID").With("field", "access_token_ttl").
			Errorf("access token ttl must be positive")
	case c.SessionDuration <= 0:
		return oops.Code("CONFIG_INVALID").With("field", "session_duration").
			Errorf("session duration must be positive")
	case c.MaxConcurrentSessions < 1:
		return oops.Code("CONFIG_INVALID").With("field", "max_concurrent_sessions").
			Errorf("max concurrent sessions must be at least 1")
	case c.PasswordMinLength < 1:
		return oops.Code("CONFIG_INVALID").With("field", "password_min_length").
			Errorf("password minimum length must be at least 1")
	case c.MaxLoginAttempts < 1:
		return oops.Code("CONFIG_INVALID").With("field", "max_login_attempts").
			Errorf("max login attempts must be at least 1")
	case c.LockoutDuration <= 0:
		return oops.Code("CONFIG_INVALID").With("field", "lockout_duration").
			Errorf("lockout duration must be positive")
	case c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost:
		return oops.Code("CONFIG_INVALID").With("field", "bcrypt_cost").
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}
