// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token purposes carried in the "type" claim.
const (
	PurposeAccess        = "access"
	PurposePasswordReset = "password_reset"
)

const tokenIssuer = "authd"

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	AccountID         ulid.ULID
	SessionID         ulid.ULID
	DeviceFingerprint string
	Role              Role
	TokenID           string
	IssuedAt          time.Time
	ExpiresAt         time.Time
}

type accessTokenClaims struct {
	UserID            string `json:"user_id"`
	SessionID         string `json:"session_id"`
	DeviceFingerprint string `json:"device_fingerprint"`
	Role              Role   `json:"role"`
	Type              string `json:"type"`
	jwt.RegisteredClaims
}

type resetTokenClaims struct {
	Email   string `json:"email"`
	Type    string `json:"type"`
	Binding string `json:"pwb,omitempty"`
	jwt.RegisteredClaims
}

// PasswordResetGrant is the verified content of a password-reset token.
// Binding, when set, is PasswordBinding of the hash the token was issued
// against; a token whose binding no longer matches has already been used.
type PasswordResetGrant struct {
	Email   string
	Binding string
}

// TokenService signs and verifies HS256 tokens with a server-held secret.
type TokenService struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a TokenService. ttl is used when IssueAccessToken
// is called with a zero ttl. Only WithClock affects a TokenService.
func NewTokenService(secret string, ttl time.Duration, opts ...Option) (*TokenService, error) {
	if len(secret) < minSecretKeyLength {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			Errorf("token secret must be at least %d bytes", minSecretKeyLength)
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	o := buildOptions(opts)
	return &TokenService{
		secret:     []byte(secret),
		defaultTTL: ttl,
		now:        o.now,
	}, nil
}

// IssueAccessToken signs an access token for the given claims. IssuedAt,
// ExpiresAt and TokenID on the input are ignored and filled in from ttl.
func (s *TokenService) IssueAccessToken(claims AccessClaims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		UserID:            claims.AccountID.String(),
		SessionID:         claims.SessionID.String(),
		DeviceFingerprint: claims.DeviceFingerprint,
		Role:              claims.Role,
		Type:              PurposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   claims.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").
			With("session_id", claims.SessionID.String()).
			Wrap(err)
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken checks signature, expiry and purpose. Every failure is
// reported as ErrInvalidToken.
func (s *TokenService) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &accessTokenClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Type != PurposeAccess {
		return nil, invalidToken("wrong purpose")
	}

	accountID, err := ulid.Parse(claims.UserID)
	if err != nil {
		return nil, invalidToken("malformed user_id")
	}
	sessionID, err := ulid.Parse(claims.SessionID)
	if err != nil {
		return nil, invalidToken("malformed session_id")
	}

	out := &AccessClaims{
		AccountID:         accountID,
		SessionID:         sessionID,
		DeviceFingerprint: claims.DeviceFingerprint,
		Role:              claims.Role,
		TokenID:           claims.ID,
		ExpiresAt:         claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// IssuePasswordResetToken signs a one-hour password reset token without a
// password binding. PasswordResetService.ConfirmReset rejects such tokens.
func (s *TokenService) IssuePasswordResetToken(email string) (string, error) {
	return s.IssueBoundPasswordResetToken(email, "")
}

// IssueBoundPasswordResetToken is IssuePasswordResetToken with a binding to
// the account's current password hash, see PasswordBinding.
func (s *TokenService) IssueBoundPasswordResetToken(email, binding string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, resetTokenClaims{
		Email:   email,
		Type:    PurposePasswordReset,
		Binding: binding,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(PasswordResetTTL)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("purpose", PurposePasswordReset).Wrap(err)
	}
	return signed, nil
}

// VerifyPasswordResetToken returns the email the token was issued for.
// Tokens of any other purpose are rejected even when correctly signed.
func (s *TokenService) VerifyPasswordResetToken(token string) (string, error) {
	grant, err := s.ParsePasswordResetToken(token)
	if err != nil {
		return "", err
	}
	return grant.Email, nil
}

// ParsePasswordResetToken verifies a reset token and returns its grant.
func (s *TokenService) ParsePasswordResetToken(token string) (*PasswordResetGrant, error) {
	claims := &resetTokenClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.Type != PurposePasswordReset {
		return nil, invalidToken("wrong purpose")
	}
	if claims.Email == "" {
		return nil, invalidToken("missing email")
	}
	return &PasswordResetGrant{Email: claims.Email, Binding: claims.Binding}, nil
}

// PasswordBinding derives a short, non-reversible tag from a password hash.
func PasswordBinding(passwordHash string) string {
	sum := sha256.Sum256([]byte("password-reset|" + passwordHash))
	return hex.EncodeToString(sum[:8])
}

func (s *TokenService) parse(token string, claims jwt.Claims) error {
	if token == "" {
		return invalidToken("empty")
	}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return oops.Code(CodeInvalidToken).
			With("reason", err.Error()).
			Wrap(ErrInvalidToken)
	}
	return nil
}
