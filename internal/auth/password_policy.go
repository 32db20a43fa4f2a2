// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"unicode"
	"unicode/utf8"
)

// PasswordPolicy defines password complexity requirements.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
}

// NewPasswordPolicy returns the registration policy for the given minimum length.
func NewPasswordPolicy(minLength int) PasswordPolicy {
	return PasswordPolicy{
		MinLength:        minLength,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
	}
}

// Validate returns a validation error naming the first unmet requirement.
// Length is counted in characters, not bytes.
func (p PasswordPolicy) Validate(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return validationError("password", "password must be at least %d characters long", p.MinLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if p.RequireUppercase && !hasUpper {
		return validationError("password", "password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		return validationError("password", "password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		return validationError("password", "password must contain at least one digit")
	}
	return nil
}
