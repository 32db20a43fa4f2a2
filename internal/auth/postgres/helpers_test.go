// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package postgres_test

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/dealscope/authd/internal/auth"
)

var accountColumnNames = []string{
	"id", "email", "password_hash", "full_name", "role", "is_active", "is_verified",
	"phone", "company", "license_number", "specialties", "experience_years", "bio", "avatar_url",
	"login_attempts", "locked_until", "last_login", "two_factor_enabled", "two_factor_secret",
	"created_at", "updated_at",
}

var sessionColumnNames = []string{
	"id", "account_id", "device_fingerprint", "ip_address", "user_agent", "device_info",
	"is_active", "is_suspicious", "location_country", "location_city",
	"last_activity", "expires_at", "created_at",
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleAccount() *auth.Account {
	return &auth.Account{
		ID:           ulid.Make(),
		Email:        "agent@example.com",
		PasswordHash: "$2a$04$hash",
		FullName:     "Test Agent",
		Role:         auth.RoleStandard,
		IsActive:     true,
		Profile: auth.Profile{
			Company:     "Acme Realty",
			Specialties: []string{"multifamily"},
		},
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
}

func accountRows(accounts ...*auth.Account) *pgxmock.Rows {
	rows := pgxmock.NewRows(accountColumnNames)
	for _, a := range accounts {
		specialties := a.Profile.Specialties
		if specialties == nil {
			specialties = []string{}
		}
		rows.AddRow(
			a.ID.String(), a.Email, a.PasswordHash, a.FullName, string(a.Role), a.IsActive, a.IsVerified,
			a.Profile.Phone, a.Profile.Company, a.Profile.LicenseNumber, specialties,
			a.Profile.ExperienceYears, a.Profile.Bio, a.Profile.AvatarURL,
			a.LoginAttempts, a.LockedUntil, a.LastLogin, a.TwoFactorEnabled, a.TwoFactorSecret,
			a.CreatedAt, a.UpdatedAt,
		)
	}
	return rows
}

func sessionRow(rows *pgxmock.Rows, s *auth.Session) *pgxmock.Rows {
	var country, city *string
	if s.LocationCountry != "" {
		country = &s.LocationCountry
	}
	if s.LocationCity != "" {
		city = &s.LocationCity
	}
	return rows.AddRow(
		s.ID.String(), s.AccountID.String(), s.DeviceFingerprint, s.IPAddress, s.UserAgent,
		[]byte(`{"fingerprint":"`+s.DeviceFingerprint+`","browser":"Chrome","os":"Windows"}`),
		s.IsActive, s.Suspicious, country, city,
		s.LastActivity, s.ExpiresAt, s.CreatedAt,
	)
}
