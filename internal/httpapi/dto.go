// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package httpapi

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dealscope/authd/internal/auth"
)

type deviceInfoRequest struct {
	Fingerprint      string `json:"fingerprint"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
}

type registerRequest struct {
	Email           string             `json:"email"`
	Password        string             `json:"password"`
	FullName        string             `json:"full_name"`
	Phone           string             `json:"phone"`
	Company         string             `json:"company"`
	LicenseNumber   string             `json:"license_number"`
	Specialties     []string           `json:"specialties"`
	ExperienceYears *int               `json:"experience_years"`
	Bio             string             `json:"bio"`
	AvatarURL       string             `json:"avatar_url"`
	DeviceInfo      *deviceInfoRequest `json:"device_info"`
}

func (r registerRequest) profile() auth.Profile {
	return auth.Profile{
		Phone:           r.Phone,
		Company:         r.Company,
		LicenseNumber:   r.LicenseNumber,
		Specialties:     r.Specialties,
		ExperienceYears: r.ExperienceYears,
		Bio:             r.Bio,
		AvatarURL:       r.AvatarURL,
	}
}

type loginRequest struct {
	Email      string             `json:"email"`
	Password   string             `json:"password"`
	DeviceInfo *deviceInfoRequest `json:"device_info"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type userSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	SessionID   string      `json:"session_id"`
	User        userSummary `json:"user"`
}

func newTokenResponse(res *auth.LoginResult) tokenResponse {
	return tokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresIn:   int64(res.ExpiresIn / time.Second),
		SessionID:   res.Session.ID.String(),
		User: userSummary{
			ID:       res.Account.ID.String(),
			Email:    res.Account.Email,
			FullName: res.Account.FullName,
			Role:     string(res.Account.Role),
		},
	}
}

type userResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	auth.Profile
}

func newUserResponse(a *auth.Account) userResponse {
	return userResponse{
		ID:         a.ID.String(),
		Email:      a.Email,
		FullName:   a.FullName,
		Role:       string(a.Role),
		IsActive:   a.IsActive,
		IsVerified: a.IsVerified,
		LastLogin:  a.LastLogin,
		CreatedAt:  a.CreatedAt,
		Profile:    a.Profile,
	}
}

type sessionResponse struct {
	ID                string    `json:"id"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	IPAddress         string    `json:"ip_address"`
	UserAgent         string    `json:"user_agent"`
	Browser           string    `json:"browser"`
	OS                string    `json:"os"`
	IsActive          bool      `json:"is_active"`
	IsCurrent         bool      `json:"is_current"`
	Suspicious        bool      `json:"suspicious"`
	LastActivity      time.Time `json:"last_activity"`
	ExpiresAt         time.Time `json:"expires_at"`
	CreatedAt         time.Time `json:"created_at"`
}

type sessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func newSessionsResponse(sessions []*auth.Session, current ulid.ULID) sessionsResponse {
	out := sessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, sessionResponse{
			ID:                s.ID.String(),
			DeviceFingerprint: s.DeviceFingerprint,
			IPAddress:         s.IPAddress,
			UserAgent:         s.UserAgent,
			Browser:           s.DeviceInfo.Browser,
			OS:                s.DeviceInfo.OS,
			IsActive:          s.IsActive,
			IsCurrent:         s.ID == current,
			Suspicious:        s.Suspicious,
			LastActivity:      s.LastActivity,
			ExpiresAt:         s.ExpiresAt,
			CreatedAt:         s.CreatedAt,
		})
	}
	return out
}

type securityEventResponse struct {
	ID                string         `json:"id"`
	EventType         string         `json:"event_type"`
	Severity          string         `json:"severity"`
	SessionID         string         `json:"session_id,omitempty"`
	IPAddress         string         `json:"ip_address,omitempty"`
	DeviceFingerprint string         `json:"device_fingerprint,omitempty"`
	Details           map[string]any `json:"details,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

type securityEventsResponse struct {
	Events []securityEventResponse `json:"events"`
}

func newSecurityEventsResponse(events []*auth.SecurityEvent) securityEventsResponse {
	out := securityEventsResponse{Events: make([]securityEventResponse, 0, len(events))}
	for _, e := range events {
		item := securityEventResponse{
			ID:                e.ID.String(),
			EventType:         string(e.EventType),
			Severity:          string(e.Severity),
			IPAddress:         e.IPAddress,
			DeviceFingerprint: e.DeviceFingerprint,
			Details:           e.Details,
			CreatedAt:         e.CreatedAt,
		}
		if e.SessionID != nil {
			item.SessionID = e.SessionID.String()
		}
		out.Events = append(out.Events, item)
	}
	return out
}

type messageResponse struct {
	Message             string `json:"message"`
	SessionsInvalidated *int64 `json:"sessions_invalidated,omitempty"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
