// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"

	"github.com/dealscope/authd/internal/auth"
	"github.com/dealscope/authd/pkg/errutil"
)

// passwordResetMessage is returned whether or not the email is registered.
const passwordResetMessage = "If the email is registered, a password reset link has been sent"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Register(r.Context(), auth.RegisterRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		FullName:  req.FullName,
		Profile:   req.profile(),
		Device:    deviceMetadata(r, req.DeviceInfo),
		IPAddress: s.clientIP(r),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTokenResponse(res))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Login(r.Context(), auth.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		Device:    deviceMetadata(r, req.DeviceInfo),
		IPAddress: s.clientIP(r),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newTokenResponse(res))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	if err := s.svc.Logout(r.Context(), principal); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	n, err := s.svc.LogoutAll(r.Context(), principal)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{
		Message:             "Logged out from all devices",
		SessionsInvalidated: &n,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	respondJSON(w, http.StatusOK, newUserResponse(principal.Account))
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	if err := s.svc.DeleteAccount(r.Context(), principal.Account.ID); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Account deleted"})
}

// handlePasswordReset answers the same way for every outcome so the
// response cannot be used to probe for registered emails. The token only
// travels through the notifier.
func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.svc.RequestPasswordReset(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		errutil.LogErrorContext(r.Context(), s.logger, "password reset request failed", err)
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: passwordResetMessage})
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Password reset successfully"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	sessions, err := s.svc.ListSessions(r.Context(), principal.Account.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionsResponse(sessions, principal.SessionID))
}

func (s *Server) handleInvalidateSession(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	sessionID, err := ulid.ParseStrict(mux.Vars(r)["id"])
	if err != nil {
		respondProblem(w, r, http.StatusNotFound, CodeNotFound, auth.ErrNotFound.Error())
		return
	}
	if err := s.svc.InvalidateSession(r.Context(), principal.Account.ID, sessionID); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Session invalidated successfully"})
}

func (s *Server) handleInvalidateAllSessions(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	n, err := s.svc.InvalidateAllSessions(r.Context(), principal.Account.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{
		Message:             "All sessions invalidated successfully",
		SessionsInvalidated: &n,
	})
}

func (s *Server) handleSecurityEvents(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	limit := auth.DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondProblem(w, r, http.StatusBadRequest, CodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := s.svc.ListSecurityEvents(r.Context(), principal.Account.ID, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newSecurityEventsResponse(events))
}
