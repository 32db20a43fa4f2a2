// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/dealscope/authd/internal/auth"
	"github.com/dealscope/authd/pkg/errutil"
)

// Response codes for failures that do not come from the auth package.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL_ERROR"
)

// APIError is the body of every error response.
type APIError struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// statusFor classifies err by the sentinel it wraps.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, auth.CodeValidation
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict, auth.CodeDuplicateEmail
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.CodeInvalidCredentials
	case errors.Is(err, auth.ErrAccountLocked):
		return http.StatusLocked, auth.CodeAccountLocked
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, auth.CodeInvalidToken
	case errors.Is(err, auth.ErrSessionInactive):
		return http.StatusUnauthorized, auth.CodeSessionInactive
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondError writes err as an APIError. Server faults are logged with
// their oops context and reported to the client without detail.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := APIError{Code: code, RequestID: requestIDFrom(r.Context())}

	switch status {
	case http.StatusInternalServerError:
		errutil.LogErrorContext(r.Context(), s.logger, "request failed", err)
		body.Error = "internal server error"
	case http.StatusBadRequest:
		body.Error = err.Error()
		if field := contextString(err, "field"); field != "" {
			body.Details = map[string]string{"field": field}
		}
	case http.StatusLocked:
		body.Error = auth.ErrAccountLocked.Error()
		if until, ok := auth.LockedUntil(err); ok {
			body.Details = map[string]string{"locked_until": until.UTC().Format(time.RFC3339)}
		}
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="authd"`)
		body.Error = publicMessage(err)
	default:
		body.Error = publicMessage(err)
	}

	s.logger.DebugContext(r.Context(), "request rejected",
		"status", status,
		"code", errutil.Code(err),
		"error", err.Error(),
	)
	respondJSON(w, status, body)
}

// respondProblem writes a transport-level failure that has no auth error behind it.
func respondProblem(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="authd"`)
	}
	respondJSON(w, status, APIError{
		Error:     message,
		Code:      code,
		RequestID: requestIDFrom(r.Context()),
	})
}

// publicMessage is the sentinel's text, so storage details never leak.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		auth.ErrDuplicateEmail,
		auth.ErrInvalidCredentials,
		auth.ErrInvalidToken,
		auth.ErrSessionInactive,
		auth.ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return http.StatusText(http.StatusInternalServerError)
}

func contextString(err error, key string) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	v, _ := oopsErr.Context()[key].(string)
	return v
}
