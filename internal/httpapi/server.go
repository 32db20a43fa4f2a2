// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

// Package httpapi serves the auth service over JSON/HTTP.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/dealscope/authd/internal/auth"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// RequestObserver receives one call per served request.
// observability.Metrics implements it.
type RequestObserver interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
}

// Options configures a Server. Zero values are usable.
type Options struct {
	AllowedOrigins    []string
	TrustProxyHeaders bool
	Observer          RequestObserver
	Logger            *slog.Logger
	Now               func() time.Time
}

// Server routes HTTP requests to an auth.Service.
type Server struct {
	svc               *auth.Service
	observer          RequestObserver
	logger            *slog.Logger
	now               func() time.Time
	trustProxyHeaders bool
	handler           http.Handler
}

// New builds the router. The returned Server is an http.Handler.
func New(svc *auth.Service, opts Options) *Server {
	s := &Server{
		svc:               svc,
		observer:          opts.Observer,
		logger:            opts.Logger,
		now:               opts.Now,
		trustProxyHeaders: opts.TrustProxyHeaders,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondProblem(w, r, http.StatusNotFound, CodeNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondProblem(w, r, http.StatusMethodNotAllowed, CodeInvalidRequest, "method not allowed")
	})
	router.Use(s.observe, s.recoverPanics)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Routes are registered on the root router with full paths. Subrouters
	// sharing a prefix lose the method mismatch and answer 404 instead of 405.
	router.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	router.Handle("/api/auth/logout", s.authenticated(s.handleLogout)).Methods(http.MethodPost)
	router.Handle("/api/auth/logout-all", s.authenticated(s.handleLogoutAll)).Methods(http.MethodPost)
	router.Handle("/api/auth/me", s.authenticated(s.handleMe)).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/password-reset", s.handlePasswordReset).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/password-reset-confirm", s.handlePasswordResetConfirm).Methods(http.MethodPost)

	router.Handle("/api/users/me", s.authenticated(s.handleMe)).Methods(http.MethodGet)
	router.Handle("/api/users/me", s.authenticated(s.handleDeleteMe)).Methods(http.MethodDelete)
	router.Handle("/api/users/sessions", s.authenticated(s.handleListSessions)).Methods(http.MethodGet)
	router.Handle("/api/users/sessions/invalidate-all", s.authenticated(s.handleInvalidateAllSessions)).Methods(http.MethodPost)
	router.Handle("/api/users/sessions/{id}/invalidate", s.authenticated(s.handleInvalidateSession)).Methods(http.MethodPost)
	router.Handle("/api/users/security-events", s.authenticated(s.handleSecurityEvents)).Methods(http.MethodGet)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", HeaderRequestID},
		ExposedHeaders:   []string{HeaderRequestID},
		AllowCredentials: true,
	})
	s.handler = withRequestID(corsHandler.Handler(router))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// NewHTTPServer wraps h in an http.Server with conservative timeouts.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a single JSON object from the body. It answers 400
// itself and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		respondProblem(w, r, http.StatusBadRequest, CodeInvalidRequest, "request body must be a JSON object")
		return false
	}
	return true
}
