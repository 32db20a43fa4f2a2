// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

// Package auth implements account authentication and the session lifecycle.
//
// # Components
//
//   - CredentialStore - account creation and password authentication with lockout
//   - TokenService - signed access tokens and password-reset tokens
//   - ExtractDevice - server-side device fingerprinting from request metadata
//   - SessionManager - session creation under a concurrency cap, validation, invalidation
//   - AnomalyDetector - new-device and new-address detection against live sessions
//   - EventLog - append-only security event recording
//
// Service combines them into the operations exposed to the HTTP layer.
//
// # Storage
//
// Persistence is reached through Store, which hands out the account, session
// and security event repositories and runs work under a per-account lock.
// The postgres and memory subpackages provide implementations.
//
// # Errors
//
// Returned errors are oops errors wrapping one of the package sentinels
// (ErrValidation, ErrDuplicateEmail, ErrInvalidCredentials, ErrAccountLocked,
// ErrInvalidToken, ErrSessionInactive, ErrNotFound). Anything else is a
// storage failure and is propagated unchanged.
package auth
