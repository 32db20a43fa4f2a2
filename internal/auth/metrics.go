// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

// Login outcomes reported to Metrics.
const (
	LoginResultSuccess            = "success"
	LoginResultInvalidCredentials = "invalid_credentials"
	LoginResultLocked             = "locked"
	LoginResultError              = "error"
)

// Metrics receives counters from the services. observability.Metrics
// is the production implementation.
type Metrics interface {
	LoginAttempt(result string)
	SessionCreated()
	SessionEvicted()
	SecurityEvent(eventType EventType, severity Severity)
}

type noopMetrics struct{}

func (noopMetrics) LoginAttempt(string)                {}
func (noopMetrics) SessionCreated()                    {}
func (noopMetrics) SessionEvicted()                    {}
func (noopMetrics) SecurityEvent(EventType, Severity) {}
