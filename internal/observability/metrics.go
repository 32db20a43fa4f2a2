// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealscope/authd/internal/auth"
)

// Metrics holds the authd collectors. It implements auth.Metrics.
type Metrics struct {
	LoginAttempts   *prometheus.CounterVec
	SessionsCreated prometheus.Counter
	SessionsEvicted prometheus.Counter
	SecurityEvents  *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

var _ auth.Metrics = (*Metrics)(nil)

// NewMetrics creates the authd metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authd_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authd_sessions_created_total",
			Help: "Sessions opened by login or registration",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authd_sessions_evicted_total",
			Help: "Sessions deactivated to stay under the concurrent session cap",
		}),
		SecurityEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authd_security_events_total",
				Help: "Security events recorded by type and severity",
			},
			[]string{"type", "severity"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authd_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authd_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		m.LoginAttempts,
		m.SessionsCreated,
		m.SessionsEvicted,
		m.SecurityEvents,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// LoginAttempt implements auth.Metrics.
func (m *Metrics) LoginAttempt(result string) {
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// SessionCreated implements auth.Metrics.
func (m *Metrics) SessionCreated() { m.SessionsCreated.Inc() }

// SessionEvicted implements auth.Metrics.
func (m *Metrics) SessionEvicted() { m.SessionsEvicted.Inc() }

// SecurityEvent implements auth.Metrics.
func (m *Metrics) SecurityEvent(eventType auth.EventType, severity auth.Severity) {
	m.SecurityEvents.WithLabelValues(string(eventType), string(severity)).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
