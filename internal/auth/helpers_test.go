// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth_test

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dealscope/authd/internal/auth"
	"github.com/dealscope/authd/internal/auth/memory"
)

const testSecret = "test-secret-key-that-is-long-enough-0123456789"

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariMacUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"
)

// testClock is a manually advanced time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingMetrics counts calls made through auth.Metrics.
type recordingMetrics struct {
	mu       sync.Mutex
	logins   map[string]int
	created  int
	evicted  int
	security map[auth.EventType]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		logins:   make(map[string]int),
		security: make(map[auth.EventType]int),
	}
}

func (m *recordingMetrics) LoginAttempt(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[result]++
}

func (m *recordingMetrics) SessionCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *recordingMetrics) SessionEvicted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evicted++
}

func (m *recordingMetrics) SecurityEvent(t auth.EventType, _ auth.Severity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.security[t]++
}

func (m *recordingMetrics) loginCount(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins[result]
}

func testConfig() auth.Config {
	cfg := auth.DefaultConfig(testSecret)
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type serviceFixture struct {
	svc     *auth.Service
	store   *memory.Store
	clock   *testClock
	metrics *recordingMetrics
}

func newServiceFixture(t *testing.T, mutate ...func(*auth.Config)) *serviceFixture {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	clock := newTestClock()
	metrics := newRecordingMetrics()
	store := memory.NewStore()

	svc, err := auth.NewService(store, auth.NewBcryptHasher(cfg.BcryptCost), auth.LogNotifier{Logger: discardLogger()}, cfg,
		auth.WithClock(clock.Now),
		auth.WithLogger(discardLogger()),
		auth.WithMetrics(metrics),
	)
	require.NoError(t, err)
	return &serviceFixture{svc: svc, store: store, clock: clock, metrics: metrics}
}

func registerRequest(email string) auth.RegisterRequest {
	return auth.RegisterRequest{
		Email:     email,
		Password:  "Str0ngPassw0rd",
		FullName:  "Jamie Rivera",
		Device:    auth.DeviceMetadata{UserAgent: chromeWindowsUA},
		IPAddress: "203.0.113.10",
	}
}
