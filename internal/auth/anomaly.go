// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// AnomalyDetector compares a new login against the account's live sessions.
// It only reports; it never blocks a login.
type AnomalyDetector struct {
	severity Severity
}

// NewAnomalyDetector creates a detector emitting events at the given severity.
// An invalid severity falls back to SeverityLow.
func NewAnomalyDetector(severity Severity) *AnomalyDetector {
	if !severity.Valid() {
		severity = SeverityLow
	}
	return &AnomalyDetector{severity: severity}
}

// Detect returns the events raised by a login from device at ipAddress,
// given the sessions that were live before it. The first session of an
// account never raises anything. sessionID, if non-nil, is attached to the
// events as the new session.
func (d *AnomalyDetector) Detect(account *Account, device DeviceInfo, ipAddress string, existing []*Session, sessionID *ulid.ULID, now time.Time) []*SecurityEvent {
	if len(existing) == 0 {
		return nil
	}

	devices := make([]string, 0, len(existing))
	addresses := make([]string, 0, len(existing))
	knownDevice, knownAddress := false, false
	for _, s := range existing {
		devices = append(devices, s.DeviceFingerprint)
		addresses = append(addresses, s.IPAddress)
		if s.DeviceFingerprint == device.Fingerprint {
			knownDevice = true
		}
		if s.IPAddress == ipAddress {
			knownAddress = true
		}
	}

	var events []*SecurityEvent
	if !knownDevice {
		events = append(events, d.event(account, EventMultipleDevices, sessionID, ipAddress, device.Fingerprint, now, map[string]any{
			"new_device":       device.Fingerprint,
			"existing_devices": devices,
			"ip_address":       ipAddress,
		}))
	}
	if !knownAddress {
		events = append(events, d.event(account, EventIPAddressChange, sessionID, ipAddress, device.Fingerprint, now, map[string]any{
			"new_ip":             ipAddress,
			"existing_ips":       addresses,
			"device_fingerprint": device.Fingerprint,
		}))
	}
	return events
}

func (d *AnomalyDetector) event(account *Account, eventType EventType, sessionID *ulid.ULID, ip, fingerprint string, now time.Time, details map[string]any) *SecurityEvent {
	return &SecurityEvent{
		ID:                ulid.Make(),
		AccountID:         account.ID,
		EventType:         eventType,
		SessionID:         sessionID,
		IPAddress:         ip,
		DeviceFingerprint: fingerprint,
		Details:           details,
		Severity:          d.severity,
		CreatedAt:         now,
	}
}
