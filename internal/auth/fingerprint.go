// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dealscope Contributors

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Unknown is the classification used when no marker matches.
const Unknown = "Unknown"

// unknownAttribute fills screen resolution and timezone when the client omits them.
const unknownAttribute = "unknown"

const fingerprintHexLen = 32

type marker struct {
	needles []string
	label   string
}

// Ordered; the first match wins. Changing the order changes fingerprints.
var (
	browserMarkers = []marker{
		{[]string{"Chrome"}, "Chrome"},
		{[]string{"Firefox"}, "Firefox"},
		{[]string{"Safari"}, "Safari"},
		{[]string{"Edge"}, "Edge"},
	}
	osMarkers = []marker{
		{[]string{"Windows"}, "Windows"},
		{[]string{"Mac"}, "macOS"},
		{[]string{"Linux"}, "Linux"},
		{[]string{"Android"}, "Android"},
		{[]string{"iPhone", "iPad"}, "iOS"},
	}
)

// DeviceMetadata is what the transport knows about the client.
type DeviceMetadata struct {
	UserAgent        string
	ScreenResolution string
	Timezone         string

	// DeclaredFingerprint is client-asserted and only kept for reference.
	DeclaredFingerprint string
}

// DeviceInfo is the server-side view of a client device.
type DeviceInfo struct {
	Fingerprint       string `json:"fingerprint"`
	UserAgent         string `json:"user_agent"`
	Browser           string `json:"browser"`
	OS                string `json:"os"`
	ScreenResolution  string `json:"screen_resolution"`
	Timezone          string `json:"timezone"`
	ClientFingerprint string `json:"client_fingerprint,omitempty"`
}

// ExtractDevice classifies the user agent and derives the device fingerprint.
func ExtractDevice(meta DeviceMetadata) DeviceInfo {
	browser := classify(meta.UserAgent, browserMarkers)
	os := classify(meta.UserAgent, osMarkers)

	info := DeviceInfo{
		Fingerprint:       Fingerprint(meta.UserAgent, browser, os),
		UserAgent:         meta.UserAgent,
		Browser:           browser,
		OS:                os,
		ScreenResolution:  orUnknown(meta.ScreenResolution),
		Timezone:          orUnknown(meta.Timezone),
		ClientFingerprint: meta.DeclaredFingerprint,
	}
	return info
}

// Fingerprint returns the first 32 hex characters of sha256("ua|browser|os").
func Fingerprint(userAgent, browser, os string) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + browser + "|" + os))
	return hex.EncodeToString(sum[:])[:fingerprintHexLen]
}

func classify(userAgent string, markers []marker) string {
	for _, m := range markers {
		for _, needle := range m.needles {
			if strings.Contains(userAgent, needle) {
				return m.label
			}
		}
	}
	return Unknown
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownAttribute
	}
	return s
}
