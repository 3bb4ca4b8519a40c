// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account lists and ends the user's device sessions.

It gives the user session transparency: every signed-in device is shown with
its browser, operating system and device class, and any of them can be
revoked.

# Architecture

  - Entities: SessionInfo (one signed-in device).
  - Parsing: Browser, OS and device are derived from the user agent when the
    backend does not send them.
  - Current session: Marked from the session_id marker when the backend omits it.
*/
package account

import "strings"

// # Domain Entities

// SessionInfo describes one active session of the user.
type SessionInfo struct {
	ID           string `json:"id"`
	IP           string `json:"ip"`
	UserAgent    string `json:"userAgent"`
	Browser      string `json:"browser"`
	OS           string `json:"os"`
	Device       string `json:"device"`
	Location     string `json:"location,omitempty"`
	CreatedAt    string `json:"createdAt"`
	LastActiveAt string `json:"lastActiveAt"`
	IsCurrent    bool   `json:"isCurrent"`
}

// Label returns a short description such as "Chrome on Windows".
func (s SessionInfo) Label() string {
	return s.Browser + " on " + s.OS
}

// # User Agent Parsing

const (
	UnknownBrowser = "Unknown browser"
	UnknownOS      = "Unknown OS"
	UnknownDevice  = "Unknown device"

	DeviceComputer = "Computer"
	DeviceMac      = "Mac"
	DevicePhone    = "Phone"
	DeviceTablet   = "Tablet"
	DeviceIPhone   = "iPhone"
)

// Agent is the result of parsing a user agent.
type Agent struct {
	Browser string
	OS      string
	Device  string
}

// ParseUserAgent derives browser, OS and device class from a user agent.
//
// Chromium derivatives advertise "Chrome" as well, and mobile platforms
// advertise their desktop ancestor, so the specific tokens are checked first.
func ParseUserAgent(ua string) Agent {
	agent := Agent{Browser: UnknownBrowser, OS: UnknownOS, Device: UnknownDevice}

	switch {
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge/"):
		agent.Browser = "Edge"
	case strings.Contains(ua, "OPR/"), strings.Contains(ua, "Opera"):
		agent.Browser = "Opera"
	case strings.Contains(ua, "Firefox/"), strings.Contains(ua, "FxiOS/"):
		agent.Browser = "Firefox"
	case strings.Contains(ua, "Chrome/"), strings.Contains(ua, "CriOS/"):
		agent.Browser = "Chrome"
	case strings.Contains(ua, "Safari/"):
		agent.Browser = "Safari"
	}

	switch {
	case strings.Contains(ua, "iPad"):
		agent.OS, agent.Device = "iOS", DeviceTablet
	case strings.Contains(ua, "iPhone"):
		agent.OS, agent.Device = "iOS", DeviceIPhone
	case strings.Contains(ua, "Android"):
		agent.OS, agent.Device = "Android", DevicePhone
		if !strings.Contains(ua, "Mobile") {
			agent.Device = DeviceTablet
		}
	case strings.Contains(ua, "Windows"):
		agent.OS, agent.Device = "Windows", DeviceComputer
	case strings.Contains(ua, "Mac OS"):
		agent.OS, agent.Device = "macOS", DeviceMac
	case strings.Contains(ua, "Linux"):
		agent.OS, agent.Device = "Linux", DeviceComputer
	}

	return agent
}
