package api

import (
	"github.com/nvgputop/nvgputop-web/internal/monitor"
)

// HelloMessage is the initial payload sent on WebSocket connection.
type HelloMessage struct {
	Type               string             `json:"type"`
	IntervalMS         int                `json:"interval_ms"`
	RefreshMS          int                `json:"refresh_ms"`
	DisplayDurationSec float64            `json:"display_duration_sec"`
	Device             monitor.StaticInfo `json:"device"`
	Features           map[string]bool    `json:"features"`
}

// NewHelloMessage constructs a hello payload.
func NewHelloMessage(intervalMS, refreshMS int, displayDurationSec float64, device monitor.StaticInfo, features map[string]bool) HelloMessage {
	return HelloMessage{
		Type:               "hello",
		IntervalMS:         intervalMS,
		RefreshMS:          refreshMS,
		DisplayDurationSec: displayDurationSec,
		Device:             device,
		Features:           features,
	}
}

// StatsMessage wraps the freshest sample for transport.
type StatsMessage struct {
	Type string `json:"type"`
	monitor.Sample
}

// NewStatsMessage constructs a stats payload.
func NewStatsMessage(sample monitor.Sample) StatsMessage {
	return StatsMessage{
		Type:   "stats",
		Sample: sample,
	}
}

// ProcsMessage wraps a process table snapshot for transport.
type ProcsMessage struct {
	Type      string                 `json:"type"`
	Processes []monitor.ProcessEntry `json:"processes"`
}

// NewProcsMessage constructs a procs payload.
func NewProcsMessage(processes []monitor.ProcessEntry) ProcsMessage {
	if processes == nil {
		processes = []monitor.ProcessEntry{}
	}
	return ProcsMessage{
		Type:      "procs",
		Processes: processes,
	}
}

// ErrorMessage communicates an error condition to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClientMessage is a generic envelope used for decoding inbound client messages.
type ClientMessage struct {
	Type string `json:"type"`
}

// SetDisplayDurationMessage requests a new history window span. Zero
// seconds selects the unbounded window.
type SetDisplayDurationMessage struct {
	Type    string  `json:"type"`
	Seconds float64 `json:"seconds"`
}

// DisplayDurationMessage reports the active history window span.
type DisplayDurationMessage struct {
	Type    string  `json:"type"`
	Seconds float64 `json:"seconds"`
}

// NewDisplayDurationMessage constructs a display_duration payload.
func NewDisplayDurationMessage(seconds float64) DisplayDurationMessage {
	return DisplayDurationMessage{
		Type:    "display_duration",
		Seconds: seconds,
	}
}

// PongMessage is the response to a ping.
type PongMessage struct {
	Type string `json:"type"`
}
