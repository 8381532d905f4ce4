// Package monitor abstracts a GPU telemetry source: a one-time static
// identity query plus a repeatable sample operation. Exactly one
// driver-backed implementation exists today (NVML); the interface keeps
// room for other vendors and for the scripted variant used in tests.
package monitor

import (
	"errors"
	"fmt"
)

// UnknownProcessName is the sentinel used when pid-to-name resolution fails.
const UnknownProcessName = "unknown"

// placeholder marks static-info fields the driver could not report.
const placeholder = "N/A"

// Monitor is the capability set expected from a telemetry source.
//
// StaticInfo never fails; fields the source cannot report carry
// placeholder values. Sample either succeeds with a full snapshot and a
// deduplicated process list, or fails with *SamplingError when a core
// field (utilization, memory, temperature) is unavailable. Non-core
// fields are best-effort and zero-filled.
type Monitor interface {
	StaticInfo() StaticInfo
	Sample() (Sample, []ProcessEntry, error)
}

// Construction failures. Both are fatal: no usable monitor is produced.
var (
	ErrInitFailed     = errors.New("driver initialization failed")
	ErrDeviceNotFound = errors.New("device not found")
)

// SamplingError reports a transient core-field query failure. The
// monitor stays usable; the caller should log and retry on its next tick.
type SamplingError struct {
	Field  string
	Reason string
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("sampling %s failed: %s", e.Field, e.Reason)
}

// dedupeProcesses drops repeated pids, keeping the first occurrence.
// Drivers may report the same process once per usage context (graphics
// and compute), which would show up as duplicate table rows.
func dedupeProcesses(entries []ProcessEntry) []ProcessEntry {
	if len(entries) < 2 {
		return entries
	}
	seen := make(map[uint32]struct{}, len(entries))
	out := entries[:0]
	for _, entry := range entries {
		if _, ok := seen[entry.PID]; ok {
			continue
		}
		seen[entry.PID] = struct{}{}
		out = append(out, entry)
	}
	return out
}
