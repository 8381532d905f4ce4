package monitor

import "time"

// StaticInfo is the per-device identity fetched once at startup.
// String fields fall back to "N/A" and numeric fields to zero when the
// individual driver query fails.
type StaticInfo struct {
	Name          string `json:"name"`
	UUID          string `json:"uuid"`
	DriverVersion string `json:"driver_version"`
	VBIOSVersion  string `json:"vbios_version"`
	PCIeGen       int    `json:"pcie_gen"`
	PCIeWidth     int    `json:"pcie_width"`
}

// Sample is one telemetry reading. Timestamp counts seconds since the
// monitor was constructed and strictly increases sample over sample; it
// is the ordering key for windowing. CollectedAt is wall-clock time,
// kept for staleness reporting only.
type Sample struct {
	Timestamp      float64   `json:"ts"`
	CollectedAt    time.Time `json:"collected_at"`
	Utilization    float64   `json:"utilization_pct"`
	MemoryUsed     uint64    `json:"memory_used_bytes"`
	MemoryTotal    uint64    `json:"memory_total_bytes"`
	Temperature    float64   `json:"temperature_c"`
	CoreClockMHz   uint32    `json:"core_clock_mhz"`
	MemoryClockMHz uint32    `json:"memory_clock_mhz"`
	PowerUsage     float64   `json:"power_usage_w"`
	PowerLimit     float64   `json:"power_limit_w"`
	FanSpeed       uint32    `json:"fan_speed_pct"`
	PCIeTxKBps     float64   `json:"pcie_tx_kbps"`
	PCIeRxKBps     float64   `json:"pcie_rx_kbps"`
}

// ProcessEntry is one process currently holding GPU memory.
type ProcessEntry struct {
	PID         uint32 `json:"pid"`
	Name        string `json:"name"`
	MemoryBytes uint64 `json:"memory_bytes"`
}
