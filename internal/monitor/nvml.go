package monitor

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// NVML is the NVIDIA-driver-backed Monitor. The device handle is looked
// up per call rather than cached; NVML handles are cheap and this keeps
// the monitor valid across driver restarts.
type NVML struct {
	lib         nvmlLib
	index       int
	start       time.Time
	logger      *slog.Logger
	resolveName func(pid uint32) string

	closeOnce sync.Once
	closeErr  error
}

// NewNVML initializes the driver runtime and validates that the device
// index exists. Errors wrap ErrInitFailed or ErrDeviceNotFound and are
// fatal: no monitor is produced.
func NewNVML(index int, logger *slog.Logger) (*NVML, error) {
	return newNVML(realNVML{}, index, logger, resolveProcessName)
}

func newNVML(lib nvmlLib, index int, logger *slog.Logger, resolve func(uint32) string) (*NVML, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if resolve == nil {
		resolve = resolveProcessName
	}

	if ret := lib.Init(); ret != nvml.SUCCESS {
		return nil, fmt.Errorf("%w: %s", ErrInitFailed, nvml.ErrorString(ret))
	}

	count, ret := lib.DeviceCount()
	if ret != nvml.SUCCESS {
		_ = lib.Shutdown()
		return nil, fmt.Errorf("%w: device count: %s", ErrInitFailed, nvml.ErrorString(ret))
	}
	if index < 0 || index >= count {
		_ = lib.Shutdown()
		return nil, fmt.Errorf("%w: index %d, %d device(s) present", ErrDeviceNotFound, index, count)
	}
	if _, ret := lib.DeviceByIndex(index); ret != nvml.SUCCESS {
		_ = lib.Shutdown()
		return nil, fmt.Errorf("%w: index %d: %s", ErrDeviceNotFound, index, nvml.ErrorString(ret))
	}

	return &NVML{
		lib:         lib,
		index:       index,
		start:       time.Now(),
		logger:      logger.With("component", "nvml_monitor", "device_index", index),
		resolveName: resolve,
	}, nil
}

// StaticInfo queries device identity. Each field is independently
// best-effort; a failed query leaves the placeholder in place.
func (m *NVML) StaticInfo() StaticInfo {
	info := StaticInfo{
		Name:          placeholder,
		UUID:          placeholder,
		DriverVersion: placeholder,
		VBIOSVersion:  placeholder,
	}

	dev, ret := m.lib.DeviceByIndex(m.index)
	if ret != nvml.SUCCESS {
		m.logger.Warn("static info unavailable", "err", nvml.ErrorString(ret))
		return info
	}

	if name, ret := dev.Name(); ret == nvml.SUCCESS && name != "" {
		info.Name = name
	} else if resolved := m.pciDatabaseName(dev); resolved != "" {
		info.Name = resolved
	}
	if uuid, ret := dev.UUID(); ret == nvml.SUCCESS && uuid != "" {
		info.UUID = uuid
	}
	if version, ret := m.lib.DriverVersion(); ret == nvml.SUCCESS && version != "" {
		info.DriverVersion = version
	}
	if vbios, ret := dev.VBIOSVersion(); ret == nvml.SUCCESS && vbios != "" {
		info.VBIOSVersion = vbios
	}
	if gen, ret := dev.PCIeLinkGeneration(); ret == nvml.SUCCESS {
		info.PCIeGen = gen
	}
	if width, ret := dev.PCIeLinkWidth(); ret == nvml.SUCCESS {
		info.PCIeWidth = width
	}

	return info
}

// pciDatabaseName resolves the marketing name from the PCI database when
// the driver name query fails.
func (m *NVML) pciDatabaseName(dev nvmlDevice) string {
	id, ret := dev.PCIDeviceID()
	if ret != nvml.SUCCESS || id == 0 {
		return ""
	}
	// PciDeviceId packs the device id into the high 16 bits.
	return lookupDeviceName(uint16(id&0xffff), uint16(id>>16))
}

// Sample performs one full telemetry read. Utilization, memory and
// temperature are required; any of them failing fails the sample with
// *SamplingError. Everything else zero-fills on failure, and process
// enumeration falls back to an empty list.
func (m *NVML) Sample() (Sample, []ProcessEntry, error) {
	dev, ret := m.lib.DeviceByIndex(m.index)
	if ret != nvml.SUCCESS {
		return Sample{}, nil, &SamplingError{Field: "device", Reason: nvml.ErrorString(ret)}
	}

	util, ret := dev.UtilizationRates()
	if ret != nvml.SUCCESS {
		return Sample{}, nil, &SamplingError{Field: "utilization", Reason: nvml.ErrorString(ret)}
	}
	mem, ret := dev.MemoryInfo()
	if ret != nvml.SUCCESS {
		return Sample{}, nil, &SamplingError{Field: "memory", Reason: nvml.ErrorString(ret)}
	}
	temp, ret := dev.Temperature()
	if ret != nvml.SUCCESS {
		return Sample{}, nil, &SamplingError{Field: "temperature", Reason: nvml.ErrorString(ret)}
	}

	sample := Sample{
		Timestamp:   time.Since(m.start).Seconds(),
		CollectedAt: time.Now().UTC(),
		Utilization: float64(util.Gpu),
		MemoryUsed:  mem.Used,
		MemoryTotal: mem.Total,
		Temperature: float64(temp),
	}

	if mhz, ret := dev.ClockInfo(nvml.CLOCK_GRAPHICS); ret == nvml.SUCCESS {
		sample.CoreClockMHz = mhz
	}
	if mhz, ret := dev.ClockInfo(nvml.CLOCK_MEM); ret == nvml.SUCCESS {
		sample.MemoryClockMHz = mhz
	}

	// Power draw and cap only make sense as a pair; keep both at zero
	// unless both queries succeed. Readings come back in milliwatts.
	usage, uret := dev.PowerUsage()
	limit, lret := dev.PowerManagementLimit()
	if uret == nvml.SUCCESS && lret == nvml.SUCCESS {
		sample.PowerUsage = float64(usage) / 1000
		sample.PowerLimit = float64(limit) / 1000
	}

	if pct, ret := dev.FanSpeed(); ret == nvml.SUCCESS {
		sample.FanSpeed = pct
	}

	tx, tret := dev.PcieThroughput(nvml.PCIE_UTIL_TX_BYTES)
	rx, rret := dev.PcieThroughput(nvml.PCIE_UTIL_RX_BYTES)
	if tret == nvml.SUCCESS && rret == nvml.SUCCESS {
		sample.PCIeTxKBps = float64(tx)
		sample.PCIeRxKBps = float64(rx)
	}

	return sample, m.collectProcesses(dev), nil
}

func (m *NVML) collectProcesses(dev nvmlDevice) []ProcessEntry {
	var raw []nvml.ProcessInfo
	if procs, ret := dev.GraphicsRunningProcesses(); ret == nvml.SUCCESS {
		raw = append(raw, procs...)
	}
	if procs, ret := dev.ComputeRunningProcesses(); ret == nvml.SUCCESS {
		raw = append(raw, procs...)
	}
	if len(raw) == 0 {
		return nil
	}

	entries := make([]ProcessEntry, 0, len(raw))
	for _, proc := range raw {
		memory := proc.UsedGpuMemory
		if memory == math.MaxUint64 {
			// Driver reports all-ones when per-process accounting is off.
			memory = 0
		}
		entries = append(entries, ProcessEntry{
			PID:         proc.Pid,
			Name:        m.resolveName(proc.Pid),
			MemoryBytes: memory,
		})
	}
	return dedupeProcesses(entries)
}

// Close shuts the driver runtime down. Safe for repeated use.
func (m *NVML) Close() error {
	m.closeOnce.Do(func() {
		if ret := m.lib.Shutdown(); ret != nvml.SUCCESS {
			m.closeErr = fmt.Errorf("nvml shutdown: %s", nvml.ErrorString(ret))
		}
	})
	return m.closeErr
}
