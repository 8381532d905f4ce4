package monitor

import (
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvmlLib narrows the NVML surface used by the monitor so tests can
// substitute fakes without driver libraries present.
type nvmlLib interface {
	Init() nvml.Return
	Shutdown() nvml.Return
	DeviceCount() (int, nvml.Return)
	DeviceByIndex(index int) (nvmlDevice, nvml.Return)
	DriverVersion() (string, nvml.Return)
}

// nvmlDevice wraps the per-device queries the monitor issues.
type nvmlDevice interface {
	Name() (string, nvml.Return)
	UUID() (string, nvml.Return)
	VBIOSVersion() (string, nvml.Return)
	PCIeLinkGeneration() (int, nvml.Return)
	PCIeLinkWidth() (int, nvml.Return)
	PCIDeviceID() (uint32, nvml.Return)
	UtilizationRates() (nvml.Utilization, nvml.Return)
	MemoryInfo() (nvml.Memory, nvml.Return)
	Temperature() (uint32, nvml.Return)
	ClockInfo(clock nvml.ClockType) (uint32, nvml.Return)
	PowerUsage() (uint32, nvml.Return)
	PowerManagementLimit() (uint32, nvml.Return)
	FanSpeed() (uint32, nvml.Return)
	PcieThroughput(counter nvml.PcieUtilCounter) (uint32, nvml.Return)
	GraphicsRunningProcesses() ([]nvml.ProcessInfo, nvml.Return)
	ComputeRunningProcesses() ([]nvml.ProcessInfo, nvml.Return)
}

type realNVML struct{}

func (realNVML) Init() nvml.Return     { return nvml.Init() }
func (realNVML) Shutdown() nvml.Return { return nvml.Shutdown() }

func (realNVML) DeviceCount() (int, nvml.Return) {
	return nvml.DeviceGetCount()
}

func (realNVML) DeviceByIndex(index int) (nvmlDevice, nvml.Return) {
	dev, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		return nil, ret
	}
	return realDevice{dev}, ret
}

func (realNVML) DriverVersion() (string, nvml.Return) {
	return nvml.SystemGetDriverVersion()
}

type realDevice struct {
	dev nvml.Device
}

func (d realDevice) Name() (string, nvml.Return) { return d.dev.GetName() }
func (d realDevice) UUID() (string, nvml.Return) { return d.dev.GetUUID() }

func (d realDevice) VBIOSVersion() (string, nvml.Return) {
	return d.dev.GetVbiosVersion()
}

func (d realDevice) PCIeLinkGeneration() (int, nvml.Return) {
	return d.dev.GetCurrPcieLinkGeneration()
}

func (d realDevice) PCIeLinkWidth() (int, nvml.Return) {
	return d.dev.GetCurrPcieLinkWidth()
}

func (d realDevice) PCIDeviceID() (uint32, nvml.Return) {
	info, ret := d.dev.GetPciInfo()
	if ret != nvml.SUCCESS {
		return 0, ret
	}
	return info.PciDeviceId, ret
}

func (d realDevice) UtilizationRates() (nvml.Utilization, nvml.Return) {
	return d.dev.GetUtilizationRates()
}

func (d realDevice) MemoryInfo() (nvml.Memory, nvml.Return) {
	return d.dev.GetMemoryInfo()
}

func (d realDevice) Temperature() (uint32, nvml.Return) {
	return d.dev.GetTemperature(nvml.TEMPERATURE_GPU)
}

func (d realDevice) ClockInfo(clock nvml.ClockType) (uint32, nvml.Return) {
	return d.dev.GetClockInfo(clock)
}

func (d realDevice) PowerUsage() (uint32, nvml.Return) {
	return d.dev.GetPowerUsage()
}

func (d realDevice) PowerManagementLimit() (uint32, nvml.Return) {
	return d.dev.GetPowerManagementLimit()
}

func (d realDevice) FanSpeed() (uint32, nvml.Return) {
	return d.dev.GetFanSpeed()
}

func (d realDevice) PcieThroughput(counter nvml.PcieUtilCounter) (uint32, nvml.Return) {
	return d.dev.GetPcieThroughput(counter)
}

func (d realDevice) GraphicsRunningProcesses() ([]nvml.ProcessInfo, nvml.Return) {
	return d.dev.GetGraphicsRunningProcesses()
}

func (d realDevice) ComputeRunningProcesses() ([]nvml.ProcessInfo, nvml.Return) {
	return d.dev.GetComputeRunningProcesses()
}
