package monitor

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// resolveProcessName translates a pid into a short command name.
// Best-effort only: the process may have exited between the driver
// enumeration and the lookup, or live in another namespace.
func resolveProcessName(pid uint32) string {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return UnknownProcessName
	}
	name, err := proc.Name()
	if err != nil {
		return UnknownProcessName
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return UnknownProcessName
	}
	return name
}
