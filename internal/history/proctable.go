package history

import (
	"sync"

	"github.com/nvgputop/nvgputop-web/internal/monitor"
)

// ProcTable holds the most recently received list of GPU processes.
// Each update replaces the previous list wholesale; there is no history
// and no merging, and readers always observe a complete list.
type ProcTable struct {
	mu      sync.Mutex
	entries []monitor.ProcessEntry
}

// NewProcTable returns an empty table.
func NewProcTable() *ProcTable {
	return &ProcTable{}
}

// Replace swaps the table contents for the given list. The input is
// copied, so the caller may reuse its slice.
func (t *ProcTable) Replace(entries []monitor.ProcessEntry) {
	next := make([]monitor.ProcessEntry, len(entries))
	copy(next, entries)

	t.mu.Lock()
	t.entries = next
	t.mu.Unlock()
}

// Snapshot copies the current list out under the lock.
func (t *ProcTable) Snapshot() []monitor.ProcessEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]monitor.ProcessEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len reports the current number of entries.
func (t *ProcTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
