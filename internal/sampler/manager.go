package sampler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nvgputop/nvgputop-web/internal/history"
	"github.com/nvgputop/nvgputop-web/internal/monitor"
)

// Manager is the consumer side of the pipeline. It drains the loop's
// channel into the history window and the process table, and fans the
// freshest update out to subscribers on the UI refresh cadence.
type Manager struct {
	loop    *Loop
	store   *history.Store
	procs   *history.ProcTable
	refresh time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	subs   map[chan Update]struct{}
	closed bool
}

// NewManager wires a Manager around an already-constructed Loop and the
// shared stores.
func NewManager(loop *Loop, store *history.Store, procs *history.ProcTable, refresh time.Duration, logger *slog.Logger) (*Manager, error) {
	if loop == nil {
		return nil, errors.New("sampler: loop must not be nil")
	}
	if store == nil || procs == nil {
		return nil, errors.New("sampler: store and process table must not be nil")
	}
	if refresh <= 0 {
		return nil, errors.New("sampler: refresh interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		loop:    loop,
		store:   store,
		procs:   procs,
		refresh: refresh,
		logger:  logger.With("component", "collector"),
		subs:    make(map[chan Update]struct{}),
	}, nil
}

// Run starts the producer loop and drains it on every refresh tick
// until ctx is canceled. It returns after the loop has exited and all
// subscriber channels are closed.
func (m *Manager) Run(ctx context.Context) {
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		m.loop.Run(ctx)
	}()

	ticker := time.NewTicker(m.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-loopDone
			// Pick up anything published before the loop closed its
			// channel so the last samples are not lost.
			m.Drain()
			m.closeSubscribers()
			m.logger.Info("collector stopped", "reason", context.Cause(ctx))
			return
		case <-ticker.C:
			m.Drain()
		}
	}
}

// Drain empties the channel without blocking and reports how many
// updates it consumed. Every drained sample lands in the history
// window; only the newest process list matters, intermediates are
// discarded. A tick with nothing pending changes nothing.
func (m *Manager) Drain() int {
	var (
		drained int
		last    Update
	)
drain:
	for {
		select {
		case u, ok := <-m.loop.Updates():
			if !ok {
				break drain
			}
			m.store.Push(u.Sample)
			last = u
			drained++
		default:
			break drain
		}
	}
	if drained == 0 {
		return 0
	}

	m.procs.Replace(last.Processes)
	m.publish(last)
	return drained
}

// Subscribe registers a live-update channel with capacity one. When a
// subscriber lags, the pending update is replaced by the newer one.
// The returned cancel function is idempotent.
func (m *Manager) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.subs[ch]; ok {
				delete(m.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (m *Manager) publish(u Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}

func (m *Manager) closeSubscribers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for ch := range m.subs {
		delete(m.subs, ch)
		close(ch)
	}
}

// Latest returns the newest sample, if any.
func (m *Manager) Latest() (monitor.Sample, bool) {
	return m.store.Latest()
}

// History returns a copy of the retained samples, oldest first.
func (m *Manager) History() []monitor.Sample {
	return m.store.Snapshot()
}

// Processes returns a copy of the most recent process list.
func (m *Manager) Processes() []monitor.ProcessEntry {
	return m.procs.Snapshot()
}

// Ready reports whether at least one sample has been collected.
func (m *Manager) Ready() bool {
	return m.store.Len() > 0
}

// DisplayDuration returns the history window span in seconds, zero
// meaning unbounded.
func (m *Manager) DisplayDuration() float64 {
	return m.store.DisplayDuration()
}

// SetDisplayDuration changes the window span and evicts immediately.
func (m *Manager) SetDisplayDuration(seconds float64) {
	m.store.SetDisplayDuration(seconds)
}

// Dropped reports updates discarded by the producer under the
// drop-oldest policy.
func (m *Manager) Dropped() uint64 {
	return m.loop.Dropped()
}
