package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/nvgputop/nvgputop-web/internal/history"
	"github.com/nvgputop/nvgputop-web/internal/monitor"
)

func newPipeline(t *testing.T, displayDuration float64, script ...monitor.ScriptStep) (*Manager, *history.Store) {
	t.Helper()
	mon := monitor.NewScripted(monitor.StaticInfo{Name: "test"}, script...)
	loop, err := NewLoop(mon, time.Millisecond, 100, SendBlock, discardLogger())
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	store := history.NewStore(displayDuration, 0)
	procs := history.NewProcTable()
	mgr, err := NewManager(loop, store, procs, 5*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr, store
}

func TestManagerDrainsIntoWindow(t *testing.T) {
	t.Parallel()

	mgr, store := newPipeline(t, 10, steps(0, 2, 4, 6, 11)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	waitFor(t, time.Second, func() bool {
		s := store.Snapshot()
		return len(s) > 0 && s[len(s)-1].Timestamp == 11
	})

	got := store.Snapshot()
	want := []float64{2, 4, 6, 11}
	if len(got) != len(want) {
		t.Fatalf("retained %d samples, want %d", len(got), len(want))
	}
	for i, ts := range want {
		if got[i].Timestamp != ts {
			t.Fatalf("sample %d: timestamp %v, want %v", i, got[i].Timestamp, ts)
		}
	}
}

func TestManagerDrainEmptyIsNoop(t *testing.T) {
	t.Parallel()

	mgr, store := newPipeline(t, 0, steps(1)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.loop.Run(ctx)

	waitFor(t, time.Second, func() bool { return mgr.Drain() > 0 })
	before := store.Len()
	procsBefore := mgr.Processes()

	// The script only fails from here on, so repeated drains find an
	// empty channel and must not disturb the stores.
	for i := 0; i < 3; i++ {
		if n := mgr.Drain(); n != 0 {
			t.Fatalf("empty drain consumed %d updates", n)
		}
	}
	if store.Len() != before {
		t.Fatalf("empty drain changed history length: %d -> %d", before, store.Len())
	}
	if len(mgr.Processes()) != len(procsBefore) {
		t.Fatal("empty drain changed the process table")
	}
}

func TestManagerReplacesProcessTableWholesale(t *testing.T) {
	t.Parallel()

	script := []monitor.ScriptStep{
		{
			Sample: sampleAt(1),
			Processes: []monitor.ProcessEntry{
				{PID: 100, Name: "blender", MemoryBytes: 1 << 28},
				{PID: 200, Name: "python3", MemoryBytes: 1 << 27},
			},
		},
		{Sample: sampleAt(2)},
		{Err: &monitor.SamplingError{Field: "script", Reason: "exhausted"}},
	}
	mgr, store := newPipeline(t, 0, script...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.loop.Run(ctx)

	waitFor(t, time.Second, func() bool {
		mgr.Drain()
		return store.Len() == 2
	})
	// The second update carried no processes; a vanished process must
	// not linger from the previous table.
	if got := mgr.Processes(); len(got) != 0 {
		t.Fatalf("process table has %d entries after empty update, want 0", len(got))
	}
}

func TestManagerSubscribeReceivesFreshest(t *testing.T) {
	t.Parallel()

	mgr, _ := newPipeline(t, 0, steps(1, 2, 3)...)

	ch, unsubscribe := mgr.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	var last float64
	waitFor(t, time.Second, func() bool {
		select {
		case u := <-ch:
			last = u.Sample.Timestamp
		default:
		}
		return last == 3
	})

	if !mgr.Ready() {
		t.Fatal("manager not ready after delivering updates")
	}
	if got, ok := mgr.Latest(); !ok || got.Timestamp != 3 {
		t.Fatalf("Latest() = %v, %v; want timestamp 3", got.Timestamp, ok)
	}
}

func TestManagerUnsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	mgr, _ := newPipeline(t, 0, steps(1)...)

	ch, unsubscribe := mgr.Subscribe()
	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after unsubscribe")
	}

	// A closed manager hands out already-closed channels.
	mgr.closeSubscribers()
	ch2, cancel2 := mgr.Subscribe()
	defer cancel2()
	if _, ok := <-ch2; ok {
		t.Fatal("subscription after shutdown returned an open channel")
	}
}

func TestManagerRunClosesSubscribersOnCancel(t *testing.T) {
	t.Parallel()

	mgr, _ := newPipeline(t, 0, steps(1)...)
	ch, unsubscribe := mgr.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		mgr.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager did not stop after cancellation")
	}

	waitFor(t, time.Second, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	})
}

func TestManagerDisplayDurationPassthrough(t *testing.T) {
	t.Parallel()

	mgr, store := newPipeline(t, 100, steps(0, 2, 4, 6, 11)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.loop.Run(ctx)

	waitFor(t, time.Second, func() bool {
		mgr.Drain()
		return store.Len() == 5
	})

	// Shrinking the window evicts immediately, without a new sample.
	mgr.SetDisplayDuration(10)
	if got := mgr.DisplayDuration(); got != 10 {
		t.Fatalf("DisplayDuration() = %v, want 10", got)
	}
	if got := store.Len(); got != 4 {
		t.Fatalf("retained %d samples after shrink, want 4", got)
	}
}

func TestNewManagerValidation(t *testing.T) {
	t.Parallel()

	mon := monitor.NewScripted(monitor.StaticInfo{Name: "test"})
	loop, err := NewLoop(mon, time.Millisecond, 0, SendBlock, nil)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	store := history.NewStore(0, 0)
	procs := history.NewProcTable()

	if _, err := NewManager(nil, store, procs, time.Millisecond, nil); err == nil {
		t.Fatal("expected error for nil loop")
	}
	if _, err := NewManager(loop, nil, procs, time.Millisecond, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewManager(loop, store, procs, 0, nil); err == nil {
		t.Fatal("expected error for non-positive refresh interval")
	}
}
