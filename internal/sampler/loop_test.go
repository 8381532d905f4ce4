package sampler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nvgputop/nvgputop-web/internal/monitor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleAt(ts float64) monitor.Sample {
	return monitor.Sample{
		Timestamp:   ts,
		CollectedAt: time.Now(),
		Utilization: 50,
		MemoryUsed:  1 << 30,
		MemoryTotal: 8 << 30,
		Temperature: 60,
	}
}

// steps builds a script that emits one sample per timestamp and then
// fails forever, so the stream has a deterministic final state.
func steps(timestamps ...float64) []monitor.ScriptStep {
	out := make([]monitor.ScriptStep, 0, len(timestamps)+1)
	for _, ts := range timestamps {
		out = append(out, monitor.ScriptStep{Sample: sampleAt(ts)})
	}
	out = append(out, monitor.ScriptStep{Err: &monitor.SamplingError{Field: "script", Reason: "exhausted"}})
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestLoopPublishesInOrder(t *testing.T) {
	t.Parallel()

	mon := monitor.NewScripted(monitor.StaticInfo{Name: "test"}, steps(1, 2, 3)...)
	loop, err := NewLoop(mon, time.Millisecond, 10, SendBlock, discardLogger())
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var got []float64
	for len(got) < 3 {
		select {
		case u := <-loop.Updates():
			got = append(got, u.Sample.Timestamp)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d updates", len(got))
		}
	}
	for i, ts := range []float64{1, 2, 3} {
		if got[i] != ts {
			t.Fatalf("update %d: got timestamp %v, want %v", i, got[i], ts)
		}
	}
}

func TestLoopSurvivesSamplingError(t *testing.T) {
	t.Parallel()

	script := []monitor.ScriptStep{
		{Sample: sampleAt(1)},
		{Err: &monitor.SamplingError{Field: "utilization", Reason: "device lost"}},
		{Sample: sampleAt(3)},
		{Err: &monitor.SamplingError{Field: "script", Reason: "exhausted"}},
	}
	mon := monitor.NewScripted(monitor.StaticInfo{Name: "test"}, script...)
	loop, err := NewLoop(mon, time.Millisecond, 10, SendBlock, discardLogger())
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	first := <-loop.Updates()
	if first.Sample.Timestamp != 1 {
		t.Fatalf("first timestamp = %v, want 1", first.Sample.Timestamp)
	}
	// The failed cycle publishes nothing; the next update must be the
	// sample after the error.
	select {
	case second := <-loop.Updates():
		if second.Sample.Timestamp != 3 {
			t.Fatalf("second timestamp = %v, want 3", second.Sample.Timestamp)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not recover after a sampling error")
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	t.Parallel()

	mon := monitor.NewScripted(monitor.StaticInfo{Name: "test"}, monitor.ScriptStep{Sample: sampleAt(1)})
	loop, err := NewLoop(mon, time.Millisecond, 10, SendBlock, discardLogger())
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
	// The channel must be closed so consumers can drain and exit.
	waitFor(t, time.Second, func() bool {
		select {
		case _, ok := <-loop.Updates():
			return !ok
		default:
			return false
		}
	})
}

func TestLoopBlockPolicyLosesNothing(t *testing.T) {
	t.Parallel()

	mon := monitor.NewScripted(monitor.StaticInfo{Name: "test"}, steps(1, 2, 3, 4, 5)...)
	loop, err := NewLoop(mon, time.Millisecond, 1, SendBlock, discardLogger())
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	// Consume slowly; with a full channel the producer waits instead of
	// discarding, so every timestamp arrives exactly once and in order.
	want := []float64{1, 2, 3, 4, 5}
	for _, ts := range want {
		select {
		case u := <-loop.Updates():
			if u.Sample.Timestamp != ts {
				t.Fatalf("got timestamp %v, want %v", u.Sample.Timestamp, ts)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for timestamp %v", ts)
		}
		time.Sleep(3 * time.Millisecond)
	}
	if n := loop.Dropped(); n != 0 {
		t.Fatalf("blocking policy dropped %d updates", n)
	}
}

func TestLoopDropOldestKeepsFreshest(t *testing.T) {
	t.Parallel()

	mon := monitor.NewScripted(monitor.StaticInfo{Name: "test"}, steps(1, 2, 3, 4, 5, 6, 7, 8)...)
	loop, err := NewLoop(mon, time.Millisecond, 2, SendDropOldest, discardLogger())
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	// Let the producer run against a full channel of capacity 2.
	waitFor(t, time.Second, func() bool { return loop.Dropped() > 0 })

	// Whatever is still queued must be from the newer end of the
	// script, not the beginning.
	u := <-loop.Updates()
	if u.Sample.Timestamp <= 1 {
		t.Fatalf("oldest update survived drop-oldest: timestamp %v", u.Sample.Timestamp)
	}
}

func TestNewLoopValidation(t *testing.T) {
	t.Parallel()

	mon := monitor.NewScripted(monitor.StaticInfo{Name: "test"})
	if _, err := NewLoop(nil, time.Millisecond, 0, SendBlock, nil); err == nil {
		t.Fatal("expected error for nil monitor")
	}
	if _, err := NewLoop(mon, 0, 0, SendBlock, nil); err == nil {
		t.Fatal("expected error for non-positive interval")
	}
	loop, err := NewLoop(mon, time.Millisecond, 0, SendBlock, nil)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	if got := cap(loop.out); got != DefaultChannelCapacity {
		t.Fatalf("default capacity = %d, want %d", got, DefaultChannelCapacity)
	}
}

func TestParseSendPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    SendPolicy
		wantErr bool
	}{
		{in: "", want: SendBlock},
		{in: "block", want: SendBlock},
		{in: "drop_oldest", want: SendDropOldest},
		{in: "drop-newest", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseSendPolicy(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseSendPolicy(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSendPolicy(%q): %v", tc.in, err)
		} else if got != tc.want {
			t.Errorf("ParseSendPolicy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
