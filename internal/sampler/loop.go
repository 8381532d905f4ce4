// Package sampler drives a GPU monitor at a fixed cadence on the
// producer side and drains the results into the history window and
// process table on the consumer side. The two sides share nothing but
// a bounded channel.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nvgputop/nvgputop-web/internal/monitor"
)

// DefaultChannelCapacity bounds the producer/consumer channel when the
// configuration does not say otherwise.
const DefaultChannelCapacity = 100

// Update is one successful sampling result crossing the
// producer/consumer boundary.
type Update struct {
	Sample    monitor.Sample
	Processes []monitor.ProcessEntry
}

// SendPolicy selects what the producer does when the channel is full.
type SendPolicy int

const (
	// SendBlock waits for the consumer. No update is lost, but the
	// sampling cadence degrades under consumer backpressure.
	SendBlock SendPolicy = iota
	// SendDropOldest discards the oldest queued update to make room.
	// The cadence holds and the freshest data wins.
	SendDropOldest
)

// ParseSendPolicy maps a configuration string to a SendPolicy.
func ParseSendPolicy(s string) (SendPolicy, error) {
	switch s {
	case "", "block":
		return SendBlock, nil
	case "drop_oldest":
		return SendDropOldest, nil
	default:
		return SendBlock, fmt.Errorf("unknown send policy %q", s)
	}
}

// Loop owns a Monitor exclusively and samples it at a fixed interval.
// Each cycle is sample, publish, sleep: the effective period is the
// driver latency plus the interval, there is no drift compensation.
type Loop struct {
	mon      monitor.Monitor
	interval time.Duration
	policy   SendPolicy
	out      chan Update
	logger   *slog.Logger

	dropped atomic.Uint64
}

// NewLoop wires a Loop around mon. capacity <= 0 falls back to
// DefaultChannelCapacity.
func NewLoop(mon monitor.Monitor, interval time.Duration, capacity int, policy SendPolicy, logger *slog.Logger) (*Loop, error) {
	if mon == nil {
		return nil, errors.New("sampler: monitor must not be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sampler: interval must be positive, got %s", interval)
	}
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		mon:      mon,
		interval: interval,
		policy:   policy,
		out:      make(chan Update, capacity),
		logger:   logger.With("component", "sampler"),
	}, nil
}

// Updates is the consumer end of the pipeline. It is closed when Run
// returns.
func (l *Loop) Updates() <-chan Update {
	return l.out
}

// Dropped reports how many updates were discarded under the
// drop-oldest policy.
func (l *Loop) Dropped() uint64 {
	return l.dropped.Load()
}

// Run samples until ctx is canceled, then closes the updates channel.
// Transient sampling errors are logged and the loop keeps going; it
// never terminates on its own.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.out)
	l.logger.Info("sampling started", "interval", l.interval, "capacity", cap(l.out))

	for {
		sample, procs, err := l.mon.Sample()
		if err != nil {
			l.logger.Warn("sampling failed", "error", err)
		} else if !l.send(ctx, Update{Sample: sample, Processes: procs}) {
			l.logger.Info("sampling stopped", "reason", context.Cause(ctx))
			return
		}

		timer := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.logger.Info("sampling stopped", "reason", context.Cause(ctx))
			return
		case <-timer.C:
		}
	}
}

func (l *Loop) send(ctx context.Context, u Update) bool {
	if l.policy == SendDropOldest {
		for {
			select {
			case <-ctx.Done():
				return false
			case l.out <- u:
				return true
			default:
			}
			select {
			case <-l.out:
				l.dropped.Add(1)
			default:
			}
		}
	}

	select {
	case <-ctx.Done():
		return false
	case l.out <- u:
		return true
	}
}
