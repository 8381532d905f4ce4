// Package history holds the consumer-side state of the sampling
// pipeline: a sliding window of recent samples and a latest-only table
// of GPU processes, both shared with the renderer under short locks.
package history

import (
	"sync"

	"github.com/nvgputop/nvgputop-web/internal/monitor"
)

// Store is a bounded, timestamp-ordered buffer of samples. The time
// bound follows the newest sample: after every push, no retained sample
// is older than newest.Timestamp - displayDuration. A display duration
// of zero disables the time bound ("all" preset); maxSamples caps the
// element count regardless, so memory stays bounded either way.
type Store struct {
	mu              sync.Mutex
	samples         []monitor.Sample
	displayDuration float64
	maxSamples      int
}

// NewStore builds a Store. displayDuration is in seconds; zero means no
// time bound. maxSamples of zero means no count bound.
func NewStore(displayDuration float64, maxSamples int) *Store {
	if displayDuration < 0 {
		displayDuration = 0
	}
	if maxSamples < 0 {
		maxSamples = 0
	}
	return &Store{
		displayDuration: displayDuration,
		maxSamples:      maxSamples,
	}
}

// Push appends a sample and evicts everything that fell out of the
// window. Samples arrive in timestamp order from the single producer;
// out-of-order input is not supported and not reordered.
func (s *Store) Push(sample monitor.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	s.evictLocked()
}

// Snapshot copies the current window out under the lock. The copy is
// the caller's to keep; the renderer iterates it without holding any
// store state.
func (s *Store) Snapshot() []monitor.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]monitor.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Latest returns the most recent sample, if any.
func (s *Store) Latest() (monitor.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == 0 {
		return monitor.Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Len reports the current window size.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

// DisplayDuration returns the current time bound in seconds (0 = all).
func (s *Store) DisplayDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayDuration
}

// SetDisplayDuration changes the time bound and re-evicts immediately,
// so a shorter window takes effect without waiting for the next sample.
func (s *Store) SetDisplayDuration(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayDuration = seconds
	s.evictLocked()
}

func (s *Store) evictLocked() {
	if len(s.samples) == 0 {
		return
	}

	start := 0
	if s.displayDuration > 0 {
		windowStart := s.samples[len(s.samples)-1].Timestamp - s.displayDuration
		if windowStart < 0 {
			windowStart = 0
		}
		for start < len(s.samples) && s.samples[start].Timestamp < windowStart {
			start++
		}
	}
	if s.maxSamples > 0 && len(s.samples)-start > s.maxSamples {
		start = len(s.samples) - s.maxSamples
	}
	if start == 0 {
		return
	}

	kept := len(s.samples) - start
	copy(s.samples, s.samples[start:])
	// Truncate instead of re-slicing so the backing array is reused.
	s.samples = s.samples[:kept]
}
