package monitor

import "sync"

// ScriptStep is one scripted sampling outcome.
type ScriptStep struct {
	Sample    Sample
	Processes []ProcessEntry
	Err       error
}

// ScriptedMonitor replays a predetermined sequence of sampling results,
// one per Sample call; the final step repeats once the script runs out.
// It exists so the pipeline can be exercised without GPU hardware.
type ScriptedMonitor struct {
	info StaticInfo

	mu    sync.Mutex
	steps []ScriptStep
	pos   int
}

// NewScripted builds a monitor that plays back the given steps in order.
func NewScripted(info StaticInfo, steps ...ScriptStep) *ScriptedMonitor {
	return &ScriptedMonitor{
		info:  info,
		steps: append([]ScriptStep(nil), steps...),
	}
}

func (s *ScriptedMonitor) StaticInfo() StaticInfo {
	return s.info
}

func (s *ScriptedMonitor) Sample() (Sample, []ProcessEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.steps) == 0 {
		return Sample{}, nil, &SamplingError{Field: "script", Reason: "no steps configured"}
	}

	step := s.steps[s.pos]
	if s.pos < len(s.steps)-1 {
		s.pos++
	}
	if step.Err != nil {
		return Sample{}, nil, step.Err
	}

	procs := append([]ProcessEntry(nil), step.Processes...)
	return step.Sample, dedupeProcesses(procs), nil
}
