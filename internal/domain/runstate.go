package domain

// RunPhase is the scheduler state.
type RunPhase string

const (
	PhaseIdle    RunPhase = "IDLE"
	PhaseRunning RunPhase = "RUNNING"
	PhasePaused  RunPhase = "PAUSED"
)

// StopReason tells Stop which log entry to write.
type StopReason string

const (
	StopManual   StopReason = "manual"
	StopFinished StopReason = "finished"
	StopError    StopReason = "error"
)

// ParseStopReason maps a reason name to a StopReason. Empty means manual.
func ParseStopReason(s string) (StopReason, error) {
	switch StopReason(s) {
	case "", StopManual:
		return StopManual, nil
	case StopFinished:
		return StopFinished, nil
	case StopError:
		return StopError, nil
	}
	return "", NewDomainError("Cycle.Stop", ErrInvalidInput, "unknown stop reason "+s)
}

// RunState is a point-in-time copy of the scheduler state.
// IsPaused implies IsRunning.
type RunState struct {
	IsRunning           bool           `json:"isRunning"`
	IsPaused            bool           `json:"isPaused"`
	CurrentLinkIndex    int            `json:"currentLinkIndex"`
	TotalIterationCount int            `json:"totalIterationCount"`
	SingleLoopLinkID    string         `json:"singleLoopLinkId,omitempty"`
	PerLinkVisitCount   map[string]int `json:"perLinkVisitCount"`
	ActiveLinkID        string         `json:"activeLinkId,omitempty"`
}

// IdleRunState is the state after a stop, and before the first start.
func IdleRunState() RunState {
	return RunState{CurrentLinkIndex: -1, PerLinkVisitCount: map[string]int{}}
}

// Phase derives the state machine phase from the flags.
func (s RunState) Phase() RunPhase {
	switch {
	case s.IsPaused:
		return PhasePaused
	case s.IsRunning:
		return PhaseRunning
	}
	return PhaseIdle
}

// Clone returns a deep copy.
func (s RunState) Clone() RunState {
	out := s
	out.PerLinkVisitCount = make(map[string]int, len(s.PerLinkVisitCount))
	for k, v := range s.PerLinkVisitCount {
		out.PerLinkVisitCount[k] = v
	}
	return out
}
