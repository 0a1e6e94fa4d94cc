package kalman

// Phase is the state of the filter state machine.
type Phase int

const (
	// PhaseDiffuse runs while part of the state has unbounded variance.
	PhaseDiffuse Phase = iota
	// PhaseOrdinary is the standard covariance recursion.
	PhaseOrdinary
	// PhaseSteadyState reuses a frozen gain and covariance.
	PhaseSteadyState
)

func (p Phase) String() string {
	switch p {
	case PhaseDiffuse:
		return "diffuse"
	case PhaseOrdinary:
		return "ordinary"
	case PhaseSteadyState:
		return "steady-state"
	}
	return "unknown"
}
