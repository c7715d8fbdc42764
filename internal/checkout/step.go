package checkout

// Step is a checkout stage. The flow is strictly linear: forward one
// step at a time through the guards, backward one step at a time from
// any non-terminal step after Order.
type Step int

const (
	StepOrder Step = iota
	StepShipping
	StepPayment
	StepReview
	StepConfirmed
)

// validTransitions enumerates every legal move; anything absent is a
// rejected skip.
var validTransitions = map[Step][]Step{
	StepOrder:     {StepShipping},
	StepShipping:  {StepPayment, StepOrder},
	StepPayment:   {StepReview, StepShipping},
	StepReview:    {StepConfirmed, StepPayment},
	StepConfirmed: {},
}

// CanTransition reports whether moving to target is legal from s.
func (s Step) CanTransition(target Step) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the step ends the session. Nothing leaves
// Confirmed except starting a new session.
func (s Step) IsTerminal() bool {
	return s == StepConfirmed
}

func (s Step) String() string {
	switch s {
	case StepOrder:
		return "order"
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	case StepConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}
