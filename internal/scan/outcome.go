package scan

import "context"

// OutcomeKind tags the result of one objective evaluation.
type OutcomeKind int

const (
	// OutcomeEvaluated carries a figure of merit.
	OutcomeEvaluated OutcomeKind = iota
	// OutcomePruned means the trial was abandoned and produced no value.
	OutcomePruned
	// OutcomeHalted carries a figure of merit and ends the search.
	OutcomeHalted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEvaluated:
		return "evaluated"
	case OutcomePruned:
		return "pruned"
	case OutcomeHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of an objective.
type Outcome struct {
	Kind  OutcomeKind
	Value float64
}

// Evaluated returns a completed outcome with value v.
func Evaluated(v float64) Outcome { return Outcome{Kind: OutcomeEvaluated, Value: v} }

// Pruned returns an outcome without a value.
func Pruned() Outcome { return Outcome{Kind: OutcomePruned} }

// Halted returns a completed outcome that also stops the search.
func Halted(v float64) Outcome { return Outcome{Kind: OutcomeHalted, Value: v} }

// Objective evaluates one trial. A returned error fails the trial and aborts
// the optimisation.
type Objective func(ctx context.Context, t Trial) (Outcome, error)
