package scan

import (
	"math"
	"time"
)

// TrialState is the lifecycle state of a trial.
type TrialState int

const (
	TrialRunning TrialState = iota
	TrialComplete
	TrialPruned
	TrialFailed
)

func (s TrialState) String() string {
	switch s {
	case TrialRunning:
		return "running"
	case TrialComplete:
		return "complete"
	case TrialPruned:
		return "pruned"
	case TrialFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseTrialState is the inverse of TrialState.String.
func ParseTrialState(s string) (TrialState, bool) {
	for _, st := range []TrialState{TrialRunning, TrialComplete, TrialPruned, TrialFailed} {
		if st.String() == s {
			return st, true
		}
	}
	return TrialRunning, false
}

// TrialRecord is the stored history of one trial.
type TrialRecord struct {
	Number int        `json:"number"`
	State  TrialState `json:"state"`
	// Value is NaN unless the trial completed.
	Value        float64         `json:"value"`
	Params       Params          `json:"params"`
	Intermediate map[int]float64 `json:"intermediate"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  time.Time       `json:"completed_at"`
}

// LastStep returns the highest reported step, or -1 if nothing was reported.
func (r TrialRecord) LastStep() int {
	last := -1
	for step := range r.Intermediate {
		if step > last {
			last = step
		}
	}
	return last
}

// Duration is the wall time of a finished trial.
func (r TrialRecord) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

func (r TrialRecord) clone() TrialRecord {
	out := r
	out.Params = r.Params.Clone()
	out.Intermediate = make(map[int]float64, len(r.Intermediate))
	for k, v := range r.Intermediate {
		out.Intermediate[k] = v
	}
	return out
}

// Trial is the handle an objective uses to draw parameters and report
// progress.
type Trial interface {
	Number() int
	// SuggestFloat draws a value in [lo, hi]. Repeated calls for the same
	// name return the first value.
	SuggestFloat(name string, lo, hi float64) float64
	// SuggestLogFloat draws a value in [lo, hi] uniformly in log space.
	SuggestLogFloat(name string, lo, hi float64) float64
	// SuggestInt draws an integer in [lo, hi].
	SuggestInt(name string, lo, hi int) int
	// Report records an intermediate value for pruning.
	Report(value float64, step int)
	// ShouldPrune asks the study's pruner about the latest report.
	ShouldPrune() bool
	Params() Params
}

// trial is the Study's Trial implementation.
type trial struct {
	study *Study
	rec   *TrialRecord
}

func (t *trial) Number() int { return t.rec.Number }

func (t *trial) suggest(name string, draw func() float64) float64 {
	t.study.mu.Lock()
	if v, ok := t.rec.Params[name]; ok {
		t.study.mu.Unlock()
		return v
	}
	t.study.mu.Unlock()

	v := draw()

	t.study.mu.Lock()
	t.rec.Params[name] = v
	t.study.mu.Unlock()
	return v
}

func (t *trial) SuggestFloat(name string, lo, hi float64) float64 {
	return t.suggest(name, func() float64 { return t.study.sampler.Float(name, lo, hi, false) })
}

func (t *trial) SuggestLogFloat(name string, lo, hi float64) float64 {
	return t.suggest(name, func() float64 { return t.study.sampler.Float(name, lo, hi, true) })
}

func (t *trial) SuggestInt(name string, lo, hi int) int {
	v := t.suggest(name, func() float64 { return float64(t.study.sampler.Int(name, lo, hi)) })
	return int(math.Round(v))
}

func (t *trial) Report(value float64, step int) {
	t.study.mu.Lock()
	defer t.study.mu.Unlock()
	t.rec.Intermediate[step] = value
}

func (t *trial) ShouldPrune() bool {
	t.study.mu.Lock()
	current := t.rec.clone()
	t.study.mu.Unlock()
	return t.study.pruner.Prune(t.study, current)
}

func (t *trial) Params() Params {
	t.study.mu.Lock()
	defer t.study.mu.Unlock()
	return t.rec.Params.Clone()
}
