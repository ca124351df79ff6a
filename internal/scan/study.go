package scan

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trackscan/internal/monitoring"
	"github.com/banshee-data/trackscan/internal/timeutil"
)

var logf = monitoring.Component("scan")

// Direction is the optimisation direction of a study.
type Direction int

const (
	Maximize Direction = iota
	Minimize
)

func (d Direction) String() string {
	if d == Minimize {
		return "minimize"
	}
	return "maximize"
}

// ParseDirection accepts "maximize" or "minimize".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "maximize", "":
		return Maximize, nil
	case "minimize":
		return Minimize, nil
	default:
		return Maximize, fmt.Errorf("unknown direction %q", s)
	}
}

// better reports whether a is strictly better than b. NaN is never better.
func (d Direction) better(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	if d == Minimize {
		return a < b
	}
	return a > b
}

// StopReason records why the last Optimize call returned.
type StopReason string

const (
	StopNone      StopReason = ""
	StopBudget    StopReason = "budget"
	StopTimeout   StopReason = "timeout"
	StopCancelled StopReason = "cancelled"
	StopRequested StopReason = "requested"
	StopHalted    StopReason = "halted"
	StopFailed    StopReason = "failed"
)

// Budget bounds one Optimize call. Zero fields are unbounded but at least one
// must be set.
type Budget struct {
	NTrials int
	Timeout time.Duration
}

// Validate checks the budget.
func (b Budget) Validate() error {
	if b.NTrials < 0 || b.Timeout < 0 {
		return fmt.Errorf("%w: negative budget", ErrInvalidBudget)
	}
	if b.NTrials == 0 && b.Timeout == 0 {
		return ErrInvalidBudget
	}
	return nil
}

func (b Budget) String() string {
	switch {
	case b.NTrials > 0 && b.Timeout > 0:
		return fmt.Sprintf("%d trials or %s", b.NTrials, b.Timeout)
	case b.Timeout > 0:
		return b.Timeout.String()
	default:
		return fmt.Sprintf("%d trials", b.NTrials)
	}
}

// Study holds the trial history of one search.
type Study struct {
	ID        string
	Name      string
	Direction Direction

	sampler Sampler
	pruner  Pruner
	clock   timeutil.Clock

	mu            sync.Mutex
	trials        []*TrialRecord
	stopReason    StopReason
	stopRequested bool
	startedAt     time.Time
	completedAt   time.Time
}

// StudyOption configures NewStudy.
type StudyOption func(*Study)

// WithSampler sets the parameter sampler.
func WithSampler(s Sampler) StudyOption { return func(st *Study) { st.sampler = s } }

// WithPruner sets the pruner.
func WithPruner(p Pruner) StudyOption { return func(st *Study) { st.pruner = p } }

// WithClock sets the clock used for timestamps and timeouts.
func WithClock(c timeutil.Clock) StudyOption { return func(st *Study) { st.clock = c } }

// WithDirection sets the optimisation direction.
func WithDirection(d Direction) StudyOption { return func(st *Study) { st.Direction = d } }

// WithName sets a human readable study name.
func WithName(name string) StudyOption { return func(st *Study) { st.Name = name } }

// NewStudy creates a study with a fresh id. Defaults: maximise, random
// sampler seeded from the clock, median pruner, real clock.
func NewStudy(opts ...StudyOption) *Study {
	s := &Study{
		ID:        uuid.NewString(),
		Direction: Maximize,
		clock:     timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sampler == nil {
		s.sampler = NewRandomSampler(rand.New(rand.NewSource(s.clock.Now().UnixNano())))
	}
	if s.pruner == nil {
		s.pruner = NewMedianPruner()
	}
	return s
}

// Stop asks a running Optimize to return after the current trial.
func (s *Study) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRequested = true
}

// StopReason returns why the last Optimize call returned.
func (s *Study) StopReason() StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopReason
}

// StartedAt and CompletedAt bound the most recent Optimize call.
func (s *Study) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Study) CompletedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedAt
}

// Trials returns a copy of the trial history in trial order.
func (s *Study) Trials() []TrialRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TrialRecord, len(s.trials))
	for i, t := range s.trials {
		out[i] = t.clone()
	}
	return out
}

// Best returns the best completed trial.
func (s *Study) Best() (TrialRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *TrialRecord
	for _, t := range s.trials {
		if t.State != TrialComplete {
			continue
		}
		if best == nil || s.Direction.better(t.Value, best.Value) {
			best = t
		}
	}
	if best == nil {
		return TrialRecord{}, false
	}
	return best.clone(), true
}

// BestValue returns the best completed value, NaN if there is none.
func (s *Study) BestValue() float64 {
	best, ok := s.Best()
	if !ok {
		return math.NaN()
	}
	return best.Value
}

// BestParams returns the parameters of the best completed trial.
func (s *Study) BestParams() Params {
	best, ok := s.Best()
	if !ok {
		return nil
	}
	return best.Params
}

// completedAtStep returns the values completed trials reported at step.
func (s *Study) completedAtStep(step int) (values []float64, completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trials {
		if t.State != TrialComplete {
			continue
		}
		completed++
		if v, ok := t.Intermediate[step]; ok && !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	return values, completed
}

func (s *Study) newTrial() *trial {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &TrialRecord{
		Number:       len(s.trials),
		State:        TrialRunning,
		Value:        math.NaN(),
		Params:       make(Params),
		Intermediate: make(map[int]float64),
		StartedAt:    s.clock.Now(),
	}
	s.trials = append(s.trials, rec)
	return &trial{study: s, rec: rec}
}

func (s *Study) finish(t *trial, state TrialState, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.rec.State = state
	t.rec.Value = value
	t.rec.CompletedAt = s.clock.Now()
}

func (s *Study) setStop(reason StopReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopReason = reason
	s.completedAt = s.clock.Now()
}

// nextStop returns the reason the loop must end before starting trial n, or
// StopNone to continue.
func (s *Study) nextStop(ctx context.Context, n int, budget Budget, start time.Time) StopReason {
	if ctx.Err() != nil {
		return StopCancelled
	}
	s.mu.Lock()
	requested := s.stopRequested
	s.mu.Unlock()
	switch {
	case requested:
		return StopRequested
	case budget.NTrials > 0 && n >= budget.NTrials:
		return StopBudget
	case budget.Timeout > 0 && s.clock.Since(start) >= budget.Timeout:
		return StopTimeout
	}
	return StopNone
}

// Optimize runs trials one at a time until the budget is spent, the context
// is cancelled, Stop is called or an objective halts the search. An
// objective error fails the trial and is returned unchanged, unless the
// context was cancelled: the trial is then recorded as pruned and ctx.Err()
// is returned with StopCancelled. Repeated calls append to the same history.
func (s *Study) Optimize(ctx context.Context, objective Objective, budget Budget) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := budget.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.stopRequested = false
	s.stopReason = StopNone
	s.startedAt = s.clock.Now()
	s.completedAt = time.Time{}
	start := s.startedAt
	s.mu.Unlock()

	for n := 0; ; n++ {
		if reason := s.nextStop(ctx, n, budget, start); reason != StopNone {
			s.setStop(reason)
			if reason == StopCancelled {
				return ctx.Err()
			}
			return nil
		}

		t := s.newTrial()
		outcome, err := objective(ctx, t)
		if err != nil && ctx.Err() != nil {
			// abandoned mid-trial: no objective, not an algorithm failure
			s.finish(t, TrialPruned, math.NaN())
			s.setStop(StopCancelled)
			logf("Trial %d abandoned: %v", t.Number(), ctx.Err())
			return ctx.Err()
		}
		if err != nil {
			s.finish(t, TrialFailed, math.NaN())
			s.setStop(StopFailed)
			logf("Trial %d failed: %v", t.Number(), err)
			return err
		}

		switch outcome.Kind {
		case OutcomePruned:
			s.finish(t, TrialPruned, math.NaN())
			logf("Trial %d pruned at step %d", t.Number(), t.rec.LastStep())
		case OutcomeHalted:
			s.finish(t, TrialComplete, outcome.Value)
			s.setStop(StopHalted)
			logf("Trial %d finished with value %.6g, search halted", t.Number(), outcome.Value)
			return nil
		default:
			s.finish(t, TrialComplete, outcome.Value)
			logf("Trial %d finished with value %.6g", t.Number(), outcome.Value)
		}
	}
}
