package scan

import "math"

// EarlyStopping decides after each trial whether the whole search should end.
type EarlyStopping interface {
	ShouldStop(fom float64) bool
	// Reset clears internal state; called at the start of every scan.
	Reset()
}

// NoEarlyStopping never stops.
type NoEarlyStopping struct{}

func (NoEarlyStopping) ShouldStop(float64) bool { return false }
func (NoEarlyStopping) Reset()                  {}

// RelativeEarlyStopper stops once Wait consecutive evaluations fail to
// improve the best figure of merit by more than ChangeThreshold, relative to
// its magnitude. The first Grace evaluations never stop the search. NaN
// counts as no improvement.
type RelativeEarlyStopper struct {
	Wait            int
	Grace           int
	Mode            Direction
	ChangeThreshold float64

	best    float64
	hasBest bool
	seen    int
	stale   int
}

func (s *RelativeEarlyStopper) Reset() {
	s.best = 0
	s.hasBest = false
	s.seen = 0
	s.stale = 0
}

func (s *RelativeEarlyStopper) ShouldStop(fom float64) bool {
	s.seen++

	if s.improves(fom) {
		s.stale = 0
	} else {
		s.stale++
	}
	if !math.IsNaN(fom) && (!s.hasBest || s.Mode.better(fom, s.best)) {
		s.best = fom
		s.hasBest = true
	}

	if s.seen <= s.Grace || s.Wait <= 0 {
		return false
	}
	return s.stale >= s.Wait
}

func (s *RelativeEarlyStopper) improves(fom float64) bool {
	if math.IsNaN(fom) {
		return false
	}
	if !s.hasBest {
		return true
	}
	delta := fom - s.best
	if s.Mode == Minimize {
		delta = -delta
	}
	if s.best != 0 {
		delta /= math.Abs(s.best)
	}
	return delta > s.ChangeThreshold
}
