package scan

import (
	"math"
	"sort"
)

// Pruner decides whether a running trial should be abandoned after its
// latest report.
type Pruner interface {
	Prune(study *Study, current TrialRecord) bool
}

// NopPruner never prunes.
type NopPruner struct{}

func (NopPruner) Prune(*Study, TrialRecord) bool { return false }

// MedianPruner prunes a trial whose latest intermediate value is worse than
// the median of the completed trials' values at the same step.
type MedianPruner struct {
	// StartupTrials completed trials are needed before anything is pruned.
	StartupTrials int
	// WarmupSteps reports are never pruned below this step.
	WarmupSteps int
}

// NewMedianPruner returns a pruner with five startup trials and no warm-up.
func NewMedianPruner() *MedianPruner {
	return &MedianPruner{StartupTrials: 5}
}

func (p *MedianPruner) Prune(study *Study, current TrialRecord) bool {
	step := current.LastStep()
	if step < 0 || step < p.WarmupSteps {
		return false
	}
	values, completed := study.completedAtStep(step)
	if completed < p.StartupTrials || len(values) == 0 {
		return false
	}

	v := current.Intermediate[step]
	if math.IsNaN(v) {
		return true
	}
	med := median(values)
	if study.Direction == Minimize {
		return v > med
	}
	return v < med
}

// median of a non-empty slice; the input is not modified.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
