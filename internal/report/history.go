package report

import (
	"math"

	"github.com/banshee-data/trackscan/internal/scan"
)

// Point is one trial in a study's optimisation history.
type Point struct {
	Trial int
	State scan.TrialState
	// Value is NaN for trials that did not complete.
	Value float64
	// Best is the best completed value up to and including this trial,
	// NaN until the first trial completes.
	Best float64
}

// History flattens a trial list into per-trial points with a running best.
func History(trials []scan.TrialRecord, dir scan.Direction) []Point {
	points := make([]Point, len(trials))
	best := math.NaN()
	for i, tr := range trials {
		v := math.NaN()
		if tr.State == scan.TrialComplete && !math.IsNaN(tr.Value) {
			v = tr.Value
			if math.IsNaN(best) || improves(dir, v, best) {
				best = v
			}
		}
		points[i] = Point{Trial: tr.Number, State: tr.State, Value: v, Best: best}
	}
	return points
}

func improves(dir scan.Direction, v, best float64) bool {
	if dir == scan.Minimize {
		return v < best
	}
	return v > best
}

// StateCounts tallies trials by state in TrialState order.
func StateCounts(trials []scan.TrialRecord) map[scan.TrialState]int {
	counts := make(map[scan.TrialState]int)
	for _, tr := range trials {
		counts[tr.State]++
	}
	return counts
}
