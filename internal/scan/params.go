package scan

import (
	"math"
	"sort"
)

// Params is a proposed parameter set.
type Params map[string]float64

// Int returns the named parameter rounded to the nearest integer.
func (p Params) Int(name string) int {
	return int(math.Round(p[name]))
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Algorithm clusters the rows of one graph. It returns one label per row;
// negative labels mark noise.
type Algorithm func(features [][]float64, params Params) ([]int64, error)

// Suggest draws a parameter set from a trial.
type Suggest func(t Trial) Params

// Metric scores predicted labels against truth labels.
type Metric func(truth, predicted []int64) float64
