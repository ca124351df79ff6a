// Package clustermetrics provides label-agreement scores between a truth
// labelling and a predicted clustering, and a registry that exposes them
// together with the tracking metrics behind a single calling convention.
package clustermetrics

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrLengthMismatch is returned when truth and predicted labels differ in length.
var ErrLengthMismatch = errors.New("truth and predicted labels differ in length")

// Contingency counts co-occurrences of truth classes (rows) and predicted
// clusters (columns). Negative predicted labels are an ordinary cluster here.
type Contingency struct {
	Classes  []int64
	Clusters []int64
	Counts   *mat.Dense // nil when there are no samples
	N        int
}

// NewContingency builds the contingency table for two labellings.
func NewContingency(truth, predicted []int64) (*Contingency, error) {
	if len(truth) != len(predicted) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(truth), len(predicted))
	}
	c := &Contingency{N: len(truth)}
	if c.N == 0 {
		return c, nil
	}

	classIdx := indexLabels(truth, &c.Classes)
	clusterIdx := indexLabels(predicted, &c.Clusters)

	c.Counts = mat.NewDense(len(c.Classes), len(c.Clusters), nil)
	for i := range truth {
		r, col := classIdx[truth[i]], clusterIdx[predicted[i]]
		c.Counts.Set(r, col, c.Counts.At(r, col)+1)
	}
	return c, nil
}

// indexLabels collects the sorted distinct labels into *distinct and returns
// the label -> position lookup.
func indexLabels(labels []int64, distinct *[]int64) map[int64]int {
	seen := make(map[int64]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	out := make([]int64, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	idx := make(map[int64]int, len(out))
	for i, l := range out {
		idx[l] = i
	}
	*distinct = out
	return idx
}

// RowSums returns the number of samples per truth class.
func (c *Contingency) RowSums() []float64 {
	if c.Counts == nil {
		return nil
	}
	r, _ := c.Counts.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = mat.Sum(c.Counts.RowView(i))
	}
	return out
}

// ColSums returns the number of samples per predicted cluster.
func (c *Contingency) ColSums() []float64 {
	if c.Counts == nil {
		return nil
	}
	_, cols := c.Counts.Dims()
	out := make([]float64, cols)
	for j := range out {
		out[j] = mat.Sum(c.Counts.ColView(j))
	}
	return out
}

// each calls fn for every non-zero cell.
func (c *Contingency) each(fn func(i, j int, nij float64)) {
	if c.Counts == nil {
		return
	}
	r, cols := c.Counts.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			if v := c.Counts.At(i, j); v > 0 {
				fn(i, j, v)
			}
		}
	}
}
