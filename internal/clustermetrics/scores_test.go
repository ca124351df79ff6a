package clustermetrics

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func TestNewContingency(t *testing.T) {
	c, err := NewContingency([]int64{5, 5, 7, 7}, []int64{-1, 2, 2, 2})
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 7}, c.Classes)
	assert.Equal(t, []int64{-1, 2}, c.Clusters)
	assert.Equal(t, 4, c.N)
	assert.Equal(t, []float64{2, 2}, c.RowSums())
	assert.Equal(t, []float64{1, 3}, c.ColSums())
	assert.Equal(t, 1.0, c.Counts.At(0, 0))
	assert.Equal(t, 2.0, c.Counts.At(1, 1))
}

func TestNewContingency_LengthMismatch(t *testing.T) {
	_, err := NewContingency([]int64{1, 2}, []int64{1})
	assert.True(t, errors.Is(err, ErrLengthMismatch))
}

func TestScores_KnownValues(t *testing.T) {
	tests := []struct {
		name      string
		truth     []int64
		predicted []int64
		score     Scorer
		want      float64
	}{
		{"homogeneity split cluster", []int64{0, 0, 1, 1}, []int64{0, 0, 1, 2}, Homogeneity, 1},
		{"completeness split cluster", []int64{0, 0, 1, 1}, []int64{0, 0, 1, 2}, Completeness, 2.0 / 3.0},
		{"v_measure split cluster", []int64{0, 0, 1, 1}, []int64{0, 0, 1, 2}, VMeasure, 0.8},
		{"v_measure relabelled", []int64{0, 0, 1, 1}, []int64{1, 1, 0, 0}, VMeasure, 1},
		{"ari split cluster", []int64{0, 0, 1, 1}, []int64{0, 0, 1, 2}, AdjustedRand, 4.0 / 7.0},
		{"ari anti-correlated", []int64{0, 0, 1, 1}, []int64{0, 1, 0, 1}, AdjustedRand, -0.5},
		{"ari all singletons", []int64{0, 1, 2}, []int64{3, 4, 5}, AdjustedRand, 1},
		{"ari single cluster", []int64{1, 1, 1}, []int64{0, 0, 0}, AdjustedRand, 1},
		{"fmi split cluster", []int64{0, 0, 1, 1}, []int64{0, 0, 1, 2}, FowlkesMallows, 1 / math.Sqrt2},
		{"fmi no shared pairs", []int64{0, 0, 1, 1}, []int64{0, 1, 2, 3}, FowlkesMallows, 0},
		{"ami relabelled", []int64{0, 0, 1, 1}, []int64{1, 1, 0, 0}, AdjustedMutualInfo, 1},
		{"ami one class many clusters", []int64{0, 0, 0, 0}, []int64{0, 1, 2, 3}, AdjustedMutualInfo, 0},
		{"ami single cluster", []int64{2, 2}, []int64{9, 9}, AdjustedMutualInfo, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.score(tt.truth, tt.predicted), tol)
		})
	}
}

func TestScores_EmptyInput(t *testing.T) {
	h, c, v, err := HomogeneityCompletenessV(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, h)
	assert.Equal(t, 1.0, c)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, 1.0, AdjustedRand(nil, nil))
	assert.Equal(t, 1.0, AdjustedMutualInfo(nil, nil))
}

func TestScores_LengthMismatchIsNaN(t *testing.T) {
	for name, s := range map[string]Scorer{
		"v_measure":            VMeasure,
		"adjusted_rand":        AdjustedRand,
		"fowlkes_mallows":      FowlkesMallows,
		"adjusted_mutual_info": AdjustedMutualInfo,
	} {
		assert.True(t, math.IsNaN(s([]int64{1}, []int64{1, 2})), name)
	}
}

func TestScores_SymmetryAndBounds(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 50; iter++ {
		n := 5 + r.Intn(40)
		a := make([]int64, n)
		b := make([]int64, n)
		for i := range a {
			a[i] = int64(r.Intn(5))
			b[i] = int64(r.Intn(6)) - 1
		}

		assert.InDelta(t, AdjustedRand(a, b), AdjustedRand(b, a), tol)
		assert.InDelta(t, FowlkesMallows(a, b), FowlkesMallows(b, a), tol)
		assert.InDelta(t, VMeasure(a, b), VMeasure(b, a), tol)
		assert.InDelta(t, AdjustedMutualInfo(a, b), AdjustedMutualInfo(b, a), 1e-7)
		assert.InDelta(t, Homogeneity(a, b), Completeness(b, a), tol)

		for _, v := range []float64{VMeasure(a, b), Homogeneity(a, b), Completeness(a, b), FowlkesMallows(a, b)} {
			assert.GreaterOrEqual(t, v, -tol)
			assert.LessOrEqual(t, v, 1+tol)
		}
		assert.LessOrEqual(t, AdjustedRand(a, b), 1+tol)
		assert.LessOrEqual(t, AdjustedMutualInfo(a, b), 1+tol)

		// identical labellings are a perfect match
		assert.InDelta(t, 1.0, AdjustedRand(a, a), tol)
		assert.InDelta(t, 1.0, VMeasure(a, a), tol)
	}
}
