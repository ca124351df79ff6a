package trackeval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenotePT(t *testing.T) {
	testCases := []struct {
		name string
		pt   float64
		want string
	}{
		{"perfect", 0, "perfect_pt0"},
		{"lhc", 0.9, "lhc_pt0.9"},
		{"lhc", 0.91, "lhc_pt0.91"},
		{"double_majority", 1.5, "double_majority_pt1.5"},
		{"n_particles", 10, "n_particles_pt10"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, DenotePT(tc.name, tc.pt))
		})
	}
}

func TestFlattenTrackMetrics_KeysAreStatisticByThreshold(t *testing.T) {
	h := Hits{
		Truth:           []int64{1, 1, 1, 2, 2, 2},
		Predicted:       []int64{0, 0, 0, 1, 1, 1},
		PT:              []float64{0.5, 0.5, 0.5, 2, 2, 2},
		Reconstructable: allReconstructable(6),
	}
	thresholds := []float64{0, 0.9, 0.91, 1.0, 1.5}
	res, err := ComputeTrackingMetrics(h, thresholds)
	require.NoError(t, err)

	flat := FlattenTrackMetrics(res)
	require.Len(t, flat, len(thresholds)*len(Statistics))

	for _, pt := range thresholds {
		for _, stat := range Statistics {
			key := DenotePT(stat, pt)
			_, ok := flat[key]
			assert.True(t, ok, "missing key %s", key)
		}
	}
	assert.Equal(t, 1.0, flat["n_particles_pt1"])
	assert.Equal(t, 2.0, flat["n_particles_pt0"])
}

func TestCountHitsPerCluster(t *testing.T) {
	assert.Nil(t, CountHitsPerCluster(nil))

	// sizes: 0->3, 1->1, 2->3, -1->2
	counts := CountHitsPerCluster([]int64{0, 0, 0, 1, 2, 2, 2, -1, -1})
	assert.Equal(t, []int{1, 1, 2}, counts)
}

func TestHitsPerClusterCountToFlat(t *testing.T) {
	flat := HitsPerClusterCountToFlat([]int{1, 1, 2}, 5)
	require.Len(t, flat, 5)

	want := []float64{1, 0.75, 0.5, 0, 0}
	for i, w := range want {
		key := fmt.Sprintf("hitcountgeq_%04d", i+1)
		assert.InDelta(t, w, flat[key], 1e-12, key)
	}

	empty := HitsPerClusterCountToFlat(nil, 2)
	assert.Equal(t, map[string]float64{"hitcountgeq_0001": 0, "hitcountgeq_0002": 0}, empty)
}
