package trackeval

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allReconstructable(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func constPT(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestComputeTrackingMetrics_PerfectClusters(t *testing.T) {
	h := Hits{
		Truth:           []int64{1, 1, 1, 2, 2},
		Predicted:       []int64{0, 0, 0, 1, 1},
		PT:              constPT(5, 5),
		Reconstructable: allReconstructable(5),
	}

	t.Run("min_cluster_size_2", func(t *testing.T) {
		res, err := ComputeTrackingMetrics(h, []float64{0}, WithMinClusterSize(2))
		require.NoError(t, err)
		m := res[0]

		assert.Equal(t, 2, m.NParticles)
		assert.Equal(t, 2, m.NCleanedClusters)
		assert.Equal(t, 1.0, m.Perfect)
		assert.Equal(t, 1.0, m.DoubleMajority)
		assert.Equal(t, 1.0, m.LHC)
		assert.Equal(t, 0.0, m.FakePerfect)
		assert.Equal(t, 0.0, m.FakeDoubleMajority)
		assert.Equal(t, 0.0, m.FakeLHC)
	})

	t.Run("default_min_cluster_size", func(t *testing.T) {
		// cluster 1 has only two hits and is not structurally valid
		res, err := ComputeTrackingMetrics(h, []float64{0})
		require.NoError(t, err)
		m := res[0]

		assert.Equal(t, 2, m.NParticles)
		assert.Equal(t, 1, m.NCleanedClusters)
		assert.Equal(t, 0.5, m.Perfect)
		assert.Equal(t, 0.5, m.DoubleMajority)
		assert.Equal(t, 1.0, m.LHC)
		assert.Equal(t, 0.0, m.FakePerfect)
		assert.Equal(t, 0.0, m.FakeDoubleMajority)
		assert.Equal(t, 0.0, m.FakeLHC)
	})
}

func TestComputeTrackingMetrics_SplitParticle(t *testing.T) {
	h := Hits{
		Truth:           []int64{1, 1, 1, 2, 2},
		Predicted:       []int64{0, 0, 1, 1, 1},
		PT:              constPT(5, 5),
		Reconstructable: allReconstructable(5),
	}

	clusters := summariseClusters(h, DefaultMinClusterSize)
	require.Len(t, clusters, 2)
	assert.Equal(t, int64(1), clusters[0].majorityPID)
	assert.Equal(t, 2, clusters[0].majorityHits)
	assert.Equal(t, 2, clusters[0].size)
	assert.Equal(t, int64(2), clusters[1].majorityPID)
	assert.Equal(t, 2, clusters[1].majorityHits)
	assert.Equal(t, 3, clusters[1].size)

	t.Run("default_min_cluster_size", func(t *testing.T) {
		res, err := ComputeTrackingMetrics(h, []float64{0})
		require.NoError(t, err)
		m := res[0]

		// Only cluster 1 is valid: particle 2 is fully inside it (2/2) and
		// owns 2/3 of it.
		assert.Equal(t, 2, m.NParticles)
		assert.Equal(t, 1, m.NCleanedClusters)
		assert.Equal(t, 0, m.PerfectCount)
		assert.Equal(t, 1, m.DoubleMajorityCount)
		assert.Equal(t, 0, m.LHCCount)
		assert.Equal(t, 0.0, m.Perfect)
		assert.Equal(t, 0.5, m.DoubleMajority)
		assert.Equal(t, 0.0, m.LHC)
		assert.Equal(t, 0.5, m.FakePerfect)
		assert.Equal(t, 0.0, m.FakeDoubleMajority)
		assert.Equal(t, 1.0, m.FakeLHC)
	})

	t.Run("min_cluster_size_2", func(t *testing.T) {
		res, err := ComputeTrackingMetrics(h, []float64{0}, WithMinClusterSize(2))
		require.NoError(t, err)
		m := res[0]

		// cluster 0: 2 of particle 1's 3 hits, pure -> double majority + lhc
		// cluster 1: majority particle 2 at 2/3 purity -> double majority only
		assert.Equal(t, 2, m.NCleanedClusters)
		assert.Equal(t, 0, m.PerfectCount)
		assert.Equal(t, 2, m.DoubleMajorityCount)
		assert.Equal(t, 1, m.LHCCount)
		assert.Equal(t, 1.0, m.DoubleMajority)
		assert.Equal(t, 0.5, m.LHC)
		assert.Equal(t, 1.0, m.FakePerfect)
		assert.Equal(t, 0.5, m.FakeLHC)
	})
}

func TestComputeTrackingMetrics_FakeRatiosOverParticles(t *testing.T) {
	// one particle split evenly across two pure clusters
	h := Hits{
		Truth:           []int64{1, 1, 1, 1, 1, 1},
		Predicted:       []int64{0, 0, 0, 1, 1, 1},
		PT:              constPT(6, 5),
		Reconstructable: allReconstructable(6),
	}

	res, err := ComputeTrackingMetrics(h, []float64{0})
	require.NoError(t, err)
	m := res[0]

	assert.Equal(t, 1, m.NParticles)
	assert.Equal(t, 2, m.NCleanedClusters)
	assert.Equal(t, 0, m.PerfectCount)
	assert.Equal(t, 0, m.DoubleMajorityCount)
	assert.Equal(t, 2, m.LHCCount)
	// perfect and double majority fakes are normalised by particle count
	assert.Equal(t, 2.0, m.FakePerfect)
	assert.Equal(t, 2.0, m.FakeDoubleMajority)
	assert.Equal(t, 0.0, m.FakeLHC)
}

func TestComputeTrackingMetrics_Empty(t *testing.T) {
	res, err := ComputeTrackingMetrics(Hits{}, []float64{0, 0.9, 1.5})
	require.NoError(t, err)
	require.Len(t, res, 3)

	for pt, m := range res {
		assert.Zero(t, m.NParticles, "pt=%v", pt)
		assert.Zero(t, m.NCleanedClusters, "pt=%v", pt)
		for _, v := range []float64{m.Perfect, m.DoubleMajority, m.LHC, m.FakePerfect, m.FakeDoubleMajority, m.FakeLHC} {
			assert.True(t, IsUndefined(v), "pt=%v: expected undefined ratio, got %v", pt, v)
		}
	}
}

func TestComputeTrackingMetrics_ShapeMismatch(t *testing.T) {
	h := Hits{
		Truth:           []int64{1, 1, 2},
		Predicted:       []int64{0, 0},
		PT:              constPT(3, 1),
		Reconstructable: allReconstructable(3),
	}
	_, err := ComputeTrackingMetrics(h, []float64{0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 3, shapeErr.Truth)
	assert.Equal(t, 2, shapeErr.Predicted)
}

func TestComputeTrackingMetrics_PTThresholdGating(t *testing.T) {
	h := Hits{
		Truth:           []int64{1, 1, 1, 2, 2, 2},
		Predicted:       []int64{0, 0, 0, 1, 1, 1},
		PT:              []float64{0.5, 0.5, 0.5, 2, 2, 2},
		Reconstructable: allReconstructable(6),
	}
	res, err := ComputeTrackingMetrics(h, []float64{0, 1, 3})
	require.NoError(t, err)

	assert.Equal(t, 2, res[0].NParticles)
	assert.Equal(t, 2, res[0].NCleanedClusters)
	assert.Equal(t, 1.0, res[0].Perfect)

	assert.Equal(t, 1, res[1].NParticles)
	assert.Equal(t, 1, res[1].NCleanedClusters)
	assert.Equal(t, 1.0, res[1].Perfect)
	assert.Equal(t, 1.0, res[1].LHC)

	assert.Equal(t, 0, res[3].NParticles)
	assert.Equal(t, 0, res[3].NCleanedClusters)
	assert.True(t, IsUndefined(res[3].Perfect))
	assert.True(t, IsUndefined(res[3].LHC))
}

func TestComputeTrackingMetrics_ReconstructableGate(t *testing.T) {
	h := Hits{
		Truth:           []int64{1, 1, 1, 2, 2, 2},
		Predicted:       []int64{0, 0, 0, 1, 1, 1},
		PT:              constPT(6, 1),
		Reconstructable: []bool{true, true, true, false, false, false},
	}
	res, err := ComputeTrackingMetrics(h, []float64{0})
	require.NoError(t, err)
	m := res[0]

	// the cluster of the unreconstructable particle is still "cleaned" but
	// cannot match, so it shows up as a fake
	assert.Equal(t, 2, m.NCleanedClusters)
	assert.Equal(t, 1, m.PerfectCount)
	assert.Equal(t, 1, m.FakePerfectCount)
	assert.Equal(t, 0.5, m.LHC)
	assert.Equal(t, 0.5, m.FakeLHC)
}

func TestComputeTrackingMetrics_NoiseIgnored(t *testing.T) {
	h := Hits{
		Truth:           []int64{1, 1, 1, 1, 2, 2, 2},
		Predicted:       []int64{-1, -1, -1, -1, 0, 0, 0},
		PT:              constPT(7, 1),
		Reconstructable: allReconstructable(7),
	}
	res, err := ComputeTrackingMetrics(h, []float64{0})
	require.NoError(t, err)
	m := res[0]

	assert.Equal(t, 2, m.NParticles)
	assert.Equal(t, 1, m.NCleanedClusters)
	assert.Equal(t, 1, m.PerfectCount)
	assert.Equal(t, 0.5, m.Perfect)
}

func TestMajorityTieBreak(t *testing.T) {
	// truth ids 3 and 5 both contribute two hits; the smaller id wins
	// regardless of hit order
	orders := [][]int64{
		{5, 3, 5, 3},
		{3, 5, 3, 5},
		{5, 5, 3, 3},
	}
	for _, truth := range orders {
		h := Hits{
			Truth:           truth,
			Predicted:       []int64{7, 7, 7, 7},
			PT:              constPT(4, 1),
			Reconstructable: allReconstructable(4),
		}
		clusters := summariseClusters(h, DefaultMinClusterSize)
		require.Len(t, clusters, 1)
		assert.Equal(t, int64(3), clusters[0].majorityPID, "truth=%v", truth)
		assert.Equal(t, 2, clusters[0].majorityHits)
	}
}

func randomHits(r *rand.Rand, n int) Hits {
	nParticles := 1 + r.Intn(12)
	pts := make([]float64, nParticles)
	recon := make([]bool, nParticles)
	for i := range pts {
		pts[i] = r.Float64() * 3
		recon[i] = r.Float64() < 0.8
	}
	h := Hits{
		Truth:           make([]int64, n),
		Predicted:       make([]int64, n),
		PT:              make([]float64, n),
		Reconstructable: make([]bool, n),
	}
	nClusters := 1 + r.Intn(10)
	for i := 0; i < n; i++ {
		pid := r.Intn(nParticles)
		h.Truth[i] = int64(pid)
		h.PT[i] = pts[pid]
		h.Reconstructable[i] = recon[pid]
		if r.Float64() < 0.7 {
			h.Predicted[i] = int64(pid % nClusters)
		} else {
			h.Predicted[i] = int64(r.Intn(nClusters+1) - 1)
		}
	}
	return h
}

func TestComputeTrackingMetrics_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	thresholds := []float64{0, 0.5, 0.9, 1.5, 2.5, 10}

	for iter := 0; iter < 200; iter++ {
		h := randomHits(r, 1+r.Intn(80))
		res, err := ComputeTrackingMetrics(h, thresholds)
		require.NoError(t, err)

		prevParticles, prevClusters := math.MaxInt, math.MaxInt
		for _, pt := range thresholds {
			m := res[pt]

			assert.Equal(t, m.NCleanedClusters, m.PerfectCount+m.FakePerfectCount)
			assert.Equal(t, m.NCleanedClusters, m.DoubleMajorityCount+m.FakeDoubleMajorityCount)
			assert.Equal(t, m.NCleanedClusters, m.LHCCount+m.FakeLHCCount)

			for name, v := range map[string]float64{
				"perfect":         m.Perfect,
				"double_majority": m.DoubleMajority,
				"lhc":             m.LHC,
				"fake_lhc":        m.FakeLHC,
			} {
				if IsUndefined(v) {
					continue
				}
				assert.GreaterOrEqual(t, v, 0.0, name)
				assert.LessOrEqual(t, v, 1.0, name)
			}
			for _, v := range []float64{m.FakePerfect, m.FakeDoubleMajority} {
				if !IsUndefined(v) {
					assert.GreaterOrEqual(t, v, 0.0)
				}
			}

			assert.LessOrEqual(t, m.NParticles, prevParticles)
			assert.LessOrEqual(t, m.NCleanedClusters, prevClusters)
			prevParticles, prevClusters = m.NParticles, m.NCleanedClusters
		}
	}
}

func TestComputeTrackingMetrics_HitOrderInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	h := randomHits(r, 60)
	want, err := ComputeTrackingMetrics(h, []float64{0, 1})
	require.NoError(t, err)

	perm := r.Perm(h.Len())
	shuffled := Hits{
		Truth:           make([]int64, h.Len()),
		Predicted:       make([]int64, h.Len()),
		PT:              make([]float64, h.Len()),
		Reconstructable: make([]bool, h.Len()),
	}
	for i, j := range perm {
		shuffled.Truth[i] = h.Truth[j]
		shuffled.Predicted[i] = h.Predicted[j]
		shuffled.PT[i] = h.PT[j]
		shuffled.Reconstructable[i] = h.Reconstructable[j]
	}
	got, err := ComputeTrackingMetrics(shuffled, []float64{0, 1})
	require.NoError(t, err)

	for _, pt := range []float64{0, 1} {
		assert.Equal(t, want[pt].PerfectCount, got[pt].PerfectCount)
		assert.Equal(t, want[pt].DoubleMajorityCount, got[pt].DoubleMajorityCount)
		assert.Equal(t, want[pt].LHCCount, got[pt].LHCCount)
		assert.Equal(t, want[pt].NCleanedClusters, got[pt].NCleanedClusters)
	}
}

func TestSummariseClusters_SortedByID(t *testing.T) {
	h := Hits{
		Truth:           []int64{1, 2, 3, 4},
		Predicted:       []int64{9, -1, 4, 0},
		PT:              constPT(4, 1),
		Reconstructable: allReconstructable(4),
	}
	clusters := summariseClusters(h, 1)
	ids := make([]int64, len(clusters))
	for i, c := range clusters {
		ids[i] = c.id
	}
	assert.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] < ids[j] }))
	assert.False(t, clusters[0].structValid, "noise label must never be valid")
}
