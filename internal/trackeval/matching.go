package trackeval

import (
	"sort"

	"github.com/banshee-data/trackscan/internal/monitoring"
)

var logf = monitoring.Component("trackeval")

// Option configures ComputeTrackingMetrics.
type Option func(*options)

type options struct {
	minClusterSize int
}

// WithMinClusterSize sets the minimum number of hits for a cluster to be
// valid. Values below 1 are treated as 1.
func WithMinClusterSize(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.minClusterSize = n
	}
}

// clusterSummary describes one predicted cluster.
type clusterSummary struct {
	id            int64
	size          int
	majorityPID   int64
	majorityHits  int
	structValid   bool
	pidHitCounter map[int64]int
}

// particleSummary holds the first-seen properties of one truth id and its
// total hit count across all clusters.
type particleSummary struct {
	pt              float64
	reconstructable bool
	hits            int
}

// ComputeTrackingMetrics classifies every predicted cluster against truth and
// returns one TrackingMetrics per requested pt threshold.
//
// The majority particle of a cluster is the truth id with the most hits in
// it; ties go to the smallest truth id so the result does not depend on hit
// order.
func ComputeTrackingMetrics(h Hits, ptThresholds []float64, opts ...Option) (map[float64]TrackingMetrics, error) {
	o := options{minClusterSize: DefaultMinClusterSize}
	for _, opt := range opts {
		opt(&o)
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}

	result := make(map[float64]TrackingMetrics, len(ptThresholds))
	if h.Len() == 0 {
		for _, pt := range ptThresholds {
			result[pt] = undefinedMetrics()
		}
		return result, nil
	}

	clusters := summariseClusters(h, o.minClusterSize)
	particles := summariseParticles(h)

	for _, pt := range ptThresholds {
		result[pt] = metricsAtThreshold(h, clusters, particles, pt)
	}
	return result, nil
}

func summariseClusters(h Hits, minClusterSize int) []*clusterSummary {
	byID := make(map[int64]*clusterSummary)
	for i, cid := range h.Predicted {
		c, ok := byID[cid]
		if !ok {
			c = &clusterSummary{id: cid, pidHitCounter: make(map[int64]int)}
			byID[cid] = c
		}
		c.size++
		c.pidHitCounter[h.Truth[i]]++
	}

	clusters := make([]*clusterSummary, 0, len(byID))
	for _, c := range byID {
		first := true
		for pid, n := range c.pidHitCounter {
			if first || n > c.majorityHits || (n == c.majorityHits && pid < c.majorityPID) {
				c.majorityPID = pid
				c.majorityHits = n
				first = false
			}
		}
		c.structValid = c.id >= 0 && c.size >= minClusterSize
		clusters = append(clusters, c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].id < clusters[j].id })
	return clusters
}

func summariseParticles(h Hits) map[int64]*particleSummary {
	particles := make(map[int64]*particleSummary)
	for i, pid := range h.Truth {
		p, ok := particles[pid]
		if !ok {
			p = &particleSummary{pt: h.PT[i], reconstructable: h.Reconstructable[i]}
			particles[pid] = p
		}
		p.hits++
	}
	return particles
}

func metricsAtThreshold(h Hits, clusters []*clusterSummary, particles map[int64]*particleSummary, pt float64) TrackingMetrics {
	var perfect, doubleMajority, lhc, nClusters int

	for _, c := range clusters {
		maj := particles[c.majorityPID]
		if maj.pt < pt || !c.structValid {
			continue
		}
		nClusters++
		if !maj.reconstructable {
			continue
		}

		// clusterFrac: share of the cluster owned by its majority particle.
		// particleFrac: share of that particle's hits landing in this cluster.
		var clusterFrac, particleFrac float64
		if c.size > 0 {
			clusterFrac = float64(c.majorityHits) / float64(c.size)
		}
		if maj.hits > 0 {
			particleFrac = float64(c.majorityHits) / float64(maj.hits)
		}

		if maj.hits == c.majorityHits && clusterFrac > 0.99 {
			perfect++
		}
		if particleFrac > 0.5 && clusterFrac > 0.5 {
			doubleMajority++
		}
		if clusterFrac > 0.75 {
			lhc++
		}
	}

	seen := make(map[int64]struct{})
	for i, pid := range h.Truth {
		if h.PT[i] >= pt {
			seen[pid] = struct{}{}
		}
	}
	nParticles := len(seen)

	fakePerfect := nonNegative("perfect", nClusters-perfect, pt)
	fakeDM := nonNegative("double_majority", nClusters-doubleMajority, pt)
	fakeLHC := nonNegative("lhc", nClusters-lhc, pt)

	return TrackingMetrics{
		NParticles:              nParticles,
		NCleanedClusters:        nClusters,
		Perfect:                 ratio(perfect, nParticles),
		DoubleMajority:          ratio(doubleMajority, nParticles),
		LHC:                     ratio(lhc, nClusters),
		FakePerfect:             ratio(fakePerfect, nParticles),
		FakeDoubleMajority:      ratio(fakeDM, nParticles),
		FakeLHC:                 ratio(fakeLHC, nClusters),
		PerfectCount:            perfect,
		DoubleMajorityCount:     doubleMajority,
		LHCCount:                lhc,
		FakePerfectCount:        fakePerfect,
		FakeDoubleMajorityCount: fakeDM,
		FakeLHCCount:            fakeLHC,
	}
}

// nonNegative clamps a fake count at zero. Matched clusters are a subset of
// the cleaned clusters, so a negative value means the input broke that
// invariant.
func nonNegative(rule string, n int, pt float64) int {
	if n < 0 {
		logf("WARNING: negative fake count %d for %s at pt>=%g, clamping to 0", n, rule, pt)
		return 0
	}
	return n
}
