package trackeval

import "math"

// DefaultMinClusterSize is the smallest cluster that counts towards matches.
const DefaultMinClusterSize = 3

// TrackingMetrics holds the reconstruction statistics for one pt threshold.
//
// Only clusters whose majority particle is reconstructable and above the
// threshold count towards the match numerators. NCleanedClusters ignores the
// reconstructable flag; it is the base for the fake counts.
type TrackingMetrics struct {
	// Distinct truth ids among hits with pt >= threshold.
	NParticles int `json:"n_particles"`
	// Valid clusters whose majority particle has pt >= threshold.
	NCleanedClusters int `json:"n_cleaned_clusters"`

	// Clusters containing every hit of their majority particle and nothing
	// else, over NParticles.
	Perfect float64 `json:"perfect"`
	// Clusters with >50% of hits from one particle and >50% of that
	// particle's hits, over NParticles.
	DoubleMajority float64 `json:"double_majority"`
	// Clusters with >75% of hits from one particle, over NCleanedClusters.
	LHC float64 `json:"lhc"`

	FakePerfect        float64 `json:"fake_perfect"`
	FakeDoubleMajority float64 `json:"fake_double_majority"`
	FakeLHC            float64 `json:"fake_lhc"`

	PerfectCount            int `json:"perfect_count"`
	DoubleMajorityCount     int `json:"double_majority_count"`
	LHCCount                int `json:"lhc_count"`
	FakePerfectCount        int `json:"fake_perfect_count"`
	FakeDoubleMajorityCount int `json:"fake_double_majority_count"`
	FakeLHCCount            int `json:"fake_lhc_count"`
}

// Statistics lists the flattened statistic names in output order.
var Statistics = []string{
	"n_particles",
	"n_cleaned_clusters",
	"perfect",
	"double_majority",
	"lhc",
	"fake_perfect",
	"fake_double_majority",
	"fake_lhc",
}

// Values returns the statistics keyed by the names in Statistics.
func (m TrackingMetrics) Values() map[string]float64 {
	return map[string]float64{
		"n_particles":          float64(m.NParticles),
		"n_cleaned_clusters":   float64(m.NCleanedClusters),
		"perfect":              m.Perfect,
		"double_majority":      m.DoubleMajority,
		"lhc":                  m.LHC,
		"fake_perfect":         m.FakePerfect,
		"fake_double_majority": m.FakeDoubleMajority,
		"fake_lhc":             m.FakeLHC,
	}
}

// undefinedMetrics is returned for every threshold when there are no hits.
func undefinedMetrics() TrackingMetrics {
	nan := math.NaN()
	return TrackingMetrics{
		Perfect:            nan,
		DoubleMajority:     nan,
		LHC:                nan,
		FakePerfect:        nan,
		FakeDoubleMajority: nan,
		FakeLHC:            nan,
	}
}

// IsUndefined reports whether v is the undefined-ratio marker.
func IsUndefined(v float64) bool { return math.IsNaN(v) }

// ratio divides num by den, giving NaN when den is zero.
func ratio(num, den int) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}
