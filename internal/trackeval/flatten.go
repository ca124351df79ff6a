package trackeval

import "strconv"

// DenotePT appends the encoded threshold to a statistic name, e.g.
// DenotePT("lhc", 0.9) == "lhc_pt0.9". The shortest round-trip decimal
// form is used so distinct thresholds never share a key.
func DenotePT(name string, pt float64) string {
	return name + "_pt" + strconv.FormatFloat(pt, 'f', -1, 64)
}

// FlattenTrackMetrics turns the per-threshold result of
// ComputeTrackingMetrics into a single-level map keyed by DenotePT.
func FlattenTrackMetrics(byPT map[float64]TrackingMetrics) map[string]float64 {
	out := make(map[string]float64, len(byPT)*len(Statistics))
	for pt, m := range byPT {
		for name, v := range m.Values() {
			out[DenotePT(name, pt)] = v
		}
	}
	return out
}
