package trackeval

import "fmt"

// CountHitsPerCluster returns a histogram of cluster sizes: element i is the
// number of clusters that have i+1 hits. Every distinct label, noise
// included, is treated as a cluster.
func CountHitsPerCluster(predicted []int64) []int {
	if len(predicted) == 0 {
		return nil
	}
	sizes := make(map[int64]int)
	for _, c := range predicted {
		sizes[c]++
	}
	maxSize := 0
	for _, n := range sizes {
		if n > maxSize {
			maxSize = n
		}
	}
	hist := make([]int, maxSize)
	for _, n := range sizes {
		hist[n-1]++
	}
	return hist
}

// HitsPerClusterCountToFlat converts a CountHitsPerCluster histogram into the
// fraction of clusters having at least i hits, keyed "hitcountgeq_%04d".
// The output covers at least minMax sizes; sizes beyond the histogram
// report zero.
func HitsPerClusterCountToFlat(counts []int, minMax int) map[string]float64 {
	n := len(counts)
	if minMax > n {
		n = minMax
	}
	total := 0
	for _, c := range counts {
		total += c
	}

	out := make(map[string]float64, n)
	atLeast := total
	for i := 1; i <= n; i++ {
		key := fmt.Sprintf("hitcountgeq_%04d", i)
		if total == 0 {
			out[key] = 0
		} else {
			out[key] = float64(atLeast) / float64(total)
		}
		if i-1 < len(counts) {
			atLeast -= counts[i-1]
		}
	}
	return out
}
