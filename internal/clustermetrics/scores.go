package clustermetrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/combin"
)

// Scorer compares a truth labelling against a predicted clustering.
type Scorer func(truth, predicted []int64) float64

// entropy returns the Shannon entropy (nats) of a labelling given its counts.
func entropy(counts []float64) float64 {
	total := floats.Sum(counts)
	if total == 0 {
		return 0
	}
	p := make([]float64, len(counts))
	floats.ScaleTo(p, 1/total, counts)
	return stat.Entropy(p)
}

// mutualInfo returns the mutual information (nats) of the contingency table.
func mutualInfo(c *Contingency) float64 {
	if c.N == 0 {
		return 0
	}
	a, b := c.RowSums(), c.ColSums()
	n := float64(c.N)
	var mi float64
	c.each(func(i, j int, nij float64) {
		mi += nij / n * math.Log(n*nij/(a[i]*b[j]))
	})
	return math.Max(mi, 0)
}

// HomogeneityCompletenessV returns homogeneity, completeness and V-measure
// (beta = 1). Degenerate labellings with zero entropy score 1.
func HomogeneityCompletenessV(truth, predicted []int64) (h, c, v float64, err error) {
	ct, err := NewContingency(truth, predicted)
	if err != nil {
		return 0, 0, 0, err
	}
	if ct.N == 0 {
		return 1, 1, 1, nil
	}
	hTrue := entropy(ct.RowSums())
	hPred := entropy(ct.ColSums())
	mi := mutualInfo(ct)

	h, c = 1, 1
	if hTrue > 0 {
		h = mi / hTrue
	}
	if hPred > 0 {
		c = mi / hPred
	}
	if h+c > 0 {
		v = 2 * h * c / (h + c)
	}
	return h, c, v, nil
}

// Homogeneity is 1 when every cluster holds members of a single class.
func Homogeneity(truth, predicted []int64) float64 {
	h, _, _, err := HomogeneityCompletenessV(truth, predicted)
	if err != nil {
		return math.NaN()
	}
	return h
}

// Completeness is 1 when every class is contained in a single cluster.
func Completeness(truth, predicted []int64) float64 {
	_, c, _, err := HomogeneityCompletenessV(truth, predicted)
	if err != nil {
		return math.NaN()
	}
	return c
}

// VMeasure is the harmonic mean of homogeneity and completeness.
func VMeasure(truth, predicted []int64) float64 {
	_, _, v, err := HomogeneityCompletenessV(truth, predicted)
	if err != nil {
		return math.NaN()
	}
	return v
}

// comb2 is n choose 2, zero for n < 2.
func comb2(n float64) float64 {
	if n < 2 {
		return 0
	}
	return float64(combin.Binomial(int(n), 2))
}

type pairCounts struct {
	same     float64 // pairs in the same class and the same cluster
	sameTrue float64 // pairs in the same class
	samePred float64 // pairs in the same cluster
	total    float64
}

func countPairs(c *Contingency) pairCounts {
	var pc pairCounts
	c.each(func(_, _ int, nij float64) {
		pc.same += comb2(nij)
	})
	for _, a := range c.RowSums() {
		pc.sameTrue += comb2(a)
	}
	for _, b := range c.ColSums() {
		pc.samePred += comb2(b)
	}
	pc.total = comb2(float64(c.N))
	return pc
}

// AdjustedRand returns the chance-corrected Rand index.
func AdjustedRand(truth, predicted []int64) float64 {
	ct, err := NewContingency(truth, predicted)
	if err != nil {
		return math.NaN()
	}
	if ct.N < 2 {
		return 1
	}
	nClasses, nClusters := len(ct.Classes), len(ct.Clusters)
	if (nClasses == 1 && nClusters == 1) || (nClasses == ct.N && nClusters == ct.N) {
		return 1
	}

	pc := countPairs(ct)
	expected := pc.sameTrue * pc.samePred / pc.total
	maxIndex := (pc.sameTrue + pc.samePred) / 2
	if maxIndex == expected {
		return 1
	}
	return (pc.same - expected) / (maxIndex - expected)
}

// FowlkesMallows returns the geometric mean of pairwise precision and recall.
func FowlkesMallows(truth, predicted []int64) float64 {
	ct, err := NewContingency(truth, predicted)
	if err != nil {
		return math.NaN()
	}
	if ct.N == 0 {
		return 0
	}
	pc := countPairs(ct)
	if pc.same == 0 {
		return 0
	}
	return pc.same / math.Sqrt(pc.sameTrue*pc.samePred)
}

// AdjustedMutualInfo returns the mutual information adjusted for chance,
// normalised by the arithmetic mean of the two entropies.
func AdjustedMutualInfo(truth, predicted []int64) float64 {
	ct, err := NewContingency(truth, predicted)
	if err != nil {
		return math.NaN()
	}
	nClasses, nClusters := len(ct.Classes), len(ct.Clusters)
	if (nClasses == 1 && nClusters == 1) || (nClasses == 0 && nClusters == 0) {
		return 1
	}

	mi := mutualInfo(ct)
	emi := expectedMutualInfo(ct)
	hTrue := entropy(ct.RowSums())
	hPred := entropy(ct.ColSums())

	denominator := (hTrue+hPred)/2 - emi
	const eps = 2.220446049250313e-16
	if denominator < 0 {
		denominator = math.Min(denominator, -eps)
	} else {
		denominator = math.Max(denominator, eps)
	}
	return (mi - emi) / denominator
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// expectedMutualInfo is the expectation of the mutual information under the
// hypergeometric model of randomness with fixed marginals.
func expectedMutualInfo(c *Contingency) float64 {
	a, b := c.RowSums(), c.ColSums()
	n := float64(c.N)
	glnN := lgamma(n + 1)

	var emi float64
	for _, ai := range a {
		for _, bj := range b {
			start := math.Max(1, ai-n+bj)
			end := math.Min(ai, bj)
			for nij := start; nij <= end; nij++ {
				term1 := nij / n
				term2 := math.Log(n) + math.Log(nij) - math.Log(ai) - math.Log(bj)
				gln := lgamma(ai+1) + lgamma(bj+1) + lgamma(n-ai+1) + lgamma(n-bj+1) -
					glnN - lgamma(nij+1) - lgamma(ai-nij+1) - lgamma(bj-nij+1) -
					lgamma(n-ai-bj+nij+1)
				emi += term1 * term2 * math.Exp(gln)
			}
		}
	}
	return emi
}
