package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/banshee-data/trackscan/internal/trackeval"
)

// GenerateOptions shapes a synthetic data set.
type GenerateOptions struct {
	Graphs    int
	Particles int // per graph
	// MaxHits is the largest number of hits per particle; each particle gets
	// 1..MaxHits hits and is reconstructable from three hits upwards.
	MaxHits int
	// Spread is the standard deviation of hits around their particle centre.
	Spread float64
	// Sectors splits the plane into angular wedges; 0 leaves the sector
	// column out.
	Sectors int
}

// DefaultGenerateOptions returns a small, well separated data set.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Graphs: 5, Particles: 20, MaxHits: 8, Spread: 0.05, Sectors: 4}
}

// Generate builds synthetic graphs whose hits form one compact blob per
// particle in a two dimensional embedding.
func Generate(r *rand.Rand, opts GenerateOptions) []*Graph {
	const size = 10.0
	graphs := make([]*Graph, opts.Graphs)
	for g := range graphs {
		var (
			features [][]float64
			truth    []int64
			pt       []float64
			reco     []bool
			sectors  []int
		)
		for p := 0; p < opts.Particles; p++ {
			cx, cy := r.Float64()*size, r.Float64()*size
			particlePT := 0.1 + r.ExpFloat64()
			nHits := 1 + r.Intn(max(opts.MaxHits, 1))
			sector := 0
			if opts.Sectors > 0 {
				angle := math.Atan2(cy-size/2, cx-size/2) + math.Pi
				sector = 1 + int(angle/(2*math.Pi)*float64(opts.Sectors))%opts.Sectors
			}
			for h := 0; h < nHits; h++ {
				features = append(features, []float64{
					cx + r.NormFloat64()*opts.Spread,
					cy + r.NormFloat64()*opts.Spread,
				})
				truth = append(truth, int64(p+1))
				pt = append(pt, particlePT)
				reco = append(reco, nHits >= 3)
				sectors = append(sectors, sector)
			}
		}

		predicted := make([]int64, len(truth))
		for i := range predicted {
			predicted[i] = -1
		}
		graph := &Graph{
			Name:         fmt.Sprintf("graph_%03d", g),
			FeatureNames: []string{"x", "y"},
			Features:     features,
			Hits: trackeval.Hits{
				Truth:           truth,
				Predicted:       predicted,
				PT:              pt,
				Reconstructable: reco,
			},
		}
		if opts.Sectors > 0 {
			graph.Sectors = sectors
		}
		graphs[g] = graph
	}
	return graphs
}
