// Package cluster provides the density clustering scanned by clusterscan.
package cluster

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/trackscan/internal/scan"
)

// Noise is the label of rows that belong to no cluster.
const Noise int64 = -1

// ErrInvalidParams is returned for non-positive eps or min samples.
var ErrInvalidParams = errors.New("invalid DBSCAN parameters")

// Params contains the DBSCAN parameters.
type Params struct {
	Eps    float64 // neighbourhood radius in feature units
	MinPts int     // neighbours (including the row itself) needed for a core row
}

// Validate checks that both parameters are positive.
func (p Params) Validate() error {
	if !(p.Eps > 0) || math.IsInf(p.Eps, 0) {
		return fmt.Errorf("%w: eps %v", ErrInvalidParams, p.Eps)
	}
	if p.MinPts < 1 {
		return fmt.Errorf("%w: min samples %d", ErrInvalidParams, p.MinPts)
	}
	return nil
}

// grid buckets rows by the cell of their first two coordinates. A cell is
// eps wide, so every neighbour of a row lies in the surrounding 3x3 cells.
type grid struct {
	cellSize float64
	cells    map[int64][]int
}

func newGrid(rows [][]float64, cellSize float64) *grid {
	g := &grid{cellSize: cellSize, cells: make(map[int64][]int)}
	for i, r := range rows {
		cx, cy := g.cellOf(r)
		id := cellID(cx, cy)
		g.cells[id] = append(g.cells[id], i)
	}
	return g
}

func (g *grid) cellOf(r []float64) (int64, int64) {
	var x, y float64
	if len(r) > 0 {
		x = r[0]
	}
	if len(r) > 1 {
		y = r[1]
	}
	return int64(math.Floor(x / g.cellSize)), int64(math.Floor(y / g.cellSize))
}

// zigzag maps signed cell coordinates onto non-negative integers.
func zigzag(v int64) int64 {
	if v >= 0 {
		return 2 * v
	}
	return -2*v - 1
}

// cellID combines two cell coordinates with Szudzik's pairing function.
func cellID(cx, cy int64) int64 {
	a, b := zigzag(cx), zigzag(cy)
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// neighbours returns the rows within eps of rows[idx] by Euclidean distance
// over all coordinates, including idx itself.
func (g *grid) neighbours(rows [][]float64, idx int, eps float64) []int {
	p := rows[idx]
	eps2 := eps * eps
	cx, cy := g.cellOf(p)

	var out []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, j := range g.cells[cellID(cx+dx, cy+dy)] {
				if squaredDistance(p, rows[j]) <= eps2 {
					out = append(out, j)
				}
			}
		}
	}
	return out
}

func squaredDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	var d float64
	for i := 0; i < n; i++ {
		var x, y float64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		d += (x - y) * (x - y)
	}
	return d
}

// DBSCAN labels each row with a cluster id in 0..k-1, or Noise. Cluster ids
// follow the order in which clusters are discovered. Invalid parameters label
// every row as noise.
func DBSCAN(rows [][]float64, params Params) []int64 {
	n := len(rows)
	out := make([]int64, n)
	if n == 0 {
		return out
	}
	if params.Validate() != nil {
		for i := range out {
			out[i] = Noise
		}
		return out
	}

	labels := make([]int, n) // 0=unvisited, -1=noise, >0=cluster
	g := newGrid(rows, params.Eps)
	clusterID := 0

	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}
		seeds := g.neighbours(rows, i, params.Eps)
		if len(seeds) < params.MinPts {
			labels[i] = -1
			continue
		}
		clusterID++
		labels[i] = clusterID
		expand(rows, g, labels, seeds, clusterID, params)
	}

	for i, l := range labels {
		if l > 0 {
			out[i] = int64(l - 1)
		} else {
			out[i] = Noise
		}
	}
	return out
}

// expand grows a cluster breadth first from the seeds of a core row. Noise
// reached from a core row becomes a border row and is not expanded.
func expand(rows [][]float64, g *grid, labels []int, queue []int, clusterID int, params Params) {
	for j := 0; j < len(queue); j++ {
		idx := queue[j]
		if labels[idx] == -1 {
			labels[idx] = clusterID
		}
		if labels[idx] != 0 {
			continue
		}
		labels[idx] = clusterID
		if more := g.neighbours(rows, idx, params.Eps); len(more) >= params.MinPts {
			queue = append(queue, more...)
		}
	}
}

// Algorithm adapts DBSCAN to the scan controller. It reads "eps" and
// "min_samples" from the proposed parameters.
func Algorithm() scan.Algorithm {
	return func(rows [][]float64, params scan.Params) ([]int64, error) {
		p := Params{Eps: params["eps"], MinPts: params.Int("min_samples")}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return DBSCAN(rows, p), nil
	}
}

// Bounds is the search space for Suggest.
type Bounds struct {
	EpsMin, EpsMax               float64
	MinSamplesMin, MinSamplesMax int
	// LogEps draws eps uniformly in log space.
	LogEps bool
}

// DefaultBounds covers typical hit embedding scales.
func DefaultBounds() Bounds {
	return Bounds{EpsMin: 0.01, EpsMax: 1.0, MinSamplesMin: 1, MinSamplesMax: 4, LogEps: true}
}

// Suggest draws eps and min_samples from b.
func Suggest(b Bounds) scan.Suggest {
	return func(t scan.Trial) scan.Params {
		if b.LogEps {
			t.SuggestLogFloat("eps", b.EpsMin, b.EpsMax)
		} else {
			t.SuggestFloat("eps", b.EpsMin, b.EpsMax)
		}
		t.SuggestInt("min_samples", b.MinSamplesMin, b.MinSamplesMax)
		return t.Params()
	}
}
