package scan

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trackscan/internal/timeutil"
)

// reportFrom is the first graph index whose running mean is reported.
const reportFrom = 2

// ControllerConfig holds the inputs of a Controller.
type ControllerConfig struct {
	// Name labels the study.
	Name string

	Algorithm Algorithm
	Suggest   Suggest

	// Graphs[i] holds one feature row per hit, Truth[i] one label per hit.
	Graphs [][][]float64
	Truth  [][]int64
	// Sectors[i] holds one sector id per hit; nil puts every hit in sector 1.
	Sectors [][]int

	// Metric scores the final objective. CheapMetric, when set, scores the
	// first pass and Metric re-scores the stored labels.
	Metric      Metric
	CheapMetric Metric
	// Direction of the study; Maximize unless set.
	Direction Direction

	EarlyStopping EarlyStopping
	Sampler       Sampler
	Pruner        Pruner
	// Rand drives sector choice and, without a Sampler, the default sampler.
	Rand  *rand.Rand
	Clock timeutil.Clock
}

// Controller runs hyperparameter scans of one clustering algorithm. The
// sector choices and the study persist across Scan calls.
type Controller struct {
	cfg     ControllerConfig
	sectors *SectorSampler
	study   *Study
}

// NewController validates cfg and fills defaults.
func NewController(cfg ControllerConfig) (*Controller, error) {
	switch {
	case cfg.Algorithm == nil:
		return nil, fmt.Errorf("%w: algorithm is required", ErrInvalidConfig)
	case cfg.Suggest == nil:
		return nil, fmt.Errorf("%w: suggest function is required", ErrInvalidConfig)
	case cfg.Metric == nil:
		return nil, fmt.Errorf("%w: metric is required", ErrInvalidConfig)
	case len(cfg.Graphs) != len(cfg.Truth):
		return nil, fmt.Errorf("%w: %d graphs but %d truth arrays", ErrInvalidConfig, len(cfg.Graphs), len(cfg.Truth))
	case cfg.Sectors != nil && len(cfg.Sectors) != len(cfg.Graphs):
		return nil, fmt.Errorf("%w: %d graphs but %d sector arrays", ErrInvalidConfig, len(cfg.Graphs), len(cfg.Sectors))
	}
	for i := range cfg.Graphs {
		if len(cfg.Graphs[i]) != len(cfg.Truth[i]) {
			return nil, fmt.Errorf("%w: graph %d has %d rows but %d truth labels",
				ErrInvalidConfig, i, len(cfg.Graphs[i]), len(cfg.Truth[i]))
		}
		if cfg.Sectors != nil && len(cfg.Sectors[i]) != len(cfg.Truth[i]) {
			return nil, fmt.Errorf("%w: graph %d has %d rows but %d sector ids",
				ErrInvalidConfig, i, len(cfg.Graphs[i]), len(cfg.Sectors[i]))
		}
	}

	if cfg.Sectors == nil {
		sizes := make([]int, len(cfg.Truth))
		for i, t := range cfg.Truth {
			sizes[i] = len(t)
		}
		cfg.Sectors = UniformSectors(sizes)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(0))
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.EarlyStopping == nil {
		cfg.EarlyStopping = NoEarlyStopping{}
	}
	if cfg.Pruner == nil {
		cfg.Pruner = NewMedianPruner()
	}
	if cfg.Sampler == nil {
		cfg.Sampler = NewRandomSampler(rand.New(rand.NewSource(cfg.Rand.Int63())))
	}

	return &Controller{
		cfg:     cfg,
		sectors: NewSectorSampler(cfg.Sectors, cfg.Rand),
	}, nil
}

// Sectors exposes the controller's sector cache.
func (c *Controller) Sectors() *SectorSampler { return c.sectors }

// Study returns the study of the last Scan, nil before the first one.
func (c *Controller) Study() *Study { return c.study }

// Scan runs trials until budget is spent or the search is halted. A halt by
// the early stopping policy is not an error: the returned study reports
// StopHalted. Algorithm errors are returned unchanged along with the study.
func (c *Controller) Scan(ctx context.Context, budget Budget) (*Study, error) {
	c.cfg.EarlyStopping.Reset()
	if c.study == nil {
		c.study = NewStudy(
			WithName(c.cfg.Name),
			WithDirection(c.cfg.Direction),
			WithSampler(c.cfg.Sampler),
			WithPruner(c.cfg.Pruner),
			WithClock(c.cfg.Clock),
		)
	}

	logf("Scan %s started: %d graphs, budget %s", c.study.ID, len(c.cfg.Graphs), budget)
	start := c.cfg.Clock.Now()
	err := c.study.Optimize(ctx, c.evaluate, budget)
	elapsed := c.cfg.Clock.Since(start)

	if best, ok := c.study.Best(); ok {
		logf("Scan %s stopped (%s) after %s: best trial %d value %.6g params %v",
			c.study.ID, c.study.StopReason(), elapsed, best.Number, best.Value, best.Params)
	} else {
		logf("Scan %s stopped (%s) after %s: no completed trials", c.study.ID, c.study.StopReason(), elapsed)
	}
	return c.study, err
}

// restrict returns the rows and truth labels of graph inside its sector.
func (c *Controller) restrict(graph int) ([][]float64, []int64, error) {
	sector, err := c.sectors.SectorFor(graph)
	if err != nil {
		return nil, nil, err
	}
	mask := c.sectors.Mask(graph, sector)

	rows := c.cfg.Graphs[graph]
	truth := c.cfg.Truth[graph]
	outRows := make([][]float64, 0, len(rows))
	outTruth := make([]int64, 0, len(truth))
	for i, keep := range mask {
		if keep {
			outRows = append(outRows, rows[i])
			outTruth = append(outTruth, truth[i])
		}
	}
	return outRows, outTruth, nil
}

// evaluate is the per-trial objective. All per-graph state is local so a
// pruned trial leaves nothing behind.
func (c *Controller) evaluate(ctx context.Context, t Trial) (Outcome, error) {
	params := c.cfg.Suggest(t)
	nGraphs := len(c.cfg.Graphs)

	cheap := c.cfg.CheapMetric
	if cheap == nil {
		cheap = c.cfg.Metric
	}

	truths := make([][]int64, nGraphs)
	predicted := make([][]int64, nGraphs)
	scores := make([]float64, 0, nGraphs)

	for i := 0; i < nGraphs; i++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		rows, truth, err := c.restrict(i)
		if err != nil {
			return Outcome{}, err
		}
		labels, err := c.cfg.Algorithm(rows, params)
		if err != nil {
			return Outcome{}, err
		}
		if len(labels) != len(truth) {
			return Outcome{}, fmt.Errorf("%w: graph %d: %d labels for %d rows", ErrLabelCount, i, len(labels), len(truth))
		}
		truths[i], predicted[i] = truth, labels
		scores = append(scores, cheap(truth, labels))

		if i >= reportFrom {
			t.Report(NaNMean(scores), i)
			if t.ShouldPrune() {
				return Pruned(), nil
			}
		}
	}

	if c.cfg.CheapMetric != nil {
		scores = scores[:0]
		for i := 0; i < nGraphs; i++ {
			scores = append(scores, c.cfg.Metric(truths[i], predicted[i]))
			if i >= reportFrom {
				t.Report(NaNMean(scores), i+nGraphs)
				if t.ShouldPrune() {
					return Pruned(), nil
				}
			}
		}
	}

	fom := NaNMean(scores)
	if c.cfg.EarlyStopping.ShouldStop(fom) {
		return Halted(fom), nil
	}
	return Evaluated(fom), nil
}

// NaNMean is the mean of the non-NaN values, NaN if there are none.
func NaNMean(values []float64) float64 {
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	return stat.Mean(kept, nil)
}
