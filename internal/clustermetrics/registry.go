package clustermetrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/banshee-data/trackscan/internal/trackeval"
)

// ErrUnknownMetric is returned when a metric name is not registered.
var ErrUnknownMetric = errors.New("unknown metric")

// ErrNotScalar is returned by Registry.Scalar for metrics that produce a
// flat record rather than a single number.
var ErrNotScalar = errors.New("metric does not produce a scalar")

// Input is the common evaluation context. Each metric reads only the columns
// it lists in its InputFeatures.
type Input struct {
	Truth           []int64
	Predicted       []int64
	PT              []float64
	Reconstructable []bool
	PtThresholds    []float64
	// MinClusterSize is passed to the tracking metrics; 0 uses the default.
	MinClusterSize int
}

// Value is either a scalar score or a flat string-keyed record.
type Value struct {
	Scalar float64            `json:"scalar"`
	Flat   map[string]float64 `json:"flat,omitempty"`
}

// IsFlat reports whether the value is a record rather than a scalar.
func (v Value) IsFlat() bool { return v.Flat != nil }

// Definition describes a registered metric.
type Definition struct {
	Name          string                        `json:"name"`
	Version       string                        `json:"version"`
	Description   string                        `json:"description"`
	InputFeatures []string                      `json:"input_features"`
	Flat          bool                          `json:"flat"` // returns a record, not a scalar
	Evaluate      func(in Input) (Value, error) `json:"-"`
}

// Info is a summary of a registered metric.
type Info struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Description   string   `json:"description"`
	InputFeatures []string `json:"input_features"`
	Flat          bool     `json:"flat"`
}

// Registry holds metric definitions by name.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]*Definition)}
}

// Register adds a definition, replacing any existing one with the same name.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[def.Name] = def
}

// Get retrieves a definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.metrics[name]
	return def, ok
}

// List returns summaries of all registered metrics sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.metrics))
	for _, def := range r.metrics {
		infos = append(infos, Info{
			Name:          def.Name,
			Version:       def.Version,
			Description:   def.Description,
			InputFeatures: def.InputFeatures,
			Flat:          def.Flat,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Evaluate runs a single metric.
func (r *Registry) Evaluate(name string, in Input) (Value, error) {
	def, ok := r.Get(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	v, err := def.Evaluate(in)
	if err != nil {
		return Value{}, fmt.Errorf("metric %s: %w", name, err)
	}
	return v, nil
}

// EvaluateAll runs every registered metric and returns the results by name.
// The first failure aborts the evaluation.
func (r *Registry) EvaluateAll(in Input) (map[string]Value, error) {
	out := make(map[string]Value)
	for _, info := range r.List() {
		v, err := r.Evaluate(info.Name, in)
		if err != nil {
			return nil, err
		}
		out[info.Name] = v
	}
	return out, nil
}

// Scalar returns a two-argument scorer backed by a registered scalar metric.
// Evaluation errors surface as NaN.
func (r *Registry) Scalar(name string) (Scorer, error) {
	def, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	if def.Flat {
		return nil, fmt.Errorf("%w: %q returns a flat record", ErrNotScalar, name)
	}
	for _, f := range def.InputFeatures {
		if f != "truth" && f != "predicted" {
			return nil, fmt.Errorf("%w: %q reads %s", ErrNotScalar, name, f)
		}
	}
	return func(truth, predicted []int64) float64 {
		v, err := def.Evaluate(Input{Truth: truth, Predicted: predicted})
		if err != nil || v.IsFlat() {
			return math.NaN()
		}
		return v.Scalar
	}, nil
}

// Flatten merges a set of results into one record. Scalars are keyed by the
// metric name, flat records keep their own keys.
func Flatten(results map[string]Value) map[string]float64 {
	out := make(map[string]float64)
	for name, v := range results {
		if !v.IsFlat() {
			out[name] = v.Scalar
			continue
		}
		for k, x := range v.Flat {
			out[k] = x
		}
	}
	return out
}

// scalarDefinition adapts a two-argument scorer to the registry convention.
func scalarDefinition(name, description string, score Scorer) *Definition {
	return &Definition{
		Name:          name,
		Version:       "v1",
		Description:   description,
		InputFeatures: []string{"truth", "predicted"},
		Evaluate: func(in Input) (Value, error) {
			if len(in.Truth) != len(in.Predicted) {
				return Value{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(in.Truth), len(in.Predicted))
			}
			return Value{Scalar: score(in.Truth, in.Predicted)}, nil
		},
	}
}

// DefaultHitCountMax is the largest cluster size reported by hit_count.
const DefaultHitCountMax = 10

// DefaultRegistry returns a registry pre-loaded with the built-in metrics.
func DefaultRegistry() *Registry {
	reg := NewRegistry()

	reg.Register(scalarDefinition("v_measure",
		"Harmonic mean of homogeneity and completeness.", VMeasure))
	reg.Register(scalarDefinition("homogeneity",
		"1 when every cluster contains hits of a single particle.", Homogeneity))
	reg.Register(scalarDefinition("completeness",
		"1 when every particle's hits fall in a single cluster.", Completeness))
	reg.Register(scalarDefinition("adjusted_rand",
		"Rand index adjusted for chance.", AdjustedRand))
	reg.Register(scalarDefinition("fowlkes_mallows",
		"Geometric mean of pairwise precision and recall.", FowlkesMallows))
	reg.Register(scalarDefinition("adjusted_mutual_info",
		"Mutual information adjusted for chance, arithmetic normalisation.", AdjustedMutualInfo))

	reg.Register(&Definition{
		Name:    "trk",
		Version: "v1",
		Description: "Tracking efficiencies and fake rates (perfect, double majority, LHC) " +
			"at each pt threshold, flattened as <statistic>_pt<threshold>.",
		InputFeatures: []string{"truth", "predicted", "pt", "reconstructable"},
		Flat:          true,
		Evaluate: func(in Input) (Value, error) {
			var opts []trackeval.Option
			if in.MinClusterSize > 0 {
				opts = append(opts, trackeval.WithMinClusterSize(in.MinClusterSize))
			}
			h := trackeval.Hits{
				Truth:           in.Truth,
				Predicted:       in.Predicted,
				PT:              in.PT,
				Reconstructable: in.Reconstructable,
			}
			byPT, err := trackeval.ComputeTrackingMetrics(h, in.PtThresholds, opts...)
			if err != nil {
				return Value{}, err
			}
			return Value{Flat: trackeval.FlattenTrackMetrics(byPT)}, nil
		},
	})

	reg.Register(&Definition{
		Name:          "hit_count",
		Version:       "v1",
		Description:   "Fraction of predicted clusters with at least i hits, as hitcountgeq_<i>.",
		InputFeatures: []string{"predicted"},
		Flat:          true,
		Evaluate: func(in Input) (Value, error) {
			counts := trackeval.CountHitsPerCluster(in.Predicted)
			return Value{Flat: trackeval.HitsPerClusterCountToFlat(counts, DefaultHitCountMax)}, nil
		},
	})

	return reg
}
