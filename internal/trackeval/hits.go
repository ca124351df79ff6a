package trackeval

import "fmt"

// Hits holds one materialised column per hit attribute. Index i across all
// four slices describes the same hit.
type Hits struct {
	Truth           []int64   // truth particle id
	Predicted       []int64   // predicted cluster id, negative = noise
	PT              []float64 // transverse momentum
	Reconstructable []bool
}

// Len returns the number of hits, assuming the columns have been validated.
func (h Hits) Len() int { return len(h.Truth) }

// Validate checks that all columns have the same length.
func (h Hits) Validate() error {
	n := len(h.Truth)
	if len(h.Predicted) != n || len(h.PT) != n || len(h.Reconstructable) != n {
		return &ShapeError{
			Truth:           len(h.Truth),
			Predicted:       len(h.Predicted),
			PT:              len(h.PT),
			Reconstructable: len(h.Reconstructable),
		}
	}
	return nil
}

// Materialize builds Hits from loosely typed columns. Only concrete slices are
// accepted: []int, []int32 or []int64 for label columns, []float32 or
// []float64 for pt and []bool for the reconstructable flag. Any other value,
// including deferred column types that would need to be evaluated first, is
// rejected with ErrInvalidInputType because counting over them is unreliable.
func Materialize(truth, predicted, pt, reconstructable any) (Hits, error) {
	var h Hits
	var err error
	if h.Truth, err = labelColumn("truth", truth); err != nil {
		return Hits{}, err
	}
	if h.Predicted, err = labelColumn("predicted", predicted); err != nil {
		return Hits{}, err
	}
	if h.PT, err = floatColumn("pt", pt); err != nil {
		return Hits{}, err
	}
	flags, ok := reconstructable.([]bool)
	if !ok {
		return Hits{}, &InputTypeError{Column: "reconstructable", Type: fmt.Sprintf("%T", reconstructable)}
	}
	h.Reconstructable = flags
	if err := h.Validate(); err != nil {
		return Hits{}, err
	}
	return h, nil
}

func labelColumn(name string, v any) ([]int64, error) {
	switch col := v.(type) {
	case []int64:
		return col, nil
	case []int:
		out := make([]int64, len(col))
		for i, x := range col {
			out[i] = int64(x)
		}
		return out, nil
	case []int32:
		out := make([]int64, len(col))
		for i, x := range col {
			out[i] = int64(x)
		}
		return out, nil
	default:
		return nil, &InputTypeError{Column: name, Type: fmt.Sprintf("%T", v)}
	}
}

func floatColumn(name string, v any) ([]float64, error) {
	switch col := v.(type) {
	case []float64:
		return col, nil
	case []float32:
		out := make([]float64, len(col))
		for i, x := range col {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, &InputTypeError{Column: name, Type: fmt.Sprintf("%T", v)}
	}
}
