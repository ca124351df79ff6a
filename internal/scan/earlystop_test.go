package scan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoEarlyStopping(t *testing.T) {
	var s EarlyStopping = NoEarlyStopping{}
	for _, v := range []float64{0, 1, math.NaN()} {
		assert.False(t, s.ShouldStop(v))
	}
	s.Reset()
}

func TestRelativeEarlyStopper(t *testing.T) {
	tests := []struct {
		name    string
		stopper RelativeEarlyStopper
		foms    []float64
		want    []bool
	}{
		{
			name:    "stalls below threshold",
			stopper: RelativeEarlyStopper{Wait: 2, ChangeThreshold: 0.01},
			foms:    []float64{1.0, 1.001, 1.002},
			want:    []bool{false, false, true},
		},
		{
			name:    "improvement resets patience",
			stopper: RelativeEarlyStopper{Wait: 2, ChangeThreshold: 0.01},
			foms:    []float64{1.0, 1.0, 1.5, 1.5, 1.5},
			want:    []bool{false, false, false, false, true},
		},
		{
			name:    "nan is no improvement",
			stopper: RelativeEarlyStopper{Wait: 1},
			foms:    []float64{math.NaN(), 0.5, math.NaN()},
			want:    []bool{true, false, true},
		},
		{
			name:    "grace period",
			stopper: RelativeEarlyStopper{Wait: 1, Grace: 3},
			foms:    []float64{1, 1, 1, 1},
			want:    []bool{false, false, false, true},
		},
		{
			name:    "minimise",
			stopper: RelativeEarlyStopper{Wait: 1, Mode: Minimize, ChangeThreshold: 0.1},
			foms:    []float64{1.0, 0.5, 0.49},
			want:    []bool{false, false, true},
		},
		{
			name:    "zero wait never stops",
			stopper: RelativeEarlyStopper{},
			foms:    []float64{1, 1, 1},
			want:    []bool{false, false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.stopper
			for i, v := range tt.foms {
				assert.Equal(t, tt.want[i], s.ShouldStop(v), "evaluation %d", i)
			}
		})
	}
}

func TestRelativeEarlyStopper_Reset(t *testing.T) {
	s := &RelativeEarlyStopper{Wait: 1}
	assert.False(t, s.ShouldStop(1))
	assert.True(t, s.ShouldStop(1))

	s.Reset()
	assert.False(t, s.ShouldStop(1))
}
