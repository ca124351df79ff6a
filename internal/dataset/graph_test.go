package dataset

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `x,y,particle_id,pt,reconstructable,sector
0.1,0.2,1,2.5,true,1
0.15,0.25,1,2.5,true,1
3,4,2,0.4,false,-1
`

func TestReadGraph(t *testing.T) {
	g, err := ReadGraph(strings.NewReader(sample), "evt")
	require.NoError(t, err)

	assert.Equal(t, "evt", g.Name)
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []string{"x", "y"}, g.FeatureNames)
	assert.Equal(t, [][]float64{{0.1, 0.2}, {0.15, 0.25}, {3, 4}}, g.Features)
	assert.Equal(t, []int64{1, 1, 2}, g.Hits.Truth)
	assert.Equal(t, []int64{-1, -1, -1}, g.Hits.Predicted)
	assert.Equal(t, []float64{2.5, 2.5, 0.4}, g.Hits.PT)
	assert.Equal(t, []bool{true, true, false}, g.Hits.Reconstructable)
	assert.Equal(t, []int{1, 1, -1}, g.Sectors)
}

func TestReadGraph_OptionalColumns(t *testing.T) {
	g, err := ReadGraph(strings.NewReader("pt,particle_id,e0\n1,7,0.5\n"), "evt")
	require.NoError(t, err)
	assert.Nil(t, g.Sectors)
	assert.Equal(t, []bool{true}, g.Hits.Reconstructable)
	assert.Equal(t, []string{"e0"}, g.FeatureNames)
}

func TestReadGraph_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{"missing particle id", "x,pt\n1,2\n", func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, ErrMissingColumn))
		}},
		{"missing pt", "x,particle_id\n1,2\n", func(t *testing.T, err error) {
			assert.True(t, errors.Is(err, ErrMissingColumn))
		}},
		{"bad feature", "x,particle_id,pt\nabc,1,2\n", func(t *testing.T, err error) {
			var re *RowError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, 2, re.Line)
			assert.Equal(t, "x", re.Column)
		}},
		{"bad flag", "particle_id,pt,reconstructable\n1,2,maybe\n", func(t *testing.T, err error) {
			var re *RowError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, ColReconstructable, re.Column)
		}},
		{"ragged row", "particle_id,pt\n1,2,3\n", func(t *testing.T, err error) {
			assert.Error(t, err)
		}},
		{"empty file", "", func(t *testing.T, err error) {
			assert.Error(t, err)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraph(strings.NewReader(tt.input), "evt")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestWriteGraph_RoundTrip(t *testing.T) {
	g, err := ReadGraph(strings.NewReader(sample), "evt")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteGraph(&buf, g))
	back, err := ReadGraph(&buf, "evt")
	require.NoError(t, err)

	if diff := cmp.Diff(g, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	graphs := Generate(rand.New(rand.NewSource(2)), GenerateOptions{Graphs: 3, Particles: 4, MaxHits: 5, Spread: 0.01})
	for _, g := range graphs {
		f, err := os.Create(filepath.Join(dir, g.Name+".csv"))
		require.NoError(t, err)
		require.NoError(t, WriteGraph(f, g))
		require.NoError(t, f.Close())
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	loaded, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, g := range loaded {
		assert.Equal(t, graphs[i].Name, g.Name)
		assert.Equal(t, graphs[i].Hits.Truth, g.Hits.Truth)
	}

	_, err = LoadDir(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoGraphs))
}

func TestGenerate(t *testing.T) {
	opts := DefaultGenerateOptions()
	graphs := Generate(rand.New(rand.NewSource(1)), opts)
	require.Len(t, graphs, opts.Graphs)

	for _, g := range graphs {
		require.NoError(t, g.Hits.Validate())
		require.Len(t, g.Features, g.Len())
		require.Len(t, g.Sectors, g.Len())
		for i, s := range g.Sectors {
			assert.GreaterOrEqual(t, s, 1)
			assert.LessOrEqual(t, s, opts.Sectors)
			assert.Greater(t, g.Hits.PT[i], 0.0)
		}
	}

	// same seed, same data
	again := Generate(rand.New(rand.NewSource(1)), opts)
	assert.Equal(t, graphs[0].Features, again[0].Features)
}

func TestColumns(t *testing.T) {
	withSectors, err := ReadGraph(strings.NewReader(sample), "a")
	require.NoError(t, err)
	without, err := ReadGraph(strings.NewReader("particle_id,pt,x\n1,1,0\n2,1,5\n"), "b")
	require.NoError(t, err)

	features, truth, sectors := Columns([]*Graph{withSectors, without})
	assert.Len(t, features, 2)
	assert.Equal(t, []int64{1, 2}, truth[1])
	assert.Equal(t, [][]int{{1, 1, -1}, {1, 1}}, sectors)

	_, _, sectors = Columns([]*Graph{without})
	assert.Nil(t, sectors)
}

func TestWithPredicted(t *testing.T) {
	g, err := ReadGraph(strings.NewReader(sample), "evt")
	require.NoError(t, err)

	h, err := g.WithPredicted([]int64{0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 1}, h.Predicted)
	assert.Equal(t, []int64{-1, -1, -1}, g.Hits.Predicted)

	_, err = g.WithPredicted([]int64{0})
	assert.Error(t, err)
}
