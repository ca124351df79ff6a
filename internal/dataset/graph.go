// Package dataset reads and writes per-graph hit tables.
//
// Each graph is one CSV file with a header row. The reserved columns are
// particle_id (required), pt (required), reconstructable (optional, default
// true) and sector (optional). Every other column is a feature, in header
// order.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/trackscan/internal/trackeval"
)

// Reserved column names.
const (
	ColParticleID      = "particle_id"
	ColPT              = "pt"
	ColReconstructable = "reconstructable"
	ColSector          = "sector"
)

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrNoGraphs is returned when a directory holds no CSV files.
	ErrNoGraphs = errors.New("no graph files found")
)

// RowError locates a malformed cell.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Graph is one event's hits. Hits.Predicted is all noise until labels are
// attached with WithPredicted.
type Graph struct {
	Name         string
	FeatureNames []string
	Features     [][]float64
	Hits         trackeval.Hits
	// Sectors is nil when the file had no sector column.
	Sectors []int
}

// Len returns the number of hits.
func (g *Graph) Len() int { return g.Hits.Len() }

// WithPredicted returns the hits with predicted labels attached.
func (g *Graph) WithPredicted(labels []int64) (trackeval.Hits, error) {
	h := g.Hits
	h.Predicted = labels
	if err := h.Validate(); err != nil {
		return trackeval.Hits{}, err
	}
	return h, nil
}

type layout struct {
	features        []int
	particle, pt    int
	reconstructable int // -1 when absent
	sector          int // -1 when absent
}

func parseHeader(header []string) (layout, []string, error) {
	l := layout{particle: -1, pt: -1, reconstructable: -1, sector: -1}
	var names []string
	for i, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case ColParticleID:
			l.particle = i
		case ColPT:
			l.pt = i
		case ColReconstructable:
			l.reconstructable = i
		case ColSector:
			l.sector = i
		default:
			l.features = append(l.features, i)
			names = append(names, strings.TrimSpace(h))
		}
	}
	if l.particle < 0 {
		return l, nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColParticleID)
	}
	if l.pt < 0 {
		return l, nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColPT)
	}
	return l, names, nil
}

// ReadGraph parses one graph from CSV.
func ReadGraph(r io.Reader, name string) (*Graph, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}
	l, featureNames, err := parseHeader(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var (
		features [][]float64
		truth    []int64
		pt       []float64
		reco     []bool
		sectors  []int
	)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		row := make([]float64, len(l.features))
		for j, col := range l.features {
			if row[j], err = strconv.ParseFloat(rec[col], 64); err != nil {
				return nil, fmt.Errorf("%s: %w", name, &RowError{Line: line, Column: header[col], Err: err})
			}
		}
		pid, err := strconv.ParseInt(rec[l.particle], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, &RowError{Line: line, Column: ColParticleID, Err: err})
		}
		p, err := strconv.ParseFloat(rec[l.pt], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, &RowError{Line: line, Column: ColPT, Err: err})
		}
		ok := true
		if l.reconstructable >= 0 {
			if ok, err = parseBool(rec[l.reconstructable]); err != nil {
				return nil, fmt.Errorf("%s: %w", name, &RowError{Line: line, Column: ColReconstructable, Err: err})
			}
		}
		if l.sector >= 0 {
			s, err := strconv.Atoi(rec[l.sector])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, &RowError{Line: line, Column: ColSector, Err: err})
			}
			sectors = append(sectors, s)
		}

		features = append(features, row)
		truth = append(truth, pid)
		pt = append(pt, p)
		reco = append(reco, ok)
	}

	predicted := make([]int64, len(truth))
	for i := range predicted {
		predicted[i] = -1
	}
	hits, err := trackeval.Materialize(truth, predicted, pt, reco)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Graph{
		Name:         name,
		FeatureNames: featureNames,
		Features:     features,
		Hits:         hits,
		Sectors:      sectors,
	}, nil
}

// parseBool accepts the usual strconv forms plus yes/no.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

// LoadGraph reads one graph file; the graph is named after the file.
func LoadGraph(path string) (*Graph, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer f.Close()
	return ReadGraph(f, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// LoadDir reads every *.csv file in dir, sorted by file name.
func LoadDir(dir string) ([]*Graph, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoGraphs, dir)
	}
	sort.Strings(paths)

	graphs := make([]*Graph, 0, len(paths))
	for _, p := range paths {
		g, err := LoadGraph(p)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// WriteGraph writes g in the format ReadGraph accepts.
func WriteGraph(w io.Writer, g *Graph) error {
	cw := csv.NewWriter(w)
	header := append([]string(nil), g.FeatureNames...)
	header = append(header, ColParticleID, ColPT, ColReconstructable)
	if g.Sectors != nil {
		header = append(header, ColSector)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := 0; i < g.Len(); i++ {
		rec := make([]string, 0, len(header))
		for _, v := range g.Features[i] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rec = append(rec,
			strconv.FormatInt(g.Hits.Truth[i], 10),
			strconv.FormatFloat(g.Hits.PT[i], 'g', -1, 64),
			strconv.FormatBool(g.Hits.Reconstructable[i]),
		)
		if g.Sectors != nil {
			rec = append(rec, strconv.Itoa(g.Sectors[i]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Columns splits graphs into the per-graph inputs of a scan. sectors is nil
// when no graph has a sector column; graphs without one get sector 1.
func Columns(graphs []*Graph) (features [][][]float64, truth [][]int64, sectors [][]int) {
	features = make([][][]float64, len(graphs))
	truth = make([][]int64, len(graphs))
	anySectors := false
	for i, g := range graphs {
		features[i] = g.Features
		truth[i] = g.Hits.Truth
		anySectors = anySectors || g.Sectors != nil
	}
	if !anySectors {
		return features, truth, nil
	}
	sectors = make([][]int, len(graphs))
	for i, g := range graphs {
		if g.Sectors != nil {
			sectors[i] = g.Sectors
			continue
		}
		sectors[i] = make([]int, g.Len())
		for j := range sectors[i] {
			sectors[i][j] = 1
		}
	}
	return features, truth, sectors
}
