package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/trackscan/internal/scan"
)

// ErrNoCompletedTrials is returned when there is nothing to plot.
var ErrNoCompletedTrials = errors.New("no completed trials")

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// HistoryPlot builds a plot of completed trial values with a running-best line.
func HistoryPlot(study *scan.Study) (*plot.Plot, error) {
	points := History(study.Trials(), study.Direction)

	var values, best plotter.XYs
	for _, p := range points {
		if !math.IsNaN(p.Value) {
			values = append(values, plotter.XY{X: float64(p.Trial), Y: p.Value})
		}
		if !math.IsNaN(p.Best) {
			best = append(best, plotter.XY{X: float64(p.Trial), Y: p.Best})
		}
	}
	if len(values) == 0 {
		return nil, ErrNoCompletedTrials
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Scan %s (%s)", study.Name, study.Direction)
	p.X.Label.Text = "Trial"
	p.Y.Label.Text = "Objective"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(values)
	if err != nil {
		return nil, fmt.Errorf("creating value scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(2.5)
	scatter.GlyphStyle.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	p.Add(scatter)
	p.Legend.Add("value", scatter)

	bestLine, err := plotter.NewLine(best)
	if err != nil {
		return nil, fmt.Errorf("creating best line: %w", err)
	}
	bestLine.Width = vg.Points(1.5)
	bestLine.Color = color.RGBA{R: 220, G: 80, B: 40, A: 255}
	bestLine.StepStyle = plotter.PostStep
	p.Add(bestLine)
	p.Legend.Add("best", bestLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteHistoryPNG renders the history plot as PNG to w.
func WriteHistoryPNG(w io.Writer, study *scan.Study) error {
	p, err := HistoryPlot(study)
	if err != nil {
		return err
	}
	return WritePNG(w, p)
}

// WritePNG encodes p at the report size.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("creating png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("writing png: %w", err)
	}
	return nil
}

// SaveHistoryPNG renders the history plot to path.
func SaveHistoryPNG(path string, study *scan.Study) error {
	p, err := HistoryPlot(study)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("saving plot to %s: %w", path, err)
	}
	return nil
}
