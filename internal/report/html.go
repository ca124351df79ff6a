package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/trackscan/internal/scan"
)

// HTMLOptions configures RenderHistoryHTML.
type HTMLOptions struct {
	Title string
	// AssetsHost overrides where the echarts javascript is loaded from.
	AssetsHost string
}

// RenderHistoryHTML writes a standalone page with the trial value and
// running best per trial, plus a bar chart of trial outcomes.
func RenderHistoryHTML(w io.Writer, study *scan.Study, o HTMLOptions) error {
	trials := study.Trials()
	points := History(trials, study.Direction)

	title := o.Title
	if title == "" {
		title = fmt.Sprintf("Scan %s", study.Name)
	}
	init := opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}
	if o.AssetsHost != "" {
		init.AssetsHost = o.AssetsHost
	}

	x := make([]int, len(points))
	values := make([]opts.LineData, len(points))
	best := make([]opts.LineData, len(points))
	for i, p := range points {
		x[i] = p.Trial
		values[i] = lineValue(p.Value)
		best[i] = lineValue(p.Best)
	}

	subtitle := fmt.Sprintf("study=%s direction=%s trials=%d", study.ID, study.Direction, len(trials))
	if v := study.BestValue(); !math.IsNaN(v) {
		subtitle += fmt.Sprintf(" best=%.6g", v)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "trial", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "objective", NameLocation: "middle", NameGap: 40}),
	)
	line.SetXAxis(x).
		AddSeries("value", values,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		).
		AddSeries("best", best,
			charts.WithLineChartOpts(opts.LineChart{Step: "end", ConnectNulls: opts.Bool(true)}),
		)

	counts := StateCounts(trials)
	states := []scan.TrialState{scan.TrialComplete, scan.TrialPruned, scan.TrialFailed, scan.TrialRunning}
	labels := make([]string, len(states))
	bars := make([]opts.BarData, len(states))
	for i, st := range states {
		labels[i] = st.String()
		bars[i] = opts.BarData{Value: counts[st]}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px", AssetsHost: init.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Trial outcomes"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("trials", bars,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.PageTitle = title
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(line, bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render history page: %w", err)
	}
	return nil
}

// lineValue leaves gaps for NaN, which the JSON encoder cannot represent.
func lineValue(v float64) opts.LineData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.LineData{Value: nil}
	}
	return opts.LineData{Value: v}
}
