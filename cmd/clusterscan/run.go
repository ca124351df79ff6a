package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/banshee-data/trackscan/internal/cluster"
	"github.com/banshee-data/trackscan/internal/clustermetrics"
	"github.com/banshee-data/trackscan/internal/config"
	"github.com/banshee-data/trackscan/internal/dataset"
	"github.com/banshee-data/trackscan/internal/db"
	"github.com/banshee-data/trackscan/internal/fsutil"
	"github.com/banshee-data/trackscan/internal/monitoring"
	"github.com/banshee-data/trackscan/internal/report"
	"github.com/banshee-data/trackscan/internal/scan"
	sqlite "github.com/banshee-data/trackscan/internal/storage/sqlite"
)

var logf = monitoring.Component("clusterscan")

type runOptions struct {
	Config   *config.ScanConfig
	DataDir  string
	Generate int
	Evaluate bool
	// FS receives the CSV, HTML and PNG outputs; nil writes to disk.
	FS fsutil.FileSystem
}

// run executes one scan and writes its outputs. A study that stopped with
// an algorithm error is still persisted before the error is returned.
func run(ctx context.Context, o runOptions, stdout io.Writer) error {
	cfg := o.Config
	rng := rand.New(rand.NewSource(cfg.GetSeed()))

	graphs, err := loadGraphs(o, rng)
	if err != nil {
		return err
	}

	ctrl, err := newController(cfg, graphs, rng)
	if err != nil {
		return err
	}

	budget := scan.Budget{NTrials: cfg.GetTrials(), Timeout: cfg.GetTimeout()}
	study, scanErr := ctrl.Scan(ctx, budget)
	if scanErr != nil && !errors.Is(scanErr, context.Canceled) {
		logf("scan stopped with error: %v", scanErr)
	}

	fsys := o.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if err := writeOutputs(fsys, cfg, ctrl, study); err != nil {
		return err
	}
	if err := printSummary(stdout, study); err != nil {
		return err
	}
	if o.Evaluate && scanErr == nil {
		if err := evaluateBest(stdout, cfg, graphs, study.BestParams()); err != nil {
			return err
		}
	}
	return scanErr
}

func loadGraphs(o runOptions, rng *rand.Rand) ([]*dataset.Graph, error) {
	if o.Generate > 0 {
		gen := dataset.DefaultGenerateOptions()
		gen.Graphs = o.Generate
		graphs := dataset.Generate(rng, gen)
		logf("generated %d synthetic graphs", len(graphs))
		return graphs, nil
	}
	if o.DataDir == "" {
		return nil, fmt.Errorf("either -data or -generate is required")
	}
	graphs, err := dataset.LoadDir(o.DataDir)
	if err != nil {
		return nil, fmt.Errorf("load graphs: %w", err)
	}
	logf("loaded %d graphs from %s", len(graphs), o.DataDir)
	return graphs, nil
}

func newController(cfg *config.ScanConfig, graphs []*dataset.Graph, rng *rand.Rand) (*scan.Controller, error) {
	registry := clustermetrics.DefaultRegistry()
	metric, err := registry.Scalar(cfg.GetMetric())
	if err != nil {
		return nil, err
	}
	var cheap scan.Metric
	if name := cfg.GetCheapMetric(); name != "" {
		scorer, err := registry.Scalar(name)
		if err != nil {
			return nil, err
		}
		cheap = scan.Metric(scorer)
	}

	dir, err := scan.ParseDirection(cfg.GetDirection())
	if err != nil {
		return nil, err
	}

	var pruner scan.Pruner = scan.NopPruner{}
	if cfg.GetPruner() == "median" {
		pruner = &scan.MedianPruner{
			StartupTrials: cfg.GetPrunerStartupTrials(),
			WarmupSteps:   cfg.GetPrunerWarmupSteps(),
		}
	}

	var stopper scan.EarlyStopping = scan.NoEarlyStopping{}
	if wait := cfg.GetEarlyStoppingWait(); wait > 0 {
		stopper = &scan.RelativeEarlyStopper{
			Wait:            wait,
			Grace:           cfg.GetEarlyStoppingGrace(),
			Mode:            dir,
			ChangeThreshold: cfg.GetEarlyStoppingThreshold(),
		}
	}

	features, truth, sectors := dataset.Columns(graphs)
	bounds := cluster.Bounds{
		EpsMin:        cfg.GetEpsMin(),
		EpsMax:        cfg.GetEpsMax(),
		MinSamplesMin: cfg.GetMinSamplesMin(),
		MinSamplesMax: cfg.GetMinSamplesMax(),
		LogEps:        cfg.GetLogEps(),
	}
	return scan.NewController(scan.ControllerConfig{
		Name:          cfg.GetStudyName(),
		Algorithm:     cluster.Algorithm(),
		Suggest:       cluster.Suggest(bounds),
		Graphs:        features,
		Truth:         truth,
		Sectors:       sectors,
		Metric:        scan.Metric(metric),
		CheapMetric:   cheap,
		Direction:     dir,
		EarlyStopping: stopper,
		Pruner:        pruner,
		Rand:          rng,
	})
}

func writeOutputs(fsys fsutil.FileSystem, cfg *config.ScanConfig, ctrl *scan.Controller, study *scan.Study) error {
	if path := cfg.GetDatabase(); path != "" {
		database, err := db.Open(path)
		if err != nil {
			return err
		}
		defer database.Close()
		raw, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		store := sqlite.NewStudyStore(database.DB)
		if err := store.SaveStudy(study, raw, ctrl.Sectors().Assignments()); err != nil {
			return err
		}
	}

	if path := cfg.GetCSVPath(); path != "" {
		if err := writeFile(fsys, path, func(w io.Writer) error {
			return report.WriteTrialsCSV(w, study.Trials())
		}); err != nil {
			return err
		}
	}
	if path := cfg.GetHTMLPath(); path != "" {
		if err := writeFile(fsys, path, func(w io.Writer) error {
			return report.RenderHistoryHTML(w, study, report.HTMLOptions{})
		}); err != nil {
			return err
		}
	}
	if path := cfg.GetPNGPath(); path != "" {
		p, err := report.HistoryPlot(study)
		switch {
		case errors.Is(err, report.ErrNoCompletedTrials):
			logf("skipping %s: %v", path, err)
		case err != nil:
			return err
		default:
			if err := writeFile(fsys, path, func(w io.Writer) error {
				return report.WritePNG(w, p)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFile(fsys fsutil.FileSystem, path string, write func(io.Writer) error) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	logf("wrote %s", path)
	return nil
}

type summary struct {
	StudyID    string      `json:"study_id"`
	Name       string      `json:"name"`
	StopReason string      `json:"stop_reason"`
	Trials     int         `json:"trials"`
	BestValue  *float64    `json:"best_value,omitempty"`
	BestParams scan.Params `json:"best_params,omitempty"`
}

func printSummary(w io.Writer, study *scan.Study) error {
	s := summary{
		StudyID:    study.ID,
		Name:       study.Name,
		StopReason: string(study.StopReason()),
		Trials:     len(study.Trials()),
	}
	if best, ok := study.Best(); ok {
		s.BestValue = finite(best.Value)
		s.BestParams = best.Params
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// evaluateBest runs the best parameters on every full graph and prints the
// mean of every flattened metric across graphs.
func evaluateBest(w io.Writer, cfg *config.ScanConfig, graphs []*dataset.Graph, params scan.Params) error {
	if params == nil {
		return fmt.Errorf("no completed trial to evaluate")
	}
	registry := clustermetrics.DefaultRegistry()
	algo := cluster.Algorithm()

	sums := make(map[string][]float64)
	for _, g := range graphs {
		labels, err := algo(g.Features, params)
		if err != nil {
			return fmt.Errorf("graph %s: %w", g.Name, err)
		}
		hits, err := g.WithPredicted(labels)
		if err != nil {
			return fmt.Errorf("graph %s: %w", g.Name, err)
		}
		results, err := registry.EvaluateAll(clustermetrics.Input{
			Truth:           hits.Truth,
			Predicted:       hits.Predicted,
			PT:              hits.PT,
			Reconstructable: hits.Reconstructable,
			PtThresholds:    cfg.GetPtThresholds(),
			MinClusterSize:  cfg.GetMinClusterSize(),
		})
		if err != nil {
			return fmt.Errorf("graph %s: %w", g.Name, err)
		}
		for k, v := range clustermetrics.Flatten(results) {
			sums[k] = append(sums[k], v)
		}
	}

	out := make(map[string]*float64, len(sums))
	for k, values := range sums {
		out[k] = finite(scan.NaNMean(values))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printMetrics(w io.Writer) error {
	for _, info := range clustermetrics.DefaultRegistry().List() {
		if _, err := fmt.Fprintf(w, "%-22s v%-4s %s\n", info.Name, info.Version, info.Description); err != nil {
			return err
		}
	}
	return nil
}

// finite maps NaN and infinities to nil for JSON output.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
