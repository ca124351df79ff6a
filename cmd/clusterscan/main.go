// Command clusterscan tunes DBSCAN hyperparameters on labelled hit graphs
// and records the resulting study.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/trackscan/internal/config"
	"github.com/banshee-data/trackscan/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Scan configuration JSON (defaults to built-in values)")
	dataDir := flag.String("data", "", "Directory of graph CSV files")
	generate := flag.Int("generate", 0, "Generate this many synthetic graphs instead of reading -data")
	trials := flag.Int("trials", 0, "Number of trials (overrides config)")
	timeout := flag.Duration("timeout", 0, "Wall-clock budget, e.g. 10m (overrides config)")
	seed := flag.Int64("seed", 0, "Random seed (overrides config)")
	metric := flag.String("metric", "", "Objective metric name (overrides config)")
	cheapMetric := flag.String("cheap-metric", "", "Metric for the pruning pass (overrides config)")
	dbPath := flag.String("db", "", "SQLite database to record the study in (overrides config)")
	csvPath := flag.String("csv", "", "Write the trial table to this CSV file (overrides config)")
	htmlPath := flag.String("html", "", "Write an HTML history chart to this file (overrides config)")
	pngPath := flag.String("png", "", "Write a PNG history plot to this file (overrides config)")
	evaluate := flag.Bool("evaluate", false, "Score the best parameters with every registered metric")
	listMetrics := flag.Bool("list-metrics", false, "List registered metrics and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listMetrics {
		if err := printMetrics(os.Stdout); err != nil {
			log.Fatalf("list metrics: %v", err)
		}
		return
	}

	cfg := config.DefaultScanConfig()
	if *configPath != "" {
		loaded, err := config.LoadScanConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the configuration.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trials":
			cfg.Trials = trials
		case "timeout":
			s := timeout.String()
			cfg.Timeout = &s
		case "seed":
			cfg.Seed = seed
		case "metric":
			cfg.Metric = metric
		case "cheap-metric":
			cfg.CheapMetric = cheapMetric
		case "db":
			cfg.Database = dbPath
		case "csv":
			cfg.CSVPath = csvPath
		case "html":
			cfg.HTMLPath = htmlPath
		case "png":
			cfg.PNGPath = pngPath
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		Config:   cfg,
		DataDir:  *dataDir,
		Generate: *generate,
		Evaluate: *evaluate,
	}
	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("clusterscan: %v", err)
	}
}
