// Package config loads the JSON configuration of a hyperparameter scan.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical scan defaults file.
const DefaultConfigPath = "config/scan.defaults.json"

// ScanConfig is the root configuration of a scan. Every field is optional;
// the Get* methods supply defaults for fields left out of the JSON.
type ScanConfig struct {
	StudyName *string `json:"study_name,omitempty"`

	// Evaluation
	PtThresholds   []float64 `json:"pt_thresholds,omitempty"`
	MinClusterSize *int      `json:"min_cluster_size,omitempty"`
	Metric         *string   `json:"metric,omitempty"`
	CheapMetric    *string   `json:"cheap_metric,omitempty"`
	Direction      *string   `json:"direction,omitempty"` // "maximize" or "minimize"

	// Budget
	Trials  *int    `json:"trials,omitempty"`
	Timeout *string `json:"timeout,omitempty"` // duration string like "10m"
	Seed    *int64  `json:"seed,omitempty"`

	// DBSCAN search space
	EpsMin        *float64 `json:"eps_min,omitempty"`
	EpsMax        *float64 `json:"eps_max,omitempty"`
	LogEps        *bool    `json:"log_eps,omitempty"`
	MinSamplesMin *int     `json:"min_samples_min,omitempty"`
	MinSamplesMax *int     `json:"min_samples_max,omitempty"`

	// Pruning
	Pruner              *string `json:"pruner,omitempty"` // "median" or "none"
	PrunerStartupTrials *int    `json:"pruner_startup_trials,omitempty"`
	PrunerWarmupSteps   *int    `json:"pruner_warmup_steps,omitempty"`

	// Early stopping; a zero wait disables it
	EarlyStoppingWait      *int     `json:"early_stopping_wait,omitempty"`
	EarlyStoppingGrace     *int     `json:"early_stopping_grace,omitempty"`
	EarlyStoppingThreshold *float64 `json:"early_stopping_threshold,omitempty"`

	// Outputs; empty paths are skipped
	Database *string `json:"database,omitempty"`
	CSVPath  *string `json:"csv_path,omitempty"`
	HTMLPath *string `json:"html_path,omitempty"`
	PNGPath  *string `json:"png_path,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyScanConfig returns a ScanConfig with every field unset.
func EmptyScanConfig() *ScanConfig {
	return &ScanConfig{}
}

// DefaultScanConfig returns a ScanConfig with every field set to its default.
func DefaultScanConfig() *ScanConfig {
	e := EmptyScanConfig()
	return &ScanConfig{
		StudyName:              ptrString(e.GetStudyName()),
		PtThresholds:           e.GetPtThresholds(),
		MinClusterSize:         ptrInt(e.GetMinClusterSize()),
		Metric:                 ptrString(e.GetMetric()),
		CheapMetric:            ptrString(e.GetCheapMetric()),
		Direction:              ptrString(e.GetDirection()),
		Trials:                 ptrInt(e.GetTrials()),
		Timeout:                ptrString(""),
		Seed:                   ptrInt64(e.GetSeed()),
		EpsMin:                 ptrFloat64(e.GetEpsMin()),
		EpsMax:                 ptrFloat64(e.GetEpsMax()),
		LogEps:                 ptrBool(e.GetLogEps()),
		MinSamplesMin:          ptrInt(e.GetMinSamplesMin()),
		MinSamplesMax:          ptrInt(e.GetMinSamplesMax()),
		Pruner:                 ptrString(e.GetPruner()),
		PrunerStartupTrials:    ptrInt(e.GetPrunerStartupTrials()),
		PrunerWarmupSteps:      ptrInt(e.GetPrunerWarmupSteps()),
		EarlyStoppingWait:      ptrInt(e.GetEarlyStoppingWait()),
		EarlyStoppingGrace:     ptrInt(e.GetEarlyStoppingGrace()),
		EarlyStoppingThreshold: ptrFloat64(e.GetEarlyStoppingThreshold()),
	}
}

// LoadScanConfig loads a ScanConfig from a JSON file. The file must have a
// .json extension and be at most 1MB. Fields omitted from the file keep
// their defaults.
func LoadScanConfig(path string) (*ScanConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScanConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or a parent. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *ScanConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadScanConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *ScanConfig) Validate() error {
	for _, pt := range c.PtThresholds {
		if pt < 0 || math.IsNaN(pt) || math.IsInf(pt, 0) {
			return fmt.Errorf("pt_thresholds must be finite and non-negative, got %v", pt)
		}
	}
	if c.MinClusterSize != nil && *c.MinClusterSize < 1 {
		return fmt.Errorf("min_cluster_size must be at least 1, got %d", *c.MinClusterSize)
	}
	if c.Metric != nil && *c.Metric == "" {
		return fmt.Errorf("metric must not be empty")
	}
	if c.Direction != nil && *c.Direction != "maximize" && *c.Direction != "minimize" {
		return fmt.Errorf("direction must be maximize or minimize, got %q", *c.Direction)
	}

	if c.Trials != nil && *c.Trials < 0 {
		return fmt.Errorf("trials must be non-negative, got %d", *c.Trials)
	}
	if c.Timeout != nil && *c.Timeout != "" {
		d, err := time.ParseDuration(*c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *c.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("timeout must be non-negative, got %s", d)
		}
	}
	if c.GetTrials() == 0 && c.GetTimeout() == 0 {
		return fmt.Errorf("either trials or timeout must be set")
	}

	if c.GetEpsMin() <= 0 {
		return fmt.Errorf("eps_min must be positive, got %f", c.GetEpsMin())
	}
	if c.GetEpsMax() < c.GetEpsMin() {
		return fmt.Errorf("eps_max %f is below eps_min %f", c.GetEpsMax(), c.GetEpsMin())
	}
	if c.GetMinSamplesMin() < 1 {
		return fmt.Errorf("min_samples_min must be at least 1, got %d", c.GetMinSamplesMin())
	}
	if c.GetMinSamplesMax() < c.GetMinSamplesMin() {
		return fmt.Errorf("min_samples_max %d is below min_samples_min %d", c.GetMinSamplesMax(), c.GetMinSamplesMin())
	}

	if p := c.GetPruner(); p != "median" && p != "none" {
		return fmt.Errorf("pruner must be median or none, got %q", p)
	}
	if c.GetPrunerStartupTrials() < 0 || c.GetPrunerWarmupSteps() < 0 {
		return fmt.Errorf("pruner settings must be non-negative")
	}
	if c.GetEarlyStoppingWait() < 0 || c.GetEarlyStoppingGrace() < 0 {
		return fmt.Errorf("early stopping wait and grace must be non-negative")
	}
	if c.GetEarlyStoppingThreshold() < 0 {
		return fmt.Errorf("early_stopping_threshold must be non-negative, got %f", c.GetEarlyStoppingThreshold())
	}
	return nil
}

// GetStudyName returns the study_name value or the default.
func (c *ScanConfig) GetStudyName() string {
	if c.StudyName == nil {
		return "dbscan"
	}
	return *c.StudyName
}

// GetPtThresholds returns the pt_thresholds value or the default.
func (c *ScanConfig) GetPtThresholds() []float64 {
	if len(c.PtThresholds) == 0 {
		return []float64{0, 0.5, 0.9, 1.5}
	}
	return c.PtThresholds
}

// GetMinClusterSize returns the min_cluster_size value or the default.
func (c *ScanConfig) GetMinClusterSize() int {
	if c.MinClusterSize == nil {
		return 3
	}
	return *c.MinClusterSize
}

// GetMetric returns the metric value or the default.
func (c *ScanConfig) GetMetric() string {
	if c.Metric == nil {
		return "v_measure"
	}
	return *c.Metric
}

// GetCheapMetric returns the cheap_metric value; empty means none.
func (c *ScanConfig) GetCheapMetric() string {
	if c.CheapMetric == nil {
		return ""
	}
	return *c.CheapMetric
}

// GetDirection returns the direction value or the default.
func (c *ScanConfig) GetDirection() string {
	if c.Direction == nil {
		return "maximize"
	}
	return *c.Direction
}

// GetTrials returns the trials value or the default.
func (c *ScanConfig) GetTrials() int {
	if c.Trials == nil {
		return 50
	}
	return *c.Trials
}

// GetTimeout parses the timeout; zero means no time limit.
func (c *ScanConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// GetSeed returns the seed value or the default.
func (c *ScanConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

func (c *ScanConfig) GetEpsMin() float64 {
	if c.EpsMin == nil {
		return 0.01
	}
	return *c.EpsMin
}

func (c *ScanConfig) GetEpsMax() float64 {
	if c.EpsMax == nil {
		return 1.0
	}
	return *c.EpsMax
}

func (c *ScanConfig) GetLogEps() bool {
	if c.LogEps == nil {
		return true
	}
	return *c.LogEps
}

func (c *ScanConfig) GetMinSamplesMin() int {
	if c.MinSamplesMin == nil {
		return 1
	}
	return *c.MinSamplesMin
}

func (c *ScanConfig) GetMinSamplesMax() int {
	if c.MinSamplesMax == nil {
		return 4
	}
	return *c.MinSamplesMax
}

// GetPruner returns the pruner value or the default.
func (c *ScanConfig) GetPruner() string {
	if c.Pruner == nil || *c.Pruner == "" {
		return "median"
	}
	return *c.Pruner
}

func (c *ScanConfig) GetPrunerStartupTrials() int {
	if c.PrunerStartupTrials == nil {
		return 5
	}
	return *c.PrunerStartupTrials
}

func (c *ScanConfig) GetPrunerWarmupSteps() int {
	if c.PrunerWarmupSteps == nil {
		return 0
	}
	return *c.PrunerWarmupSteps
}

// GetEarlyStoppingWait returns the early_stopping_wait value; 0 disables
// early stopping.
func (c *ScanConfig) GetEarlyStoppingWait() int {
	if c.EarlyStoppingWait == nil {
		return 0
	}
	return *c.EarlyStoppingWait
}

func (c *ScanConfig) GetEarlyStoppingGrace() int {
	if c.EarlyStoppingGrace == nil {
		return 0
	}
	return *c.EarlyStoppingGrace
}

func (c *ScanConfig) GetEarlyStoppingThreshold() float64 {
	if c.EarlyStoppingThreshold == nil {
		return 0.01
	}
	return *c.EarlyStoppingThreshold
}

func (c *ScanConfig) GetDatabase() string {
	if c.Database == nil {
		return ""
	}
	return *c.Database
}

func (c *ScanConfig) GetCSVPath() string {
	if c.CSVPath == nil {
		return ""
	}
	return *c.CSVPath
}

func (c *ScanConfig) GetHTMLPath() string {
	if c.HTMLPath == nil {
		return ""
	}
	return *c.HTMLPath
}

func (c *ScanConfig) GetPNGPath() string {
	if c.PNGPath == nil {
		return ""
	}
	return *c.PNGPath
}
