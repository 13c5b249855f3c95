// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"pwnet/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Solve contains solver configuration
	Solve SolveConfig `json:"solve"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// SolveConfig contains solver-related settings
type SolveConfig struct {
	// Solvers is the ordered backend preference
	Solvers []string `json:"solvers"`

	// TimeLimitSeconds bounds each backend call; zero is unlimited
	TimeLimitSeconds float64 `json:"time_limit_seconds"`

	// RelativeGap is the MIP termination gap
	RelativeGap float64 `json:"relative_gap"`

	// Scaling rescales the model before solving
	Scaling bool `json:"scaling"`

	// ScalingFactor is the volume divisor used when scaling
	ScalingFactor float64 `json:"scaling_factor"`

	// DeactivateSlacks turns soft relief into hard constraints
	DeactivateSlacks bool `json:"deactivate_slacks"`

	// NumericFocus asks the backend for more careful numerics
	NumericFocus bool `json:"numeric_focus"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format (cli, json)
	DefaultFormat string `json:"default_format"`

	// ShowFlows includes nonzero flows in the report
	ShowFlows bool `json:"show_flows"`

	// ShowSchedule includes the build schedule in the report
	ShowSchedule bool `json:"show_schedule"`

	// ResultsDir is where JSON results are written
	ResultsDir string `json:"results_dir"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	resultsDir := filepath.Join(homeDir, ".pwnet", "results")

	return &Config{
		Version: "1.0",
		Solve: SolveConfig{
			Solvers:       []string{"highs", "simplex"},
			RelativeGap:   0.01,
			Scaling:       false,
			ScalingFactor: 1000,
		},
		Output: OutputConfig{
			DefaultFormat: "cli",
			ShowFlows:     false,
			ShowSchedule:  true,
			ResultsDir:    resultsDir,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
