// Package config handles loading and managing pagegrade configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for pagegrade.
type Config struct {
	Scoring ScoringConfig `yaml:"scoring"`
	Output  OutputConfig  `yaml:"output"`
	Storage StorageConfig `yaml:"storage"`
}

// ScoringConfig controls scoring behavior.
type ScoringConfig struct {
	// Weights of each category in the composite score, keyed by category
	// (seo, performance, security, design).
	Weights map[string]float64 `yaml:"weights" validate:"dive,keys,oneof=seo performance security design,endkeys,gte=0"`

	// Thresholds override web vital good/poor pairs, keyed by metric.
	Thresholds map[string]Threshold `yaml:"thresholds" validate:"dive"`

	// Deductions override category scorer points, e.g. "seo.robots: 12".
	Deductions map[string]float64 `yaml:"deductions" validate:"dive,gte=0"`
}

// Threshold is a good/poor pair.
type Threshold struct {
	Good float64 `yaml:"good" validate:"gte=0"`
	Poor float64 `yaml:"poor" validate:"gtefield=Good"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `yaml:"format" validate:"oneof=text json markdown"`
	Color  bool   `yaml:"color"`
}

// StorageConfig selects where the hosted service keeps payloads and reports.
type StorageConfig struct {
	Backend  string `yaml:"backend" validate:"oneof=local s3 gcs"`
	LocalDir string `yaml:"local_dir" validate:"required_if=Backend local"`
	Bucket   string `yaml:"bucket" validate:"required_unless=Backend local"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			Weights: map[string]float64{
				"seo":         1,
				"performance": 1,
				"security":    1,
				"design":      1,
			},
			Thresholds: map[string]Threshold{},
			Deductions: map[string]float64{},
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: filepath.Join(CacheDir(), "blobs"),
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FindConfigFile looks for .pagegrade/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".pagegrade", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// CacheDir returns the pagegrade cache directory, ~/.cache/pagegrade.
func CacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "pagegrade")
}

// ReportDir returns where reports for a run directory are kept.
// Uses ~/.cache/pagegrade/<run-slug>/reports/ to avoid polluting the run.
func ReportDir(runDir string) string {
	return filepath.Join(CacheDir(), runSlug(runDir), "reports")
}

// runSlug creates a filesystem-safe identifier from a run directory.
// Uses the last two path components (e.g., "audits_shop" from "/data/audits/shop").
func runSlug(runDir string) string {
	abs, err := filepath.Abs(runDir)
	if err != nil {
		abs = runDir
	}
	dir := filepath.Base(filepath.Dir(abs))
	base := filepath.Base(abs)
	return dir + "_" + base
}
