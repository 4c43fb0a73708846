package config

import (
	"fmt"

	"github.com/pagegrade/pagegrade/pkg/metrics"
	"github.com/pagegrade/pagegrade/pkg/scoring"
)

// Engine builds a scoring engine with the configured deductions, weights
// and web vital thresholds.
func (c *Config) Engine() (*scoring.Engine, error) {
	deductions, err := scoring.Defaults().Override(c.Scoring.Deductions)
	if err != nil {
		return nil, fmt.Errorf("scoring.deductions: %w", err)
	}

	overrides := make(map[string]metrics.Threshold, len(c.Scoring.Thresholds))
	for key, th := range c.Scoring.Thresholds {
		overrides[key] = metrics.Threshold{Good: th.Good, Poor: th.Poor}
	}
	vitals, err := metrics.WithThresholds(metrics.WebVitals(), overrides)
	if err != nil {
		return nil, fmt.Errorf("scoring.thresholds: %w", err)
	}

	weights := scoring.Weights{}
	for key, w := range c.Scoring.Weights {
		weights[scoring.Category(key)] = w
	}

	engine := scoring.NewEngine(scoring.DefaultScorers(deductions)...)
	engine.SetWeights(weights)
	engine.SetVitals(vitals)
	return engine, nil
}
