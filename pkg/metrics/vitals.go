package metrics

import (
	"errors"
	"fmt"

	"github.com/pagegrade/pagegrade/pkg/audit"
)

// Definition is a web vital with its thresholds.
type Definition struct {
	Key  string
	Name string
	Good float64
	Poor float64
	Unit Unit
	Pick func(audit.StrategyMetrics) audit.RawValue
}

// Threshold overrides the good/poor pair of a definition.
type Threshold struct {
	Good float64 `yaml:"good" json:"good"`
	Poor float64 `yaml:"poor" json:"poor"`
}

// GradedMetric is one graded web vital of one strategy.
type GradedMetric struct {
	Strategy string         `json:"strategy"`
	Key      string         `json:"key"`
	Name     string         `json:"name"`
	Raw      audit.RawValue `json:"raw"`
	Graded
}

// Web vital keys.
const (
	KeyCLS = "cumulativeLayoutShift"
	KeyFCP = "firstContentfulPaint"
	KeyLCP = "largestContentfulPaint"
	KeyTBT = "totalBlockingTime"
	KeySI  = "speedIndex"
)

// WebVitals returns the default web vital table in display order.
func WebVitals() []Definition {
	return []Definition{
		{
			Key: KeyCLS, Name: "Cumulative Layout Shift", Good: 0.1, Poor: 0.25, Unit: UnitNone,
			Pick: func(m audit.StrategyMetrics) audit.RawValue { return m.CumulativeLayoutShift },
		},
		{
			Key: KeyFCP, Name: "First Contentful Paint", Good: 1.8, Poor: 3.0, Unit: UnitSeconds,
			Pick: func(m audit.StrategyMetrics) audit.RawValue { return m.FirstContentfulPaint },
		},
		{
			Key: KeyLCP, Name: "Largest Contentful Paint", Good: 2.5, Poor: 4.0, Unit: UnitSeconds,
			Pick: func(m audit.StrategyMetrics) audit.RawValue { return m.LargestContentfulPaint },
		},
		{
			Key: KeyTBT, Name: "Total Blocking Time", Good: 200, Poor: 600, Unit: UnitMilliseconds,
			Pick: func(m audit.StrategyMetrics) audit.RawValue { return m.TotalBlockingTime },
		},
		{
			Key: KeySI, Name: "Speed Index", Good: 3.4, Poor: 5.8, Unit: UnitSeconds,
			Pick: func(m audit.StrategyMetrics) audit.RawValue { return m.SpeedIndex },
		},
	}
}

// WithThresholds returns a copy of defs with the given thresholds replacing
// the defaults. Keys that match no definition are an error, as is a pair with
// good above poor.
func WithThresholds(defs []Definition, overrides map[string]Threshold) ([]Definition, error) {
	out := make([]Definition, len(defs))
	copy(out, defs)

	known := make(map[string]int, len(out))
	for i, d := range out {
		known[d.Key] = i
	}
	for key, th := range overrides {
		i, ok := known[key]
		if !ok {
			return nil, fmt.Errorf("unknown metric %q in thresholds", key)
		}
		if th.Good > th.Poor {
			return nil, fmt.Errorf("metric %s: good threshold %v above poor threshold %v", key, th.Good, th.Poor)
		}
		out[i].Good = th.Good
		out[i].Poor = th.Poor
	}
	return out, nil
}

// GradeStrategy grades every definition against one strategy's metrics.
// Metrics that are empty or malformed are left out of the result; the
// returned error lists them.
func GradeStrategy(strategy string, m audit.StrategyMetrics, defs []Definition) ([]GradedMetric, error) {
	var graded []GradedMetric
	var skipped []error

	for _, d := range defs {
		raw := d.Pick(m)
		g, err := Grade(raw, d.Good, d.Poor, d.Unit)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s %s: %w", strategy, d.Key, err))
			continue
		}
		graded = append(graded, GradedMetric{
			Strategy: strategy,
			Key:      d.Key,
			Name:     d.Name,
			Raw:      raw,
			Graded:   g,
		})
	}
	return graded, errors.Join(skipped...)
}
