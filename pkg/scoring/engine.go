package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/checks"
	"github.com/pagegrade/pagegrade/pkg/metrics"
)

// Scorer is the interface that all category scorers implement.
type Scorer interface {
	// Category returns the category this scorer scores.
	Category() Category
	// Score computes the 0-100 category score from the run and the
	// category's verdicts. ok is false when the category has no data.
	Score(run *audit.Run, verdicts []checks.Verdict) (score float64, deductions []Deduction, ok bool)
}

// Engine evaluates audit runs into Reports.
type Engine struct {
	scorers map[Category]Scorer
	weights Weights
	vitals  []metrics.Definition
}

// NewEngine creates an engine with the given category scorers, equal
// weights and the default web vital thresholds.
func NewEngine(scorers ...Scorer) *Engine {
	e := &Engine{
		scorers: make(map[Category]Scorer, len(scorers)),
		weights: EqualWeights(),
		vitals:  metrics.WebVitals(),
	}
	for _, s := range scorers {
		e.scorers[s.Category()] = s
	}
	return e
}

// SetWeights replaces the composite weights.
func (e *Engine) SetWeights(w Weights) { e.weights = w }

// SetVitals replaces the web vital definitions.
func (e *Engine) SetVitals(defs []metrics.Definition) { e.vitals = defs }

// Evaluate runs every check table, grades web vitals, scores categories and
// aggregates the composite. Problems with individual items become warnings;
// Evaluate only fails on a nil run.
func (e *Engine) Evaluate(run *audit.Run) (*Report, error) {
	if run == nil {
		return nil, fmt.Errorf("run is nil")
	}

	report := &Report{
		SiteURL: run.SiteURL,
		State:   Readiness(run),
		Scores:  CategoryScores{},
	}
	subject := checks.SubjectOf(run)

	for _, table := range checks.Categories() {
		verdicts, err := checks.Evaluate(subject, table.Rules)
		report.Warnings = append(report.Warnings, flatten(err)...)

		cat := Category(table.Category)
		cr := CategoryReport{Category: cat, Verdicts: verdicts}
		if s, ok := e.scorers[cat]; ok {
			if score, deductions, ok := s.Score(run, verdicts); ok {
				cr.Score = &score
				cr.Deductions = deductions
				report.Scores[cat] = score
			}
		}
		report.Categories = append(report.Categories, cr)
	}

	if run.Performance != nil {
		for _, st := range run.Performance.Strategies() {
			m, ok := st.Metrics.Get()
			if !ok {
				if st.Metrics.IsErr() {
					report.Warnings = append(report.Warnings, fmt.Sprintf("%s metrics unavailable: %s", st.Name, st.Metrics.Reason()))
				}
				continue
			}
			graded, err := metrics.GradeStrategy(st.Name, m, e.vitals)
			report.Metrics = append(report.Metrics, graded...)
			report.Warnings = append(report.Warnings, flatten(err)...)
		}
	}

	design, ok, err := ReconcileDesign(run.DesignCode, run.DesignImage)
	if err != nil {
		report.Warnings = append(report.Warnings, err.Error())
	}
	if ok {
		report.DesignScore = &design
		report.Scores[CategoryDesign] = design
	}

	if composite, ok := Aggregate(report.Scores, e.weights); ok {
		composite = math.Round(composite*100) / 100
		report.Composite = &composite
		report.Grade = GradeFromScore(composite)
	}
	report.Priorities = priorities(report.Categories)

	return report, nil
}

// priorities ranks the largest deductions across categories.
func priorities(categories []CategoryReport) []Deduction {
	var all []Deduction
	for _, c := range categories {
		all = append(all, c.Deductions...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Points > all[j].Points
	})
	if len(all) > 5 {
		all = all[:5]
	}
	return all
}

// flatten splits a joined error into its messages.
func flatten(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

func total(deductions []Deduction) float64 {
	var sum float64
	for _, d := range deductions {
		sum += d.Points
	}
	return sum
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}
