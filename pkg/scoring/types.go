// Package scoring implements the pagegrade scoring engine. It evaluates an
// audit run's check tables, grades its web vitals, reconciles design grades
// and combines per-category scores into one composite score.
package scoring

import (
	"github.com/pagegrade/pagegrade/pkg/checks"
	"github.com/pagegrade/pagegrade/pkg/metrics"
)

// Category is one scored area of an audit.
type Category string

const (
	CategorySEO         Category = Category(checks.CategorySEO)
	CategoryPerformance Category = Category(checks.CategoryPerformance)
	CategorySecurity    Category = Category(checks.CategorySecurity)
	CategoryDesign      Category = "design"
)

// Categories lists every scored category in display order.
func Categories() []Category {
	return []Category{CategorySEO, CategoryPerformance, CategorySecurity, CategoryDesign}
}

// CategoryScores holds the 0-100 score of every category that has one.
// A category without a score is absent, never zero.
type CategoryScores map[Category]float64

// Weights are the relative weights of categories in the composite score.
type Weights map[Category]float64

// EqualWeights gives every category weight 1.
func EqualWeights() Weights {
	w := make(Weights, len(Categories()))
	for _, c := range Categories() {
		w[c] = 1
	}
	return w
}

// Report is the complete evaluation of one audit run. Immutable once
// computed.
type Report struct {
	SiteURL     string                 `json:"site_url,omitempty"`
	State       State                  `json:"state"`
	Categories  []CategoryReport       `json:"categories"`
	Metrics     []metrics.GradedMetric `json:"metrics"`
	Scores      CategoryScores         `json:"scores"`
	DesignScore *float64               `json:"design_score,omitempty"`
	Composite   *float64               `json:"composite,omitempty"`
	Grade       string                 `json:"grade,omitempty"` // A, B, C, D, F
	Priorities  []Deduction            `json:"priorities,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
}

// CategoryReport is the verdict list and score of one check category.
type CategoryReport struct {
	Category   Category         `json:"category"`
	Verdicts   []checks.Verdict `json:"verdicts"`
	Score      *float64         `json:"score,omitempty"`
	Deductions []Deduction      `json:"deductions,omitempty"`
}

// Deduction is a number of points taken off a category score.
type Deduction struct {
	Category Category `json:"category"`
	Key      string   `json:"key"`
	Reason   string   `json:"reason"`
	Points   float64  `json:"points"`
}

// Passed counts the passing verdicts of the category.
func (c CategoryReport) Passed() int {
	n := 0
	for _, v := range c.Verdicts {
		if v.Passed {
			n++
		}
	}
	return n
}

// GradeFromScore maps a 0-100 composite score to a letter grade.
func GradeFromScore(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 50:
		return "C"
	case score >= 25:
		return "D"
	default:
		return "F"
	}
}
