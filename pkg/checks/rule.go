// Package checks turns audit bundles into ordered pass/fail verdicts.
//
// Each category is a table of rules. A rule names how its verdict is derived
// (its Shape) and the texts shown for it; Evaluate runs a table against a
// Subject and returns one verdict per rule in table order.
package checks

import (
	"fmt"

	"github.com/pagegrade/pagegrade/pkg/audit"
)

// Category identifies one rule table.
type Category string

const (
	CategorySEO         Category = "seo"
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
)

// Subject is everything a rule may inspect. Any field may be absent.
type Subject struct {
	SEO         *audit.SeoBundle
	Performance *audit.PerformanceBundle
	Security    *audit.SecurityBundle
	Pages       []audit.PageIssueReport
}

// SubjectOf builds the subject for a run.
func SubjectOf(run *audit.Run) Subject {
	if run == nil {
		return Subject{}
	}
	return Subject{
		SEO:         run.SEO,
		Performance: run.Performance,
		Security:    run.Security,
		Pages:       run.Pages,
	}
}

// Shape is how a rule derives its verdict. It is one of Direct,
// AllOrNothing or IssueDerived.
type Shape interface {
	shape()
}

// Direct passes when the flag is true. No evidence is attached.
type Direct struct {
	Flag func(Subject) (passed, known bool)
}

// AllOrNothing passes when every field is true. When every field is false
// the verdict uses NoneText instead of the rule's negative text.
type AllOrNothing struct {
	Fields   func(Subject) (flags []bool, known bool)
	NoneText string
}

// IssueDerived passes when no evidence is found. Failing verdicts carry the
// evidence locations.
type IssueDerived struct {
	Evidence func(Subject) ([]string, bool, error)
}

func (Direct) shape()       {}
func (AllOrNothing) shape() {}
func (IssueDerived) shape() {}

// Rule is one row of a check table.
type Rule struct {
	Key          string
	Title        string
	Description  string
	PositiveText string
	NegativeText string
	Shape        Shape
}

// Verdict is the outcome of one rule.
type Verdict struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Passed      bool     `json:"passed"`
	Known       bool     `json:"known"`
	Text        string   `json:"text"`
	Evidence    []string `json:"evidence,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Table is the ordered rule list of one category.
type Table struct {
	Category Category
	Rules    []Rule
}

// Categories returns every rule table in display order.
func Categories() []Table {
	return []Table{
		{Category: CategorySEO, Rules: SEORules()},
		{Category: CategoryPerformance, Rules: PerformanceRules()},
		{Category: CategorySecurity, Rules: SecurityRules()},
	}
}

// Rules returns the table for one category.
func Rules(c Category) ([]Rule, error) {
	for _, t := range Categories() {
		if t.Category == c {
			return t.Rules, nil
		}
	}
	return nil, fmt.Errorf("unknown check category %q", c)
}

// Validate reports duplicate keys or rules without a shape.
func Validate(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Key == "" {
			return fmt.Errorf("rule %d has no key", i)
		}
		if seen[r.Key] {
			return fmt.Errorf("duplicate rule key %q", r.Key)
		}
		seen[r.Key] = true
		if r.Shape == nil {
			return fmt.Errorf("rule %q has no shape", r.Key)
		}
	}
	return nil
}
