package scoring

import (
	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/checks"
)

// SEOScorer deducts fixed points for each failing SEO check. The socials
// check only deducts when no social tag was found at all.
type SEOScorer struct {
	Points map[string]float64 // by rule key
}

func (s *SEOScorer) Category() Category { return CategorySEO }

func (s *SEOScorer) Score(run *audit.Run, verdicts []checks.Verdict) (float64, []Deduction, bool) {
	if run == nil || run.SEO == nil {
		return 0, nil, false
	}

	var deductions []Deduction
	for _, v := range verdicts {
		if v.Passed || !v.Known {
			continue
		}
		if v.Key == "socials" && v.Text != checks.SocialsNoneText {
			continue
		}
		points := s.Points[v.Key]
		if points <= 0 {
			continue
		}
		deductions = append(deductions, Deduction{
			Category: CategorySEO,
			Key:      v.Key,
			Reason:   v.Text,
			Points:   points,
		})
	}
	return clampScore(100 - total(deductions)), deductions, true
}
