package scoring

import (
	"fmt"
	"math"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/checks"
)

// PerformanceScorer deducts points for a low Lighthouse score, a large DOM,
// image and asset issues, and weak HTML compression.
type PerformanceScorer struct {
	LighthouseWeight   float64
	DomSizeTiers       []Tier
	OversizedImagesCap float64
	UncachedImagesCap  float64
	AssetIssuesCap     float64
	CompressionNone    float64
	CompressionTiers   []Tier
}

func (s *PerformanceScorer) Category() Category { return CategoryPerformance }

func (s *PerformanceScorer) Score(run *audit.Run, _ []checks.Verdict) (float64, []Deduction, bool) {
	if run == nil || run.Performance == nil {
		return 0, nil, false
	}
	perf := run.Performance

	var deductions []Deduction
	add := func(key, reason string, points float64) {
		if points > 0 {
			deductions = append(deductions, Deduction{
				Category: CategoryPerformance,
				Key:      key,
				Reason:   reason,
				Points:   points,
			})
		}
	}

	// Lighthouse penalty averaged over the strategies that reported a score.
	var penalty float64
	var n int
	for _, st := range perf.Strategies() {
		m, ok := st.Metrics.Get()
		if !ok {
			continue
		}
		penalty += 100 - float64(m.PerformanceScore)
		n++
	}
	if n > 0 {
		avg := penalty / float64(n)
		add("lighthouse", fmt.Sprintf("Average Lighthouse score %.0f", 100-avg), avg/100*s.LighthouseWeight)
	}

	if dm, ok := perf.DataMetrics.Get(); ok {
		for _, tier := range s.DomSizeTiers {
			if float64(dm.DomSize) > tier.Limit {
				add("domSize", fmt.Sprintf("DOM has %d elements (over %.0f)", dm.DomSize, tier.Limit), tier.Points)
				break
			}
		}

		add("oversizedImages", fmt.Sprintf("%d oversized images", len(dm.OversizedImages)),
			math.Min(float64(len(dm.OversizedImages)), s.OversizedImagesCap))
		add("uncachedImages", fmt.Sprintf("%d uncached images", len(dm.UncachedImages)),
			math.Min(float64(len(dm.UncachedImages)), s.UncachedImagesCap))

		a := dm.AssetIssues
		assets := len(a.UncachedJs) + len(a.UnminifiedJs) + len(a.UncachedCss) + len(a.UnminifiedCss)
		add("assetIssues", fmt.Sprintf("%d uncached or unminified scripts and stylesheets", assets),
			math.Min(float64(assets), s.AssetIssuesCap))

		if c := dm.HtmlCompression; c != nil {
			if c.CompressionType == "" || c.CompressionType == "none" {
				add("htmlCompression", "HTML is served uncompressed", s.CompressionNone)
			} else {
				for _, tier := range s.CompressionTiers {
					if c.CompressionRatePercent < tier.Limit {
						add("htmlCompression", fmt.Sprintf("HTML compression rate %.0f%% (under %.0f%%)", c.CompressionRatePercent, tier.Limit), tier.Points)
						break
					}
				}
			}
		}
	}

	return clampScore(math.Trunc(100 - total(deductions))), deductions, true
}
