package scoring

// DefaultScorers returns the category scorers with the given deductions.
func DefaultScorers(d Deductions) []Scorer {
	return []Scorer{
		&SEOScorer{Points: d.SEO},
		&PerformanceScorer{
			LighthouseWeight:   d.LighthouseWeight,
			DomSizeTiers:       d.DomSizeTiers,
			OversizedImagesCap: d.OversizedImagesCap,
			UncachedImagesCap:  d.UncachedImagesCap,
			AssetIssuesCap:     d.AssetIssuesCap,
			CompressionNone:    d.CompressionNone,
			CompressionTiers:   d.CompressionRateTier,
		},
		&SecurityScorer{
			SSL:            d.SSL,
			SPF:            d.SPF,
			UnsafeLinkEach: d.UnsafeLinkEach,
			UnsafeLinksCap: d.UnsafeLinksCap,
			NoHTTP2:        d.NoHTTP2,
		},
	}
}
