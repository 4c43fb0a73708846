package scoring

import (
	"fmt"
	"strings"
)

// Tier deducts Points once the measured value crosses Limit.
type Tier struct {
	Limit  float64
	Points float64
}

// Deductions holds the point deductions of every category scorer.
type Deductions struct {
	// SEO: points per failing check, keyed by rule key.
	SEO map[string]float64

	// Performance
	LighthouseWeight    float64 // points at a Lighthouse score of 0
	DomSizeTiers        []Tier  // checked in order, first DOM size above Limit wins
	OversizedImagesCap  float64 // 1 point per oversized image up to this cap
	UncachedImagesCap   float64 // 1 point per uncached image up to this cap
	AssetIssuesCap      float64 // 1 point per JS/CSS asset issue up to this cap
	CompressionNone     float64
	CompressionRateTier []Tier // checked in order, first rate below Limit wins

	// Security
	SSL            map[string]float64 // keyed by SSL check key
	SPF            float64
	UnsafeLinkEach float64
	UnsafeLinksCap float64
	NoHTTP2        float64
}

// Defaults returns the default deductions.
func Defaults() Deductions {
	return Deductions{
		SEO: map[string]float64{
			"robots":         10,
			"sitemap":        10,
			"favicon":        2,
			"title":          10,
			"description":    6,
			"socials":        5,
			"canonicalUrl":   6,
			"structuredData": 5,
			"charset":        3,
			"doctype":        3,
			"h1Missing":      6,
			"inlineCode":     3,
			"imageSeo":       4,
			"brokenLinks":    8,
			"noindex":        10,
		},

		LighthouseWeight: 30,
		DomSizeTiers: []Tier{
			{Limit: 1500, Points: 5},
			{Limit: 1000, Points: 3},
			{Limit: 500, Points: 1},
		},
		OversizedImagesCap: 5,
		UncachedImagesCap:  5,
		AssetIssuesCap:     10,
		CompressionNone:    5,
		CompressionRateTier: []Tier{
			{Limit: 20, Points: 3},
			{Limit: 40, Points: 1},
		},

		SSL: map[string]float64{
			"notUsedBeforeActivationDate": 5,
			"notExpired":                  10,
			"hostnameMatches":             10,
			"trustedByMajorBrowsers":      15,
			"usesSecureHash":              10,
		},
		SPF:            10,
		UnsafeLinkEach: 2,
		UnsafeLinksCap: 10,
		NoHTTP2:        10,
	}
}

// Override applies flat overrides such as "seo.robots", "performance.lighthouse"
// or "security.ssl.notExpired" to a copy of d.
func (d Deductions) Override(overrides map[string]float64) (Deductions, error) {
	out := d
	out.SEO = copyMap(d.SEO)
	out.SSL = copyMap(d.SSL)
	out.DomSizeTiers = append([]Tier(nil), d.DomSizeTiers...)
	out.CompressionRateTier = append([]Tier(nil), d.CompressionRateTier...)

	scalars := map[string]*float64{
		"performance.lighthouse":       &out.LighthouseWeight,
		"performance.oversized_images": &out.OversizedImagesCap,
		"performance.uncached_images":  &out.UncachedImagesCap,
		"performance.asset_issues":     &out.AssetIssuesCap,
		"performance.compression_none": &out.CompressionNone,
		"security.spf":                 &out.SPF,
		"security.unsafe_link":         &out.UnsafeLinkEach,
		"security.unsafe_links_cap":    &out.UnsafeLinksCap,
		"security.no_http2":            &out.NoHTTP2,
	}

	for key, v := range overrides {
		if v < 0 {
			return Deductions{}, fmt.Errorf("deduction %s: negative value %v", key, v)
		}
		if p, ok := scalars[key]; ok {
			*p = v
			continue
		}
		switch {
		case strings.HasPrefix(key, "seo."):
			rule := strings.TrimPrefix(key, "seo.")
			if _, ok := out.SEO[rule]; !ok {
				return Deductions{}, fmt.Errorf("unknown seo deduction %q", rule)
			}
			out.SEO[rule] = v
		case strings.HasPrefix(key, "security.ssl."):
			check := strings.TrimPrefix(key, "security.ssl.")
			if _, ok := out.SSL[check]; !ok {
				return Deductions{}, fmt.Errorf("unknown ssl deduction %q", check)
			}
			out.SSL[check] = v
		default:
			return Deductions{}, fmt.Errorf("unknown deduction %q", key)
		}
	}
	return out, nil
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
