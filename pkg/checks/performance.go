package checks

import (
	"fmt"
	"strconv"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/issues"
)

const (
	// MaxDomSize is the largest DOM element count that still passes.
	MaxDomSize = 1500
	// MaxHtmlSizeKb is the uncompressed document size limit.
	MaxHtmlSizeKb = 100
)

// PerformanceRules returns the performance check table.
func PerformanceRules() []Rule {
	return []Rule{
		{
			Key:          "domSize",
			Title:        "DOM size",
			Description:  "The number of DOM elements affects page performance. An oversized DOM slows down loading and rendering.",
			PositiveText: "The DOM size is within limits",
			NegativeText: "The DOM has too many elements",
			Shape: Direct{Flag: func(s Subject) (bool, bool) {
				dm, ok := dataMetrics(s)
				if !ok {
					return false, false
				}
				return dm.DomSize < MaxDomSize, true
			}},
		},
		{
			Key:          "htmlSize",
			Title:        "HTML page size",
			Description:  "A smaller HTML document loads faster. A large document hurts response time and indexing.",
			PositiveText: "The HTML document size is fine",
			NegativeText: "The HTML document is too large",
			Shape: Direct{Flag: func(s Subject) (bool, bool) {
				dm, ok := dataMetrics(s)
				if !ok || dm.HtmlCompression == nil {
					return false, false
				}
				return dm.HtmlCompression.UncompressedSizeKb < MaxHtmlSizeKb, true
			}},
		},
		{
			Key:          "htmlCompression",
			Title:        "HTML compression",
			Description:  "Compressing HTML (for example with GZIP) reduces transferred bytes and speeds up loading.",
			PositiveText: "The server compresses the HTML document",
			NegativeText: "The HTML document is not compressed",
			Shape: Direct{Flag: func(s Subject) (bool, bool) {
				dm, ok := dataMetrics(s)
				if !ok || dm.HtmlCompression == nil {
					return false, false
				}
				ct := dm.HtmlCompression.CompressionType
				return ct != "" && ct != "none", true
			}},
		},
		{
			Key:          "uncachedJs",
			Title:        "JS caching",
			Description:  "Caching JavaScript files avoids repeated downloads and speeds up repeat visits.",
			PositiveText: "JavaScript caching is configured",
			NegativeText: "JavaScript files are not cached",
			Shape:        assetList(func(dm audit.DataMetrics) []string { return dm.AssetIssues.UncachedJs }),
		},
		{
			Key:          "uncachedCss",
			Title:        "CSS caching",
			Description:  "Caching stylesheets lets the browser reuse them without downloading again.",
			PositiveText: "CSS caching is configured",
			NegativeText: "CSS files are not cached",
			Shape:        assetList(func(dm audit.DataMetrics) []string { return dm.AssetIssues.UncachedCss }),
		},
		{
			Key:          "unminifiedCss",
			Title:        "CSS minification",
			Description:  "Minifying CSS strips whitespace and comments, shrinking files and speeding up loading.",
			PositiveText: "CSS files are minified",
			NegativeText: "CSS files are not minified",
			Shape:        assetList(func(dm audit.DataMetrics) []string { return dm.AssetIssues.UnminifiedCss }),
		},
		{
			Key:          "unminifiedJs",
			Title:        "JS minification",
			Description:  "Minifying JavaScript shrinks files and improves site performance.",
			PositiveText: "JavaScript files are minified",
			NegativeText: "JavaScript files are not minified",
			Shape:        assetList(func(dm audit.DataMetrics) []string { return dm.AssetIssues.UnminifiedJs }),
		},
		{
			Key:          "uncachedImages",
			Title:        "Image caching",
			Description:  "Caching images lowers server load and speeds up repeat page loads.",
			PositiveText: "Images are cached correctly",
			NegativeText: "Some images are not cached",
			Shape:        assetList(func(dm audit.DataMetrics) []string { return dm.UncachedImages }),
		},
		{
			Key:          "oversizedImages",
			Title:        "Image size",
			Description:  "Oversized images slow down page loads and waste bandwidth. They should be optimized.",
			PositiveText: "Image sizes are within limits",
			NegativeText: "Some images are too large",
			Shape: assetList(func(dm audit.DataMetrics) []string {
				out := make([]string, 0, len(dm.OversizedImages))
				for _, img := range dm.OversizedImages {
					out = append(out, FormatImage(img))
				}
				return out
			}),
		},
	}
}

// FormatImage renders an oversized image as "<src> (<size> KB)".
func FormatImage(img audit.ImageInfo) string {
	return fmt.Sprintf("%s (%s KB)", img.Src, strconv.FormatFloat(img.SizeKb, 'f', -1, 64))
}

func dataMetrics(s Subject) (audit.DataMetrics, bool) {
	if s.Performance == nil {
		return audit.DataMetrics{}, false
	}
	return s.Performance.DataMetrics.Get()
}

func assetList(pick func(audit.DataMetrics) []string) IssueDerived {
	return IssueDerived{Evidence: func(s Subject) ([]string, bool, error) {
		dm, ok := dataMetrics(s)
		if !ok {
			return nil, false, nil
		}
		return issues.Dedupe(pick(dm)), true, nil
	}}
}
