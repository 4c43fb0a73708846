// Package surface defines output rendering for pagegrade reports.
// Implementations handle different output targets: terminal, Markdown, JSON.
package surface

import (
	"fmt"
	"io"

	"github.com/pagegrade/pagegrade/pkg/scoring"
)

// Renderer produces formatted output from a Report.
type Renderer interface {
	// Render writes the formatted report to the writer.
	Render(w io.Writer, report *scoring.Report) error
}

// ForFormat returns the renderer for an output format name.
func ForFormat(format string, color bool) (Renderer, error) {
	switch format {
	case "", "text":
		return &TerminalRenderer{Color: color}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "markdown":
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or markdown)", format)
	}
}

// maxEvidence caps the evidence lines shown per failing check.
const maxEvidence = 5

func scoreText(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *score)
}

func categoryTitle(c scoring.Category) string {
	switch c {
	case scoring.CategorySEO:
		return "SEO"
	case scoring.CategoryPerformance:
		return "Performance"
	case scoring.CategorySecurity:
		return "Security"
	case scoring.CategoryDesign:
		return "Design"
	default:
		return string(c)
	}
}
