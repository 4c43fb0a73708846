package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/pagegrade/pagegrade/pkg/metrics"
	"github.com/pagegrade/pagegrade/pkg/scoring"
)

// MarkdownRenderer renders a Report as a Markdown summary suitable for
// pull request comments or CI job summaries.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(w io.Writer, report *scoring.Report) error {
	_, err := io.WriteString(w, BuildMarkdownSummary(report))
	return err
}

// BuildMarkdownSummary formats the report as Markdown.
func BuildMarkdownSummary(report *scoring.Report) string {
	var sb strings.Builder

	if report.Composite != nil {
		sb.WriteString(fmt.Sprintf("## pagegrade: Grade %s - Score %.1f\n\n", report.Grade, *report.Composite))
	} else {
		sb.WriteString("## pagegrade: no composite score yet\n\n")
	}
	if report.SiteURL != "" {
		sb.WriteString(fmt.Sprintf("Site: %s  \n", report.SiteURL))
	}
	sb.WriteString(fmt.Sprintf("State: `%s`\n\n", report.State))

	// Scores
	sb.WriteString("### Scores\n\n")
	sb.WriteString("| Category | Score | Checks passed |\n|----------|-------|---------------|\n")
	for _, cat := range report.Categories {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d/%d |\n",
			categoryTitle(cat.Category), scoreText(cat.Score), cat.Passed(), len(cat.Verdicts)))
	}
	sb.WriteString(fmt.Sprintf("| Design | %s | - |\n", scoreText(report.DesignScore)))
	sb.WriteString("\n")

	// Failing checks
	failing := 0
	for _, cat := range report.Categories {
		for _, v := range cat.Verdicts {
			if v.Passed {
				continue
			}
			if failing == 0 {
				sb.WriteString("### Failing checks\n\n")
			}
			failing++
			icon := ":red_circle:"
			if !v.Known {
				icon = ":grey_question:"
			}
			sb.WriteString(fmt.Sprintf("- %s **%s** (%s): %s\n", icon, v.Title, categoryTitle(cat.Category), v.Text))
			if v.Error != "" {
				sb.WriteString(fmt.Sprintf("  - _%s_\n", v.Error))
			}
			n := len(v.Evidence)
			if n > 3 {
				n = 3
			}
			for _, ev := range v.Evidence[:n] {
				sb.WriteString(fmt.Sprintf("  - `%s`\n", ev))
			}
			if len(v.Evidence) > 3 {
				sb.WriteString(fmt.Sprintf("  - _... and %d more_\n", len(v.Evidence)-3))
			}
		}
	}
	if failing > 0 {
		sb.WriteString("\n")
	}

	// Web vitals
	if len(report.Metrics) > 0 {
		sb.WriteString("### Web vitals\n\n")
		sb.WriteString("| Strategy | Metric | Value | Band |\n|----------|--------|-------|------|\n")
		for _, m := range report.Metrics {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s %s |\n",
				m.Strategy, m.Name, formatValue(m.Graded), bandIcon(m.Band), m.Band))
		}
		sb.WriteString("\n")
	}

	// Priorities (max 5)
	if len(report.Priorities) > 0 {
		sb.WriteString("### Top fixes\n\n")
		for _, d := range report.Priorities {
			sb.WriteString(fmt.Sprintf("- **%s / %s** (-%g): %s\n", categoryTitle(d.Category), d.Key, d.Points, d.Reason))
		}
		sb.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, warn := range report.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", warn))
		}
	}

	return sb.String()
}

func bandIcon(b metrics.Band) string {
	switch b {
	case metrics.BandGood:
		return ":green_circle:"
	case metrics.BandWarn:
		return ":yellow_circle:"
	default:
		return ":red_circle:"
	}
}
