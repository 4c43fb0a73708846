package surface

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/pagegrade/pagegrade/pkg/checks"
	"github.com/pagegrade/pagegrade/pkg/metrics"
	"github.com/pagegrade/pagegrade/pkg/scoring"
)

// TerminalRenderer renders a Report as colored terminal output.
// Color is dropped when Color is false, NO_COLOR is set or w is not a TTY.
type TerminalRenderer struct {
	Color bool
}

type termStyles struct {
	bold lipgloss.Style
	dim  lipgloss.Style
	good lipgloss.Style
	warn lipgloss.Style
	bad  lipgloss.Style
}

func (r *TerminalRenderer) styles(w io.Writer) termStyles {
	re := lipgloss.NewRenderer(w)
	if !r.Color || noColor() {
		plain := re.NewStyle()
		return termStyles{bold: plain, dim: plain, good: plain, warn: plain, bad: plain}
	}
	return termStyles{
		bold: re.NewStyle().Bold(true),
		dim:  re.NewStyle().Foreground(lipgloss.Color("241")),
		good: re.NewStyle().Foreground(lipgloss.Color("46")),
		warn: re.NewStyle().Foreground(lipgloss.Color("220")),
		bad:  re.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func (s termStyles) grade(grade string) lipgloss.Style {
	switch grade {
	case "A", "B":
		return s.good
	case "C":
		return s.warn
	default:
		return s.bad
	}
}

func (s termStyles) band(b metrics.Band) lipgloss.Style {
	switch b {
	case metrics.BandGood:
		return s.good
	case metrics.BandWarn:
		return s.warn
	default:
		return s.bad
	}
}

func (r *TerminalRenderer) Render(w io.Writer, report *scoring.Report) error {
	st := r.styles(w)

	// Header
	if report.Composite != nil {
		fmt.Fprintf(w, "%s\n",
			st.bold.Render(fmt.Sprintf("pagegrade: Grade %s - Score %.1f",
				st.grade(report.Grade).Render(report.Grade), *report.Composite)))
	} else {
		fmt.Fprintf(w, "%s\n", st.bold.Render("pagegrade: no composite score yet"))
	}
	if report.SiteURL != "" {
		fmt.Fprintf(w, "Site: %s\n", report.SiteURL)
	}
	fmt.Fprintf(w, "State: %s\n\n", report.State)

	// Categories
	for _, cat := range report.Categories {
		fmt.Fprintf(w, "%s  %s  %s\n",
			st.bold.Render(categoryTitle(cat.Category)),
			scoreText(cat.Score),
			st.dim.Render(fmt.Sprintf("(%d/%d checks passed)", cat.Passed(), len(cat.Verdicts))))
		for _, v := range cat.Verdicts {
			renderVerdict(w, st, v)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%s  %s\n\n", st.bold.Render("Design"), scoreText(report.DesignScore))

	// Web vitals
	if len(report.Metrics) > 0 {
		fmt.Fprintln(w, "Web vitals:")
		for _, m := range report.Metrics {
			fmt.Fprintf(w, "  %-8s %-26s %10s  %s\n",
				m.Strategy, m.Name, formatValue(m.Graded),
				st.band(m.Band).Render(string(m.Band)))
		}
		fmt.Fprintln(w)
	}

	// Priorities
	if len(report.Priorities) > 0 {
		fmt.Fprintln(w, "Top fixes:")
		for _, d := range report.Priorities {
			fmt.Fprintf(w, "  %s %s %s\n",
				st.bad.Render(fmt.Sprintf("-%g", d.Points)),
				st.bold.Render(categoryTitle(d.Category)+" / "+d.Key),
				st.dim.Render(d.Reason))
		}
		fmt.Fprintln(w)
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range report.Warnings {
			fmt.Fprintf(w, "  %s %s\n", st.warn.Render("!"), warn)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func renderVerdict(w io.Writer, st termStyles, v checks.Verdict) {
	switch {
	case v.Error != "":
		fmt.Fprintf(w, "  %s %s: %s\n", st.warn.Render("?"), v.Title, st.dim.Render(v.Error))
		return
	case v.Passed:
		return
	}

	fmt.Fprintf(w, "  %s %s: %s\n", st.bad.Render("x"), v.Title, v.Text)
	n := len(v.Evidence)
	if n > maxEvidence {
		n = maxEvidence
	}
	for _, ev := range v.Evidence[:n] {
		fmt.Fprintf(w, "      %s\n", st.dim.Render(ev))
	}
	if len(v.Evidence) > maxEvidence {
		fmt.Fprintf(w, "      %s\n", st.dim.Render(fmt.Sprintf("... and %d more", len(v.Evidence)-maxEvidence)))
	}
}

func formatValue(g metrics.Graded) string {
	v := strconv.FormatFloat(g.Value, 'f', -1, 64)
	if g.Unit == metrics.UnitNone {
		return v
	}
	return v + " " + string(g.Unit)
}
