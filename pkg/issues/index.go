// Package issues aggregates per-page issue reports into flat evidence lists.
package issues

import (
	"fmt"

	"github.com/pagegrade/pagegrade/pkg/audit"
)

// Collect gathers the evidence for one issue key across all pages, in page
// order. List values contribute their rendered elements, a true flag
// contributes the page URL, and absent or false values contribute nothing.
// The result is deduplicated keeping first-seen order.
//
// A page whose value for key has an invalid shape aborts collection with an
// error naming the page and key.
func Collect(pages []audit.PageIssueReport, key string) ([]string, error) {
	var out []string
	for _, page := range pages {
		v, ok := page.Issues[key]
		if !ok {
			continue
		}
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("page %s issue %q: %w", page.URL, key, err)
		}
		if v.IsList() {
			for _, ev := range v.Evidence() {
				out = append(out, ev.String())
			}
			continue
		}
		if v.Flagged() {
			out = append(out, page.URL)
		}
	}
	return Dedupe(out), nil
}

// Dedupe removes repeated strings keeping the first occurrence of each.
// It returns nil for an empty input.
func Dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
