package report

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
)

// severityOrder lists severities from most to least severe.
var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeveritySerious,
	model.SeverityModerate,
	model.SeverityMinor,
}

// ruleSummary groups the findings of one rule across pages.
type ruleSummary struct {
	ID       string
	Severity model.Severity
	Summary  string
	Details  string
	HelpURL  string
	Pages    []string
	Elements int
	Norms    *model.NormReference
}

// groupByRule merges findings with the same rule id. The result is sorted
// by severity, most severe first, then by rule id.
func groupByRule(findings []model.Finding) []ruleSummary {
	index := make(map[string]int)
	var out []ruleSummary
	for _, f := range findings {
		i, ok := index[f.ID]
		if !ok {
			i = len(out)
			index[f.ID] = i
			out = append(out, ruleSummary{
				ID:       f.ID,
				Severity: f.Severity,
				Summary:  f.Summary,
				Details:  f.Details,
				HelpURL:  f.HelpURL,
			})
		}
		r := &out[i]
		r.Severity = max(r.Severity, f.Severity)
		r.Elements += f.Occurrences()
		if f.PageURL != "" && !slices.Contains(r.Pages, f.PageURL) {
			r.Pages = append(r.Pages, f.PageURL)
		}
		if r.Norms == nil && f.Norms != nil {
			r.Norms = f.Norms
		}
	}
	slices.SortStableFunc(out, func(a, b ruleSummary) int {
		if c := cmp.Compare(b.Severity, a.Severity); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// rulesWithSeverity filters grouped rules by severity.
func rulesWithSeverity(rules []ruleSummary, severity model.Severity) []ruleSummary {
	var out []ruleSummary
	for _, r := range rules {
		if r.Severity == severity {
			out = append(out, r)
		}
	}
	return out
}

// joinOrDash joins clauses or returns "-" for none.
func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// statusText describes whether the scan ran to completion.
func statusText(result *model.ScanResult) string {
	switch {
	case result.Summary == nil || result.Summary.FinishedAt.IsZero():
		return "Incomplete"
	case result.Summary.PagesCrawled == 0:
		return "No pages crawled"
	case result.Summary.PagesFailed > 0:
		return "Complete with failed pages"
	default:
		return "Complete"
	}
}

// failureCounts returns the number of failures per kind in a stable order.
func failureCounts(failures []model.Failure) [][2]string {
	counts := make(map[model.FailureKind]int)
	var kinds []model.FailureKind
	for _, f := range failures {
		if counts[f.Kind] == 0 {
			kinds = append(kinds, f.Kind)
		}
		counts[f.Kind]++
	}
	slices.Sort(kinds)
	out := make([][2]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, [2]string{string(k), strconv.Itoa(counts[k])})
	}
	return out
}
