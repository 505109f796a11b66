package norms

import (
	"slices"
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
)

// Audit reports rules whose findings lack a WCAG, BITV or EN 301 549
// reference. Each rule id is listed once, with the references of its first
// incomplete finding; MissingByRule counts the incomplete findings.
func Audit(findings []model.Finding) model.NormAudit {
	report := model.NormAudit{
		Missing:       []model.NormGap{},
		MissingByRule: map[string]int{},
	}
	checked := make(map[string]bool)
	for _, f := range findings {
		checked[f.ID] = true
		if f.Norms.Complete() {
			continue
		}
		if report.MissingByRule[f.ID] == 0 {
			gap := model.NormGap{Rule: f.ID, WCAG: []string{}, BITV: []string{}, EN301549: []string{}}
			if f.Norms != nil {
				gap.WCAG = append(gap.WCAG, f.Norms.WCAG...)
				gap.BITV = append(gap.BITV, f.Norms.BITV...)
				gap.EN301549 = append(gap.EN301549, f.Norms.EN301549...)
			}
			report.Missing = append(report.Missing, gap)
		}
		report.MissingByRule[f.ID]++
	}
	report.Checked = len(checked)
	slices.SortFunc(report.Missing, func(a, b model.NormGap) int {
		return strings.Compare(a.Rule, b.Rule)
	})
	return report
}

// AuditTable checks every entry of a mapping table as if a finding with
// that id had been mapped without tags. It finds table entries that can
// never be completed.
func AuditTable(m *Mapper) model.NormAudit {
	ids := make([]string, 0, len(m.table))
	for id := range m.table {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	findings := make([]model.Finding, 0, len(ids))
	for _, id := range ids {
		findings = append(findings, m.Apply(model.Finding{ID: id}))
	}
	return Audit(findings)
}
