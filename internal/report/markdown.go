package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/a11yscan/internal/model"
)

// MarkdownWriter outputs scan results in Markdown format.
// The scan command writes it next to scan.json for sharing in issues and
// pull requests.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, details blocks and mermaid charts
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the scan result in Markdown format.
func (w *MarkdownWriter) Write(result *model.ScanResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeModules(md, result)
	w.writeFindings(md, result)
	w.writeDownloads(md, result)
	w.writeFailures(md, result)
	if result.NormAudit != nil && !result.NormAudit.OK() {
		w.writeAudit(md, result.NormAudit)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteAudit outputs a norm audit in Markdown format.
func (w *MarkdownWriter) WriteAudit(audit *model.NormAudit) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Norm Audit")
	md.PlainText("")
	w.writeAudit(md, audit)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.ScanResult) {
	md.H1("Accessibility Report")
	md.PlainText("")

	s := result.Summary
	if s == nil {
		s = &model.ScanSummary{}
	}
	rows := [][]string{
		{"Start URL", "`" + s.StartURL + "`"},
		{"Scan ID", "`" + result.ID + "`"},
		{"Scan Date", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Pages Crawled", strconv.Itoa(s.PagesCrawled)},
		{"Pages Failed", strconv.Itoa(s.PagesFailed)},
		{"Pages Simulated", strconv.Itoa(s.PagesSimulated)},
		{"Score", "**" + strconv.Itoa(s.Score) + "** / 100"},
		{"Status", statusText(result)},
	}
	if s.Profile != "" {
		rows = slices.Insert(rows, 3, []string{"Profile", s.Profile})
	}
	if s.RobotsAudited > 0 {
		rows = append(rows, []string{"Robots Audited", strconv.Itoa(s.RobotsAudited)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.ScanResult) {
	md.H2("Severity Summary")
	md.PlainText("")

	counts := result.CountBySeverity()
	incomplete := 0
	if result.Summary != nil {
		incomplete = result.Summary.Totals.Incomplete
	}
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Findings"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(counts[model.SeverityCritical])},
			{"🟠 Serious", strconv.Itoa(counts[model.SeveritySerious])},
			{"🟡 Moderate", strconv.Itoa(counts[model.SeverityModerate])},
			{"🔵 Minor", strconv.Itoa(counts[model.SeverityMinor])},
			{"**Total**", "**" + strconv.Itoa(len(result.Findings)) + "**"},
			{"Needs manual review", strconv.Itoa(incomplete)},
		},
	})
	md.PlainText("")

	if len(result.Findings) > 0 {
		w.writePieChart(md, counts)
	}
	w.writeAlert(md, counts, len(result.Findings))
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Severity]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)
	for _, sev := range severityOrder {
		if n := counts[sev]; n > 0 {
			chart.LabelAndIntValue(sev.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert for the most severe level present.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, counts map[model.Severity]int, total int) {
	switch {
	case counts[model.SeverityCritical] > 0:
		md.Cautionf(
			"%d critical finding(s) block assistive technology users and need immediate attention.",
			counts[model.SeverityCritical],
		)
	case counts[model.SeveritySerious] > 0:
		md.Warningf(
			"%d serious finding(s) keep some users from content.",
			counts[model.SeveritySerious],
		)
	case counts[model.SeverityModerate] > 0:
		md.Importantf(
			"%d moderate finding(s) make content harder to use.",
			counts[model.SeverityModerate],
		)
	case total > 0:
		md.Note("Only minor findings detected.")
	default:
		md.Tip("No accessibility issues detected by the selected modules.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeModules(md *markdown.Markdown, result *model.ScanResult) {
	if len(result.Modules) == 0 {
		return
	}
	md.H2("Modules")
	md.PlainText("")

	slugs := make([]string, 0, len(result.Modules))
	for slug := range result.Modules {
		slugs = append(slugs, slug)
	}
	slices.Sort(slugs)

	rows := make([][]string, 0, len(slugs))
	for _, slug := range slugs {
		m := result.Modules[slug]
		rows = append(rows, []string{slug, m.Version, strconv.Itoa(m.Pages), strconv.Itoa(m.Findings)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Module", "Version", "Pages", "Findings"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, result *model.ScanResult) {
	md.H2("Findings")
	md.PlainText("")

	if len(result.Findings) == 0 {
		md.PlainText("No accessibility findings detected.")
		md.PlainText("")
		return
	}

	headers := map[model.Severity]string{
		model.SeverityCritical: "🔴 Critical",
		model.SeveritySerious:  "🟠 Serious",
		model.SeverityModerate: "🟡 Moderate",
		model.SeverityMinor:    "🔵 Minor",
	}
	rules := groupByRule(result.Findings)
	for _, sev := range severityOrder {
		group := rulesWithSeverity(rules, sev)
		if len(group) == 0 {
			continue
		}
		md.PlainText("### " + headers[sev])
		md.PlainText("")
		w.writeRuleTable(md, group)
	}
}

// writeRuleTable writes one row per rule with its norm references.
func (w *MarkdownWriter) writeRuleTable(md *markdown.Markdown, rules []ruleSummary) {
	rows := make([][]string, len(rules))
	for i, r := range rules {
		wcag, bitv, en := "-", "-", "-"
		if r.Norms != nil {
			wcag, bitv, en = joinOrDash(r.Norms.WCAG), joinOrDash(r.Norms.BITV), joinOrDash(r.Norms.EN301549)
		}
		rows[i] = []string{
			"`" + r.ID + "`",
			truncateString(r.Summary, 60),
			strconv.Itoa(len(r.Pages)),
			strconv.Itoa(r.Elements),
			wcag,
			bitv,
			en,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rule", "Summary", "Pages", "Elements", "WCAG", "BITV", "EN 301 549"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range rules {
		if r.Details == "" && r.HelpURL == "" {
			continue
		}
		body := r.Details
		if r.HelpURL != "" {
			if body != "" {
				body += "\n\n"
			}
			body += "More information: " + r.HelpURL
		}
		md.Details(r.ID, body)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeDownloads(md *markdown.Markdown, result *model.ScanResult) {
	if len(result.Downloads) == 0 {
		return
	}
	md.H2("Documents")
	md.PlainText("")

	rows := make([][]string, len(result.Downloads))
	for i, d := range result.Downloads {
		note := d.Note
		if note == "" {
			note = "-"
		}
		rows[i] = []string{
			truncateString(d.Label, 50),
			string(d.Status),
			truncateString(d.URL, 60),
			note,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Document", "Status", "URL", "Note"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.ScanResult) {
	if len(result.Failures) == 0 {
		return
	}
	md.H2("Failures")
	md.PlainText("")

	counts := failureCounts(result.Failures)
	rows := make([][]string, len(counts))
	for i, kc := range counts {
		rows[i] = []string{kc[0], kc[1]}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAudit(md *markdown.Markdown, audit *model.NormAudit) {
	md.H2("Norm Audit")
	md.PlainText("")
	if audit == nil {
		md.PlainText("No audit available.")
		md.PlainText("")
		return
	}
	if audit.OK() {
		md.Tip(fmt.Sprintf("All %d rules carry WCAG, BITV and EN 301 549 references.", audit.Checked))
		md.PlainText("")
		return
	}

	md.Warningf("%d of %d rules lack a norm reference.", len(audit.Missing), audit.Checked)
	md.PlainText("")
	rows := make([][]string, len(audit.Missing))
	for i, gap := range audit.Missing {
		rows[i] = []string{
			"`" + gap.Rule + "`",
			strconv.Itoa(audit.MissingByRule[gap.Rule]),
			joinOrDash(gap.WCAG),
			joinOrDash(gap.BITV),
			joinOrDash(gap.EN301549),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rule", "Findings", "WCAG", "BITV", "EN 301 549"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [a11yscan](https://github.com/nao1215/a11yscan)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
