package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for the terminal.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists every page of a rule and every failure.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

const ruleWidth = 70

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// Write outputs the scan result in human-readable format.
func (w *SimpleWriter) Write(result *model.ScanResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeSummary(&sb, result)
	w.writeModules(&sb, result)
	w.writeFindings(&sb, result)
	w.writeDownloads(&sb, result)
	w.writeFailures(&sb, result)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteAudit outputs a norm audit in human-readable format.
func (w *SimpleWriter) WriteAudit(audit *model.NormAudit) (int, error) {
	var sb strings.Builder
	w.writeAudit(&sb, audit)
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.ScanResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                     ACCESSIBILITY SCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	s := result.Summary
	if s == nil {
		s = &model.ScanSummary{}
	}
	fmt.Fprintf(sb, "Start URL:      %s\n", s.StartURL)
	fmt.Fprintf(sb, "Scan ID:        %s\n", result.ID)
	fmt.Fprintf(sb, "Scan Date:      %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if s.Profile != "" {
		fmt.Fprintf(sb, "Profile:        %s\n", s.Profile)
	}
	fmt.Fprintf(sb, "Pages Crawled:  %d (failed %d, simulated %d)\n", s.PagesCrawled, s.PagesFailed, s.PagesSimulated)
	if s.RobotsAudited > 0 {
		fmt.Fprintf(sb, "Robots Audited: %d\n", s.RobotsAudited)
	}
	fmt.Fprintf(sb, "Score:          %d/100\n", s.Score)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(result))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.ScanResult) {
	section(sb, "SEVERITY SUMMARY")

	counts := result.CountBySeverity()
	for _, sev := range severityOrder {
		fmt.Fprintf(sb, "  %-9s %d\n", strings.ToUpper(sev.String())+":", counts[sev])
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d findings\n", len(result.Findings))
	if result.Summary != nil && result.Summary.Totals.Incomplete > 0 {
		fmt.Fprintf(sb, "  REVIEW:   %d results need manual review\n", result.Summary.Totals.Incomplete)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeModules(sb *strings.Builder, result *model.ScanResult) {
	if len(result.Modules) == 0 && !w.showEmpty {
		return
	}
	section(sb, "MODULES")

	slugs := make([]string, 0, len(result.Modules))
	for slug := range result.Modules {
		slugs = append(slugs, slug)
	}
	slices.Sort(slugs)
	for _, slug := range slugs {
		m := result.Modules[slug]
		fmt.Fprintf(sb, "  %-14s v%-8s %3d pages  %4d findings\n", slug, m.Version, m.Pages, m.Findings)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFindings(sb *strings.Builder, result *model.ScanResult) {
	if len(result.Findings) == 0 && !w.showEmpty {
		return
	}
	section(sb, "FINDINGS")

	rules := groupByRule(result.Findings)
	for _, sev := range severityOrder {
		group := rulesWithSeverity(rules, sev)
		if len(group) == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "[%s] %s\n", severityIndicator(sev), sev.String())
		if len(group) == 0 {
			sb.WriteString("  No findings\n\n")
			continue
		}
		for _, r := range group {
			fmt.Fprintf(sb, "  * %s (%s)\n", r.Summary, r.ID)
			fmt.Fprintf(sb, "    Pages: %d  Elements: %d\n", len(r.Pages), r.Elements)
			if r.Norms != nil {
				fmt.Fprintf(sb, "    WCAG: %s  BITV: %s  EN 301 549: %s\n",
					joinOrDash(r.Norms.WCAG), joinOrDash(r.Norms.BITV), joinOrDash(r.Norms.EN301549))
			}
			if w.verbose {
				if r.Details != "" {
					fmt.Fprintf(sb, "    Details: %s\n", r.Details)
				}
				for _, p := range r.Pages {
					fmt.Fprintf(sb, "    - %s\n", p)
				}
			}
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeDownloads(sb *strings.Builder, result *model.ScanResult) {
	if len(result.Downloads) == 0 && !w.showEmpty {
		return
	}
	section(sb, "DOCUMENTS")
	if len(result.Downloads) == 0 {
		sb.WriteString("  No documents found\n\n")
		return
	}
	for _, d := range result.Downloads {
		fmt.Fprintf(sb, "  [%s] %s\n", d.Status, d.Label)
		fmt.Fprintf(sb, "    %s\n", d.URL)
		if d.Note != "" {
			fmt.Fprintf(sb, "    Note: %s\n", d.Note)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, result *model.ScanResult) {
	if len(result.Failures) == 0 && !w.showEmpty {
		return
	}
	section(sb, "FAILURES")
	for _, kc := range failureCounts(result.Failures) {
		fmt.Fprintf(sb, "  %-11s %s\n", kc[0]+":", kc[1])
	}
	if w.verbose {
		sb.WriteString("\n")
		for _, f := range result.Failures {
			target := f.URL
			if f.Module != "" {
				target += " [" + f.Module + "]"
			}
			fmt.Fprintf(sb, "  - %s %s: %s\n", f.Kind, target, f.Message)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeAudit(sb *strings.Builder, audit *model.NormAudit) {
	section(sb, "NORM AUDIT")
	if audit == nil {
		sb.WriteString("  No audit available\n\n")
		return
	}
	fmt.Fprintf(sb, "  Rules checked:    %d\n", audit.Checked)
	fmt.Fprintf(sb, "  Rules incomplete: %d\n\n", len(audit.Missing))
	for _, gap := range audit.Missing {
		fmt.Fprintf(sb, "  * %s (%d findings)\n", gap.Rule, audit.MissingByRule[gap.Rule])
		fmt.Fprintf(sb, "    WCAG: %s  BITV: %s  EN 301 549: %s\n",
			joinOrDash(gap.WCAG), joinOrDash(gap.BITV), joinOrDash(gap.EN301549))
	}
	if audit.OK() {
		sb.WriteString("  All rules carry WCAG, BITV and EN 301 549 references.\n")
	}
	sb.WriteString("\n")
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeveritySerious:
		return "!!"
	case model.SeverityModerate:
		return "!"
	case model.SeverityMinor:
		return "-"
	default:
		return "?"
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by a11yscan\n")
	sb.WriteString("https://github.com/nao1215/a11yscan\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
