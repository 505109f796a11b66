package model

import (
	"sort"
	"time"
)

// Totals counts violations and results that need manual review.
type Totals struct {
	Violations int `json:"violations"`
	Incomplete int `json:"incomplete"`
}

// ScanSummary is the headline of a scan.
//
// It is created when the crawl starts, updated as pages complete, and frozen
// when the crawl ends. Updates after Freeze are ignored.
type ScanSummary struct {
	StartURL       string    `json:"startUrl"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt,omitzero"`
	Profile        string    `json:"profile,omitempty"`
	PagesCrawled   int       `json:"pagesCrawled"`
	PagesFailed    int       `json:"pagesFailed"`
	PagesSimulated int       `json:"pagesSimulated"`
	RobotsAudited  int       `json:"robotsAudited"`
	DownloadsFound int       `json:"downloadsFound"`
	Score          int       `json:"score"`
	Totals         Totals    `json:"totals"`

	frozen bool
}

// NewScanSummary starts a summary for the given seed URL.
func NewScanSummary(startURL string, startedAt time.Time) *ScanSummary {
	return &ScanSummary{
		StartURL:  startURL,
		StartedAt: startedAt,
	}
}

// RecordPage counts a completed page.
func (s *ScanSummary) RecordPage(p *PageResult) {
	if s.frozen || p == nil {
		return
	}
	s.PagesCrawled++
	if p.Failed {
		s.PagesFailed++
	}
	if p.Simulated {
		s.PagesSimulated++
	}
}

// RecordRobotsAudit counts a page visited despite a robots.txt disallow rule.
func (s *ScanSummary) RecordRobotsAudit() {
	if s.frozen {
		return
	}
	s.RobotsAudited++
}

// RecordDownload counts a discovered document.
func (s *ScanSummary) RecordDownload() {
	if s.frozen {
		return
	}
	s.DownloadsFound++
}

// Freeze sets the final values. Later calls have no effect.
func (s *ScanSummary) Freeze(finishedAt time.Time, score int, totals Totals) {
	if s.frozen {
		return
	}
	s.FinishedAt = finishedAt
	s.Score = score
	s.Totals = totals
	s.frozen = true
}

// Frozen reports whether Freeze was called.
func (s *ScanSummary) Frozen() bool {
	return s.frozen
}

// CrawlResult is what the crawl engine hands back after traversal.
type CrawlResult struct {
	Summary   *ScanSummary    `json:"summary"`
	Pages     []PageResult    `json:"pages"`
	Downloads []DownloadEntry `json:"downloads,omitempty"`
	Failures  []Failure       `json:"failures,omitempty"`
}

// ModuleSummary aggregates one analyzer across all pages.
type ModuleSummary struct {
	Version  string           `json:"version"`
	Pages    int              `json:"pages"`
	Findings int              `json:"findings"`
	Stats    []map[string]any `json:"stats,omitempty"`
}

// NormGap describes a rule whose references are incomplete.
type NormGap struct {
	Rule     string   `json:"rule"`
	WCAG     []string `json:"wcag"`
	BITV     []string `json:"bitv"`
	EN301549 []string `json:"en301549"`
}

// NormAudit reports findings whose norm references are incomplete.
type NormAudit struct {
	Checked       int            `json:"checked"`
	Missing       []NormGap      `json:"missing"`
	MissingByRule map[string]int `json:"missingByRule"`
}

// OK reports whether every checked rule is fully mapped.
func (a NormAudit) OK() bool {
	return len(a.Missing) == 0
}

// ScanResult is the complete outcome of one scan.
type ScanResult struct {
	ID        string                   `json:"id"`
	Summary   *ScanSummary             `json:"summary"`
	Findings  []Finding                `json:"findings"`
	Modules   map[string]ModuleSummary `json:"modules"`
	Pages     []PageResult             `json:"pages"`
	Downloads []DownloadEntry          `json:"downloads,omitempty"`
	Failures  []Failure                `json:"failures,omitempty"`
	NormAudit *NormAudit               `json:"normAudit,omitempty"`
}

// CountBySeverity returns the number of findings per severity.
func (r *ScanResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}

// FindingsBySeverity returns findings with the given severity.
func (r *ScanResult) FindingsBySeverity(severity Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}

// RuleCounts returns the number of findings per rule id, sorted by count
// descending and then by id.
func (r *ScanResult) RuleCounts() []RuleCount {
	byRule := make(map[string]*RuleCount)
	for _, f := range r.Findings {
		rc, ok := byRule[f.ID]
		if !ok {
			rc = &RuleCount{ID: f.ID, Severity: f.Severity}
			byRule[f.ID] = rc
		}
		rc.Count++
		if f.Severity > rc.Severity {
			rc.Severity = f.Severity
		}
	}
	out := make([]RuleCount, 0, len(byRule))
	for _, rc := range byRule {
		out = append(out, *rc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RuleCount is a per-rule finding counter.
type RuleCount struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
}
