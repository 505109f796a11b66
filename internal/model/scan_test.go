package model

import (
	"testing"
	"time"
)

func TestScanSummary(t *testing.T) {
	t.Parallel()

	t.Run("counts pages until frozen", func(t *testing.T) {
		t.Parallel()

		s := NewScanSummary("https://example.com/", time.Now())
		s.RecordPage(&PageResult{URL: "https://example.com/"})
		s.RecordPage(&PageResult{URL: "https://example.com/a", Failed: true})
		s.RecordPage(&PageResult{URL: "https://example.com/b", Simulated: true})
		s.RecordRobotsAudit()
		s.RecordDownload()

		s.Freeze(time.Now(), 87, Totals{Violations: 4, Incomplete: 1})

		s.RecordPage(&PageResult{URL: "https://example.com/c"})
		s.RecordDownload()
		s.Freeze(time.Now(), 10, Totals{})

		if s.PagesCrawled != 3 {
			t.Errorf("expected 3 pages, got %d", s.PagesCrawled)
		}
		if s.PagesFailed != 1 {
			t.Errorf("expected 1 failed page, got %d", s.PagesFailed)
		}
		if s.PagesSimulated != 1 {
			t.Errorf("expected 1 simulated page, got %d", s.PagesSimulated)
		}
		if s.RobotsAudited != 1 {
			t.Errorf("expected 1 robots audit, got %d", s.RobotsAudited)
		}
		if s.DownloadsFound != 1 {
			t.Errorf("expected 1 download, got %d", s.DownloadsFound)
		}
		if s.Score != 87 {
			t.Errorf("expected score 87, got %d", s.Score)
		}
		if !s.Frozen() {
			t.Error("expected summary to be frozen")
		}
	})
}

func TestScanResultRuleCounts(t *testing.T) {
	t.Parallel()

	r := &ScanResult{
		Findings: []Finding{
			{ID: "links:raw-url", Severity: SeverityMinor},
			{ID: "headings:missing-h1", Severity: SeverityModerate},
			{ID: "links:raw-url", Severity: SeverityMinor},
			{ID: "contrast:text-low", Severity: SeveritySerious},
		},
	}

	counts := r.RuleCounts()
	if len(counts) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(counts))
	}
	if counts[0].ID != "links:raw-url" || counts[0].Count != 2 {
		t.Errorf("expected links:raw-url x2 first, got %+v", counts[0])
	}
	if counts[1].ID != "contrast:text-low" {
		t.Errorf("expected ties sorted by id, got %s", counts[1].ID)
	}

	bySeverity := r.CountBySeverity()
	if bySeverity[SeverityMinor] != 2 {
		t.Errorf("expected 2 minor findings, got %d", bySeverity[SeverityMinor])
	}
	if len(r.FindingsBySeverity(SeveritySerious)) != 1 {
		t.Error("expected 1 serious finding")
	}
}

func TestNormReference(t *testing.T) {
	t.Parallel()

	var nilRef *NormReference
	if nilRef.Complete() {
		t.Error("nil reference must not be complete")
	}
	if nilRef.Clone() != nil {
		t.Error("clone of nil must be nil")
	}

	ref := &NormReference{WCAG: []string{"1.4.3"}, BITV: []string{"9.1.4.3"}, EN301549: []string{"9.1.4.3"}}
	if !ref.Complete() {
		t.Error("expected complete reference")
	}

	c := ref.Clone()
	c.WCAG[0] = "changed"
	if ref.WCAG[0] != "1.4.3" {
		t.Error("clone must not share slices")
	}
}

func TestFindingHelpers(t *testing.T) {
	t.Parallel()

	f := NewFinding("contrast:text-low", "text-contrast", "https://example.com/", "Text contrast below 4.5:1")
	if f.Severity != SeveritySerious {
		t.Errorf("expected severity from mapping, got %v", f.Severity)
	}
	if f.Occurrences() != 1 {
		t.Errorf("expected 1 occurrence without selectors, got %d", f.Occurrences())
	}

	g := f.WithSelectors("p.a", "p.b").WithDetails("Contrast 3.00:1, expected 4.5:1")
	if g.Occurrences() != 2 {
		t.Errorf("expected 2 occurrences, got %d", g.Occurrences())
	}
	if len(f.Selectors) != 0 {
		t.Error("WithSelectors must not modify the receiver")
	}
	if g.Key() != "contrast:text-low|https://example.com/" {
		t.Errorf("unexpected key %q", g.Key())
	}
}
