package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/crawler"
	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/model"
)

// Constants for score direction and summary messages.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
	noFindingsMessage  = "No findings"
)

// NewCompareCmd creates the compare command.
// This command compares scan results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare scan results with historical data",
		Long: `Compare displays differences between two stored scans of the same start URL.

It shows:
- The score change and the change per severity
- New findings that appeared since the previous scan
- Resolved findings that are no longer present
- Pages that were added to or dropped from the crawl

Findings are matched by rule id and page URL. The comparison requires at
least two scans in the history. Use 'a11yscan scan' to perform scans.

Examples:
  # Compare the latest two scans of a site
  a11yscan compare https://www.example.com

  # List the scan history of a site
  a11yscan compare --list https://www.example.com

  # Compare the latest scan with a specific scan by ID
  a11yscan compare --with-scan-id 5 https://www.example.com

  # Compare with the first scan since a date
  a11yscan compare --since 2026-01-01 https://www.example.com

  # List all scanned sites
  a11yscan compare --list-sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified URL")
	cmd.Flags().BoolP("list-sites", "L", false,
		"List all scanned start URLs in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first scan at or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// compareOptions selects the scans to compare and the output format.
type compareOptions struct {
	withScanID int64
	since      string
	json       bool
	markdown   bool
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listSites, err := cmd.Flags().GetBool("list-sites")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var startURL string
	if !listSites {
		if len(args) == 0 {
			return errors.New("start URL is required (use --list-sites to see scanned sites)")
		}
		startURL = historyKey(args[0])
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listSites {
		return listScannedSites(ctx, db, out)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listScanHistory(ctx, db, startURL, out)
	}

	var opts compareOptions
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	if opts.withScanID, err = cmd.Flags().GetInt64("with-scan-id"); err != nil {
		return err
	}
	if opts.since, err = cmd.Flags().GetString("since"); err != nil {
		return err
	}

	return runComparison(ctx, db, startURL, opts, out)
}

// historyKey returns the start URL under which scans of raw are stored.
func historyKey(raw string) string {
	seed := normalizeSeed(raw)
	if key, err := crawler.NormalizeStartURL(seed); err == nil {
		return key
	}
	return seed
}

// listScannedSites lists all start URLs that have scan records in the database.
func listScannedSites(ctx context.Context, db *database.ScanDB, out io.Writer) error {
	sites, err := db.ListScannedSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	if len(sites) == 0 {
		fmt.Fprintln(out, "No scanned sites found in the database.")
		fmt.Fprintln(out, "\nUse 'a11yscan scan <url>' to scan a website.")
		return nil
	}

	fmt.Fprintf(out, "Scanned sites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(out, "  • %s\n", site)
	}
	fmt.Fprintln(out, "\nUse 'a11yscan compare --list <url>' to see the scan history of a site.")
	return nil
}

// listScanHistory lists all scan records for a start URL.
func listScanHistory(ctx context.Context, db *database.ScanDB, startURL string, out io.Writer) error {
	records, err := db.GetScanHistoryWithMetadata(ctx, startURL, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No scan history found for %s\n", startURL)
		fmt.Fprintln(out, "\nUse 'a11yscan scan' to scan this site.")
		return nil
	}

	fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", startURL, len(records))
	fmt.Fprintf(out, "  %-6s  %-20s  %-5s  %-7s  %s\n", "ID", "Date", "Score", "Pages", "Severity Summary")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, meta := range records {
		pages, err := db.ListPages(ctx, meta.ID)
		if err != nil {
			return fmt.Errorf("failed to list pages of scan %d: %w", meta.ID, err)
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-5d  %-7d  %s\n",
			meta.ID,
			meta.StartedAt.Local().Format("2006-01-02 15:04:05"),
			meta.Score,
			len(pages),
			formatSeveritySummary(meta.SeveritySummary),
		)
	}

	fmt.Fprintln(out, "\nUse 'a11yscan compare <url>' to compare the latest two scans.")
	fmt.Fprintln(out, "Use 'a11yscan compare --with-scan-id <id> <url>' to compare with a specific scan.")
	return nil
}

// formatSeveritySummary formats the severity summary map into a short string.
func formatSeveritySummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	for _, sev := range []model.Severity{
		model.SeverityCritical, model.SeveritySerious, model.SeverityModerate, model.SeverityMinor,
	} {
		name := sev.String()
		if v := summary[name]; v > 0 {
			parts = append(parts, strings.ToUpper(name[:1])+":"+strconv.Itoa(v))
		}
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// runComparison selects two scans, compares them and prints the result.
func runComparison(ctx context.Context, db *database.ScanDB, startURL string, opts compareOptions, out io.Writer) error {
	records, err := db.GetScanHistoryWithMetadata(ctx, startURL, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no scan history found for %s", startURL)
	}
	if len(records) < 2 && opts.withScanID == 0 && opts.since == "" {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(records))
	}

	// Records are sorted newest first; the latest scan is always the current one.
	current := records[0]
	var previous database.ScanMetadata

	switch {
	case opts.withScanID > 0:
		idx := slices.IndexFunc(records, func(m database.ScanMetadata) bool { return m.ID == opts.withScanID })
		if idx < 0 {
			other, err := db.GetScanByID(ctx, opts.withScanID)
			if err != nil {
				return fmt.Errorf("failed to get scan with ID %d: %w", opts.withScanID, err)
			}
			if other == nil {
				return fmt.Errorf("scan with ID %d not found", opts.withScanID)
			}
			return fmt.Errorf("scan ID %d belongs to %s, not %s", opts.withScanID, other.Summary.StartURL, startURL)
		}
		previous = records[idx]
	case opts.since != "":
		sinceDate, err := time.Parse("2006-01-02", opts.since)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		matching, err := db.GetScanHistoryWithMetadata(ctx, startURL, sinceDate)
		if err != nil {
			return fmt.Errorf("failed to get scan history: %w", err)
		}
		if len(matching) == 0 {
			return fmt.Errorf("no scans found since %s", opts.since)
		}
		// The oldest matching scan is the last one.
		previous = matching[len(matching)-1]
	default:
		previous = records[1]
	}
	if previous.ID == current.ID {
		return errors.New("the selected scan is the latest scan; at least 2 scans are required for comparison")
	}

	prevSnap, err := loadSnapshot(ctx, db, previous)
	if err != nil {
		return err
	}
	curSnap, err := loadSnapshot(ctx, db, current)
	if err != nil {
		return err
	}

	comparison := compareScans(prevSnap, curSnap)

	switch {
	case opts.json:
		return outputComparisonJSON(comparison, out)
	case opts.markdown:
		return outputComparisonMarkdown(comparison, out)
	default:
		return outputComparisonText(comparison, out)
	}
}

// storedScan is a scan loaded from the history with its page records.
type storedScan struct {
	meta   database.ScanMetadata
	result *model.ScanResult
	pages  []database.PageRecord
}

// loadSnapshot loads the full result and the page records of a history entry.
func loadSnapshot(ctx context.Context, db *database.ScanDB, meta database.ScanMetadata) (storedScan, error) {
	result, err := db.GetScanByID(ctx, meta.ID)
	if err != nil {
		return storedScan{}, fmt.Errorf("failed to get scan with ID %d: %w", meta.ID, err)
	}
	if result == nil {
		return storedScan{}, fmt.Errorf("scan with ID %d not found", meta.ID)
	}
	pages, err := db.ListPages(ctx, meta.ID)
	if err != nil {
		return storedScan{}, fmt.Errorf("failed to list pages of scan %d: %w", meta.ID, err)
	}
	return storedScan{meta: meta, result: result, pages: pages}, nil
}

// ComparisonResult holds the result of comparing two scans.
type ComparisonResult struct {
	// StartURL is the scanned seed URL.
	StartURL string `json:"start_url"`

	// PreviousScan contains metadata about the previous scan.
	PreviousScan ScanSnapshot `json:"previous_scan"`

	// CurrentScan contains metadata about the current scan.
	CurrentScan ScanSnapshot `json:"current_scan"`

	// NewFindings are finding keys present only in the current scan.
	NewFindings []FindingChange `json:"new_findings,omitempty"`

	// ResolvedFindings are finding keys present only in the previous scan.
	ResolvedFindings []FindingChange `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of finding keys present in both scans.
	UnchangedCount int `json:"unchanged_count"`

	// NewPages and DroppedPages describe the change in crawl coverage.
	NewPages     []string `json:"new_pages,omitempty"`
	DroppedPages []string `json:"dropped_pages,omitempty"`

	// ScoreChange describes the overall change.
	ScoreChange ScoreChange `json:"score_change"`
}

// ScanSnapshot contains metadata about a scan for comparison display.
type ScanSnapshot struct {
	ID            int64     `json:"id"`
	ScanID        string    `json:"scan_id"`
	DateScanned   time.Time `json:"date_scanned"`
	Score         int       `json:"score"`
	Pages         int       `json:"pages"`
	FailedPages   int       `json:"failed_pages"`
	TotalFindings int       `json:"total_findings"`
	CriticalCount int       `json:"critical_count"`
	SeriousCount  int       `json:"serious_count"`
	ModerateCount int       `json:"moderate_count"`
	MinorCount    int       `json:"minor_count"`
}

// FindingChange identifies a finding that appeared or disappeared.
type FindingChange struct {
	Key      string         `json:"key"`
	Rule     string         `json:"rule"`
	PageURL  string         `json:"page_url"`
	Severity model.Severity `json:"severity"`
	Summary  string         `json:"summary"`
}

// ScoreChange describes the change between two scans.
type ScoreChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	ScoreDelta    int `json:"score_delta"`
	CriticalDelta int `json:"critical_delta"`
	SeriousDelta  int `json:"serious_delta"`
	ModerateDelta int `json:"moderate_delta"`
	MinorDelta    int `json:"minor_delta"`
}

// snapshotOf summarizes a stored scan.
func snapshotOf(s storedScan) ScanSnapshot {
	snap := ScanSnapshot{
		ID:          s.meta.ID,
		ScanID:      s.meta.ScanID,
		DateScanned: s.meta.StartedAt,
		Score:       s.meta.Score,
		Pages:       len(s.pages),
	}
	for _, p := range s.pages {
		if p.Failed {
			snap.FailedPages++
		}
	}
	counts := s.result.CountBySeverity()
	snap.TotalFindings = len(s.result.Findings)
	snap.CriticalCount = counts[model.SeverityCritical]
	snap.SeriousCount = counts[model.SeveritySerious]
	snap.ModerateCount = counts[model.SeverityModerate]
	snap.MinorCount = counts[model.SeverityMinor]
	return snap
}

// compareScans compares two stored scans and generates a comparison result.
func compareScans(previous, current storedScan) *ComparisonResult {
	result := &ComparisonResult{
		StartURL:     current.meta.StartURL,
		PreviousScan: snapshotOf(previous),
		CurrentScan:  snapshotOf(current),
	}

	previousFindings := findingsByKey(previous.result.Findings)
	currentFindings := findingsByKey(current.result.Findings)

	for key, f := range currentFindings {
		if _, exists := previousFindings[key]; !exists {
			result.NewFindings = append(result.NewFindings, f)
		}
	}
	for key, f := range previousFindings {
		if _, exists := currentFindings[key]; exists {
			result.UnchangedCount++
		} else {
			result.ResolvedFindings = append(result.ResolvedFindings, f)
		}
	}
	sortChanges(result.NewFindings)
	sortChanges(result.ResolvedFindings)

	result.NewPages, result.DroppedPages = diffPages(previous.pages, current.pages)
	result.ScoreChange = calculateScoreChange(result.PreviousScan, result.CurrentScan)
	return result
}

// findingsByKey indexes findings by rule id and page. Findings sharing a
// key keep the most severe one.
func findingsByKey(findings []model.Finding) map[string]FindingChange {
	out := make(map[string]FindingChange, len(findings))
	for _, f := range findings {
		key := f.Key()
		if prev, ok := out[key]; ok && prev.Severity >= f.Severity {
			continue
		}
		out[key] = FindingChange{
			Key:      key,
			Rule:     f.ID,
			PageURL:  f.PageURL,
			Severity: f.Severity,
			Summary:  f.Summary,
		}
	}
	return out
}

// sortChanges orders changes by severity, most severe first, then by key.
func sortChanges(changes []FindingChange) {
	slices.SortFunc(changes, func(a, b FindingChange) int {
		if c := cmp.Compare(b.Severity, a.Severity); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
}

// diffPages returns the URLs crawled only in current and only in previous.
func diffPages(previous, current []database.PageRecord) (added, dropped []string) {
	prev := make(map[string]bool, len(previous))
	for _, p := range previous {
		prev[p.URL] = true
	}
	cur := make(map[string]bool, len(current))
	for _, p := range current {
		cur[p.URL] = true
		if !prev[p.URL] {
			added = append(added, p.URL)
		}
	}
	for _, p := range previous {
		if !cur[p.URL] {
			dropped = append(dropped, p.URL)
		}
	}
	slices.Sort(added)
	slices.Sort(dropped)
	return added, dropped
}

// calculateScoreChange calculates the change between two scans.
// The direction follows the score; a higher score is better.
func calculateScoreChange(previous, current ScanSnapshot) ScoreChange {
	change := ScoreChange{
		ScoreDelta:    current.Score - previous.Score,
		CriticalDelta: current.CriticalCount - previous.CriticalCount,
		SeriousDelta:  current.SeriousCount - previous.SeriousCount,
		ModerateDelta: current.ModerateCount - previous.ModerateCount,
		MinorDelta:    current.MinorCount - previous.MinorCount,
	}

	switch {
	case change.ScoreDelta > 0:
		change.Direction = directionImproved
	case change.ScoreDelta < 0:
		change.Direction = directionWorsened
	default:
		change.Direction = directionUnchanged
	}
	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult, out io.Writer) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult, out io.Writer) error {
	md := markdown.NewMarkdown(out)
	prev, cur, change := result.PreviousScan, result.CurrentScan, result.ScoreChange

	md.H1("Scan Comparison: " + result.StartURL)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(change.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", prev.DateScanned.Format("2006-01-02 15:04"), cur.DateScanned.Format("2006-01-02 15:04"), "-"},
			{"Score", strconv.Itoa(prev.Score), strconv.Itoa(cur.Score), formatDelta(change.ScoreDelta)},
			{"Pages", strconv.Itoa(prev.Pages), strconv.Itoa(cur.Pages), formatDelta(cur.Pages - prev.Pages)},
			{"Critical", strconv.Itoa(prev.CriticalCount), strconv.Itoa(cur.CriticalCount), formatDelta(change.CriticalDelta)},
			{"Serious", strconv.Itoa(prev.SeriousCount), strconv.Itoa(cur.SeriousCount), formatDelta(change.SeriousDelta)},
			{"Moderate", strconv.Itoa(prev.ModerateCount), strconv.Itoa(cur.ModerateCount), formatDelta(change.ModerateDelta)},
			{"Minor", strconv.Itoa(prev.MinorCount), strconv.Itoa(cur.MinorCount), formatDelta(change.MinorDelta)},
			{"**Total**", "**" + strconv.Itoa(prev.TotalFindings) + "**", "**" + strconv.Itoa(cur.TotalFindings) + "**",
				"**" + formatDelta(cur.TotalFindings-prev.TotalFindings) + "**"},
		},
	})
	md.PlainText("")

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(result.NewFindings)))
		md.PlainText("")
		items := make([]string, len(result.NewFindings))
		for i, f := range result.NewFindings {
			items[i] = fmt.Sprintf("**[%s]** `%s` %s on `%s`", f.Severity, f.Rule, f.Summary, f.PageURL)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		items := make([]string, len(result.ResolvedFindings))
		for i, f := range result.ResolvedFindings {
			items[i] = fmt.Sprintf("~~**[%s]** `%s` on `%s`~~", f.Severity, f.Rule, f.PageURL)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(result.NewPages) > 0 || len(result.DroppedPages) > 0 {
		md.H2("Coverage")
		md.PlainText("")
		items := make([]string, 0, len(result.NewPages)+len(result.DroppedPages))
		for _, p := range result.NewPages {
			items = append(items, "added `"+p+"`")
		}
		for _, p := range result.DroppedPages {
			items = append(items, "dropped `"+p+"`")
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d findings unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult, out io.Writer) error {
	prev, cur, change := result.PreviousScan, result.CurrentScan, result.ScoreChange

	fmt.Fprintf(out, "Scan Comparison: %s\n", result.StartURL)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nStatus: %s\n", formatDirection(change.Direction))
	fmt.Fprintf(out, "Score:  %d -> %d (%s)\n", prev.Score, cur.Score, formatDelta(change.ScoreDelta))

	fmt.Fprintf(out, "\nPrevious scan: #%d %s\n", prev.ID, prev.DateScanned.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current scan:  #%d %s\n", cur.ID, cur.DateScanned.Local().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(out, "\nFindings Summary:")
	fmt.Fprintf(out, "  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	rows := []struct {
		name      string
		prev, cur int
		delta     int
	}{
		{"Critical", prev.CriticalCount, cur.CriticalCount, change.CriticalDelta},
		{"Serious", prev.SeriousCount, cur.SeriousCount, change.SeriousDelta},
		{"Moderate", prev.ModerateCount, cur.ModerateCount, change.ModerateDelta},
		{"Minor", prev.MinorCount, cur.MinorCount, change.MinorDelta},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", r.name, r.prev, r.cur, formatDelta(r.delta))
	}
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", "Total",
		prev.TotalFindings, cur.TotalFindings, formatDelta(cur.TotalFindings-prev.TotalFindings))

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(out, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(out, "  [+] [%s] %s: %s\n", f.Severity, f.Rule, f.Summary)
			fmt.Fprintf(out, "      Page: %s\n", f.PageURL)
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(out, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(out, "  [-] [%s] %s: %s\n", f.Severity, f.Rule, f.PageURL)
		}
	}

	if len(result.NewPages) > 0 || len(result.DroppedPages) > 0 {
		fmt.Fprintf(out, "\nCoverage: %d -> %d pages\n", prev.Pages, cur.Pages)
		for _, p := range result.NewPages {
			fmt.Fprintf(out, "  [+] %s\n", p)
		}
		for _, p := range result.DroppedPages {
			fmt.Fprintf(out, "  [-] %s\n", p)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	return nil
}

// formatDirection formats the score direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (score increased)"
	case directionWorsened:
		return "WORSENED (score decreased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
