package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/a11yscan/internal/model"
)

// FileName is the name of the history database inside the data directory.
const FileName = "a11yscan.db"

// ScanDB provides SQLite-based storage for scan results and the pages
// each scan visited.
//
// Design decision: We keep one database file for all sites rather than one
// per site. This keeps history listing a single query and makes backups a
// single file copy.
type ScanDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ScanDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ScanDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the database file path.
func (sdb *ScanDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

func (sdb *ScanDB) createTables() error {
	schema := `
	-- Scans store complete scan results as JSON plus the headline numbers
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL UNIQUE,
		start_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		profile TEXT,
		score INTEGER NOT NULL,
		violations INTEGER NOT NULL,
		incomplete INTEGER NOT NULL,
		severity_summary TEXT,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_start_url ON scans(start_url);
	CREATE INDEX IF NOT EXISTS idx_scans_started_at ON scans(started_at);

	-- Pages record every URL a scan visited
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_ref INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status_code INTEGER,
		simulated INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		findings INTEGER NOT NULL DEFAULT 0,
		UNIQUE(scan_ref, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_scan ON pages(scan_ref);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveScan stores a scan result and its pages in one transaction and
// returns the database ID of the scan.
func (sdb *ScanDB) SaveScan(ctx context.Context, result *model.ScanResult) (int64, error) {
	if result == nil || result.Summary == nil {
		return 0, ErrIncompleteResult
	}
	if result.ID == "" {
		return 0, fmt.Errorf("%w: missing scan id", ErrIncompleteResult)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize scan result: %w", err)
	}

	summary := make(map[string]int, 4)
	for _, sev := range []model.Severity{model.SeverityCritical, model.SeveritySerious, model.SeverityModerate, model.SeverityMinor} {
		summary[sev.String()] = 0
	}
	for sev, n := range result.CountBySeverity() {
		summary[sev.String()] = n
	}
	summaryJSON, _ := json.Marshal(summary) //nolint:errcheck,errchkjson // a map of ints always marshals

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	s := result.Summary
	res, err := tx.ExecContext(ctx, `
	INSERT INTO scans (scan_id, start_url, started_at, profile, score, violations, incomplete, severity_summary, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.ID,
		s.StartURL,
		s.StartedAt.UTC().Format(time.RFC3339Nano),
		s.Profile,
		s.Score,
		s.Totals.Violations,
		s.Totals.Incomplete,
		string(summaryJSON),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read scan id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (scan_ref, url, depth, status_code, simulated, failed, findings)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(scan_ref, url) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for i := range result.Pages {
		p := &result.Pages[i]
		if _, err := stmt.ExecContext(ctx, id, p.URL, p.Depth, p.Status, p.Simulated, p.Failed, len(p.Findings())); err != nil {
			return 0, fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan: %w", err)
	}
	return id, nil
}

// GetLatestScan retrieves the most recent scan of a start URL.
// It returns nil when the site was never scanned.
func (sdb *ScanDB) GetLatestScan(ctx context.Context, startURL string) (*model.ScanResult, error) {
	query := `
	SELECT result_json FROM scans
	WHERE start_url = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`
	return sdb.queryScan(ctx, query, startURL)
}

// GetScanByID retrieves a scan by its database ID, or nil.
func (sdb *ScanDB) GetScanByID(ctx context.Context, id int64) (*model.ScanResult, error) {
	return sdb.queryScan(ctx, `SELECT result_json FROM scans WHERE id = ?`, id)
}

// GetScanByScanID retrieves a scan by its UUID, or nil.
func (sdb *ScanDB) GetScanByScanID(ctx context.Context, scanID string) (*model.ScanResult, error) {
	return sdb.queryScan(ctx, `SELECT result_json FROM scans WHERE scan_id = ?`, scanID)
}

func (sdb *ScanDB) queryScan(ctx context.Context, query string, args ...any) (*model.ScanResult, error) {
	var resultJSON string
	err := sdb.db.QueryRowContext(ctx, query, args...).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	var result model.ScanResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse scan result: %w", err)
	}
	return &result, nil
}

// ListScannedSites returns the distinct start URLs in the history.
func (sdb *ScanDB) ListScannedSites(ctx context.Context) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx, `SELECT DISTINCT start_url FROM scans ORDER BY start_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// GetScanHistory retrieves all scans of a start URL, newest first.
// Rows that no longer decode are skipped.
func (sdb *ScanDB) GetScanHistory(ctx context.Context, startURL string) ([]*model.ScanResult, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT result_json FROM scans
	WHERE start_url = ?
	ORDER BY started_at DESC, id DESC
	`, startURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []*model.ScanResult
	for rows.Next() {
		var resultJSON string
		if err := rows.Scan(&resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var result model.ScanResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			continue
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}

// ScanMetadata contains summary information about a stored scan.
// This is used for displaying scan history without loading the full result.
type ScanMetadata struct {
	// ID is the database identifier of the scan.
	ID int64

	// ScanID is the UUID assigned by the runner.
	ScanID string

	// StartURL is the scanned seed URL.
	StartURL string

	// StartedAt is when the scan started.
	StartedAt time.Time

	Profile    string
	Score      int
	Violations int
	Incomplete int

	// SeveritySummary counts findings per severity name.
	SeveritySummary map[string]int
}

// GetScanHistoryWithMetadata retrieves scan metadata for a start URL,
// newest first. When since is non-zero, older scans are left out.
func (sdb *ScanDB) GetScanHistoryWithMetadata(ctx context.Context, startURL string, since time.Time) ([]ScanMetadata, error) {
	query := `
	SELECT id, scan_id, start_url, started_at, profile, score, violations, incomplete, severity_summary
	FROM scans
	WHERE start_url = ?
	`
	args := []any{startURL}
	if !since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY started_at DESC, id DESC"

	rows, err := sdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanMetadata
	for rows.Next() {
		var meta ScanMetadata
		var startedAt string
		var profile, summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.ScanID, &meta.StartURL, &startedAt, &profile,
			&meta.Score, &meta.Violations, &meta.Incomplete, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.StartedAt = parseTimestamp(startedAt)
		meta.Profile = profile.String
		meta.SeveritySummary = make(map[string]int)
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.SeveritySummary); err != nil {
				meta.SeveritySummary = make(map[string]int)
			}
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// PageRecord is one page visited by a stored scan.
type PageRecord struct {
	URL        string
	Depth      int
	StatusCode int
	Simulated  bool
	Failed     bool
	Findings   int
}

// ListPages returns the pages of a stored scan ordered by depth and URL.
func (sdb *ScanDB) ListPages(ctx context.Context, id int64) ([]PageRecord, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT url, depth, status_code, simulated, failed, findings
	FROM pages
	WHERE scan_ref = ?
	ORDER BY depth, url
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var status sql.NullInt64
		if err := rows.Scan(&p.URL, &p.Depth, &status, &p.Simulated, &p.Failed, &p.Findings); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.StatusCode = int(status.Int64)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses a stored timestamp, returning zero time when no
// format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
