package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/browser/browsertest"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/crawler"
	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
	"github.com/nao1215/a11yscan/internal/scan"
)

// TestNewScanCmd tests the scan command creation.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "scan [url]" {
			t.Errorf("expected use 'scan [url]', got %q", cmd.Use)
		}
	})

	t.Run("requires exactly one argument", func(t *testing.T) {
		t.Parallel()
		if err := cmd.Args(cmd, nil); err == nil {
			t.Error("expected an error without arguments")
		}
		if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
			t.Error("expected an error with two arguments")
		}
		if err := cmd.Args(cmd, []string{"https://example.com"}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	testCases := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"config", "c", ""},
		{"profile", "P", config.DefaultProfile},
		{"modules", "M", ""},
		{"max-pages", "p", "50"},
		{"max-depth", "d", "3"},
		{"scope", "", "same-origin"},
		{"allow-domain", "", "[]"},
		{"robots", "", "respect"},
		{"seed-sitemap", "", "false"},
		{"output-dir", "o", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"report", "r", ""},
		{"no-save", "", "false"},
		{"log-format", "", "text"},
		{"chrome-path", "", ""},
		{"headful", "", "false"},
	}
	for _, tc := range testCases {
		t.Run("has "+tc.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tc.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tc.name)
			}
			if flag.Shorthand != tc.shorthand {
				t.Errorf("expected shorthand %q, got %q", tc.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tc.defValue {
				t.Errorf("expected default %q, got %q", tc.defValue, flag.DefValue)
			}
		})
	}
}

func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	t.Run("returns false when flag not set", func(t *testing.T) {
		t.Parallel()
		if getVerboseFlag(NewScanCmd()) {
			t.Error("expected false")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		t.Parallel()
		root := NewRootCmd()
		if err := root.PersistentFlags().Set("verbose", "true"); err != nil {
			t.Fatal(err)
		}
		scanCmd, _, err := root.Find([]string{"scan"})
		if err != nil {
			t.Fatal(err)
		}
		if !getVerboseFlag(scanCmd) {
			t.Error("expected true")
		}
	})
}

// writeConfig writes a configuration file into a temporary directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".a11yscan.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("flags override the configuration file", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
profile: quick
crawl:
  maxPages: 80
  maxDepth: 5
  respectRobots: audit
outputDir: /tmp/from-file
sites:
  example.com:
    cookie: "sid=1"
`)
		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", path, "--max-pages", "10", "--modules", "headings,links", "--no-save"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.URL != "https://example.com" {
			t.Errorf("expected normalized URL, got %q", cfg.URL)
		}
		if cfg.Crawl.MaxPages != 10 {
			t.Errorf("expected flag to win, got %d", cfg.Crawl.MaxPages)
		}
		if cfg.Crawl.MaxDepth != 5 || cfg.Crawl.RespectRobots != config.RobotsAudit {
			t.Errorf("expected file values to survive unset flags, got %+v", cfg.Crawl)
		}
		if cfg.Profile != "quick" {
			t.Errorf("expected profile from file, got %q", cfg.Profile)
		}
		if len(cfg.Modules) != 2 || cfg.Modules[0] != "headings" {
			t.Errorf("unexpected modules %v", cfg.Modules)
		}
		if cfg.OutputDir != "/tmp/from-file" {
			t.Errorf("expected output dir from file, got %q", cfg.OutputDir)
		}
		if cfg.SaveToDB {
			t.Error("expected --no-save to disable history")
		}
		if cfg.SiteConfigs.GetSiteConfig("example.com").Cookie != "sid=1" {
			t.Error("expected site configuration to be loaded")
		}
		if cfg.DBDir != config.XDGDataDir() {
			t.Errorf("expected XDG data dir, got %q", cfg.DBDir)
		}
	})

	t.Run("crawl flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		err := cmd.ParseFlags([]string{
			"-c", writeConfig(t, "profile: standard\n"),
			"--scope", "domain-allowlist", "--allow-domain", "example.org", "--allow-domain", "cdn.example.net",
			"--robots", "ignore", "--seed-sitemap", "--max-depth", "0",
			"-o", "/tmp/out", "--json", "--log-format", "json", "--headful", "--chrome-path", "/usr/bin/chromium",
		})
		if err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Crawl.Scope != config.ScopeDomainAllowlist || len(cfg.Crawl.AllowDomains) != 2 {
			t.Errorf("unexpected scope settings %+v", cfg.Crawl)
		}
		if cfg.Crawl.RespectRobots != config.RobotsIgnore || !cfg.Crawl.SeedSitemap || cfg.Crawl.MaxDepth != 0 {
			t.Errorf("unexpected crawl settings %+v", cfg.Crawl)
		}
		if cfg.OutputDir != "/tmp/out" || !cfg.JSONReport || cfg.LogFormat != "json" {
			t.Errorf("unexpected output settings %+v", cfg)
		}
		if !cfg.Headful || cfg.ChromePath != "/usr/bin/chromium" {
			t.Errorf("unexpected browser settings %+v", cfg)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected a valid configuration, got %v", err)
		}
	})

	t.Run("default output dir", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", writeConfig(t, "profile: quick\n")}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://www.example.com/"})
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(config.XDGDataDir(), "scans", "www.example.com")
		if !strings.HasPrefix(cfg.OutputDir, want) {
			t.Errorf("expected output dir below %s, got %s", want, cfg.OutputDir)
		}
	})

	t.Run("returns error for missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, []string{"https://example.com"}); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("returns error for invalid config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewScanCmd()
		if err := cmd.ParseFlags([]string{"-c", writeConfig(t, "crawl: [unclosed\n")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, []string{"https://example.com"}); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestNormalizeSeed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input string
		want  string
	}{
		{"example.com", "https://example.com"},
		{"  example.com/path ", "https://example.com/path"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/", "https://example.com/"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := normalizeSeed(tc.input); got != tc.want {
			t.Errorf("normalizeSeed(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDefaultOutputDir(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	got := defaultOutputDir("https://example.com:8443/a", now)
	want := filepath.Join(config.XDGDataDir(), "scans", "example.com", "20260304-050607")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if got := defaultOutputDir("::bad", now); !strings.Contains(got, "unknown") {
		t.Errorf("expected unknown host, got %s", got)
	}
}

func TestSiteHeaders(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.URL = "https://staging.example.com/login"
	cfg.SiteConfigs = &config.File{
		Defaults: config.SiteConfig{Headers: map[string]string{"Accept-Language": "de"}},
		Sites: map[string]config.SiteConfig{
			"staging.example.com": {Cookie: "sid=abc", Headers: map[string]string{"Authorization": "Bearer x"}},
		},
	}

	headers := siteHeaders(cfg)
	want := map[string]string{"Accept-Language": "de", "Authorization": "Bearer x", "Cookie": "sid=abc"}
	if len(headers) != len(want) {
		t.Fatalf("expected %v, got %v", want, headers)
	}
	for k, v := range want {
		if headers[k] != v {
			t.Errorf("header %s: expected %q, got %q", k, v, headers[k])
		}
	}

	cfg.SiteConfigs = nil
	if siteHeaders(cfg) != nil {
		t.Error("expected no headers without site configuration")
	}
	if len(chromeOptions(cfg, slog.New(slog.DiscardHandler))) != 4 {
		t.Error("expected only the base browser options")
	}
}

// stubAnalyzer answers every page with run.
type stubAnalyzer struct {
	run func(c *pipeline.Context) (*model.AnalyzerResult, error)
}

func (*stubAnalyzer) Slug() string    { return "headings" }
func (*stubAnalyzer) Version() string { return "0.1.0" }

func (s *stubAnalyzer) Run(_ context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	return s.run(c)
}

// fakeSite serves the given pages through a scripted browser page.
func fakeSite(pages map[string]string) *browsertest.Page {
	p := &browsertest.Page{}
	p.NavigateFunc = func(target string) (*browser.Response, error) {
		u, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		if _, ok := pages[u.Path]; !ok {
			return &browser.Response{URL: target, Status: http.StatusNotFound, MIMEType: "text/html"}, nil
		}
		return &browser.Response{URL: target, Status: http.StatusOK, MIMEType: "text/html"}, nil
	}
	p.Handle(crawler.ScriptDocumentHTML, func([]any) (any, error) {
		cur := p.Current()
		u, err := url.Parse(cur)
		if err != nil {
			return nil, err
		}
		return map[string]string{"url": cur, "html": pages[u.Path]}, nil
	})
	p.Returns(crawler.ScriptRouteHook, 0)
	p.Returns(crawler.ScriptRouteRead, []string{})
	return p
}

// scanFixture prepares a two page site and a configuration writing into
// temporary directories.
func scanFixture(t *testing.T, run func(c *pipeline.Context) (*model.AnalyzerResult, error)) (*config.Config, pageOpener, scan.Option) {
	t.Helper()

	cfg := config.NewConfig()
	cfg.URL = "https://example.com/"
	cfg.Modules = []string{pipeline.AllModules}
	cfg.Crawl.RespectRobots = config.RobotsIgnore
	cfg.Crawl.RateLimitDelayMs = []int{0, 0}
	cfg.Crawl.Downloads.Enabled = false
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.DBDir = t.TempDir()
	cfg.SaveToDB = true

	page := fakeSite(map[string]string{
		"/":      `<html><body><a href="/about">About</a></body></html>`,
		"/about": `<html><body><h2>About</h2></body></html>`,
	})
	opener := func(context.Context, *config.Config, *slog.Logger) (browser.Page, func(), error) {
		return page, func() {}, nil
	}

	registry := pipeline.NewRegistry()
	if err := registry.Register(&stubAnalyzer{run: run}); err != nil {
		t.Fatal(err)
	}
	return cfg, opener, scan.WithRegistry(registry)
}

func missingH1(c *pipeline.Context) (*model.AnalyzerResult, error) {
	return &model.AnalyzerResult{
		Findings: []model.Finding{{
			ID: "headings:missing-h1", Severity: model.SeveritySerious,
			Summary: "Page has no h1", PageURL: c.URL,
		}},
	}, nil
}

func TestRunScan(t *testing.T) {
	t.Parallel()

	cfg, opener, withRegistry := scanFixture(t, missingH1)
	logger := slog.New(slog.DiscardHandler)

	var out bytes.Buffer
	if err := runScan(context.Background(), cfg, logger, &out, opener, withRegistry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, scanJSONFile))
	if err != nil {
		t.Fatalf("expected scan.json: %v", err)
	}
	var result model.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("scan.json is not valid JSON: %v", err)
	}
	if len(result.Pages) != 2 || len(result.Findings) != 2 {
		t.Errorf("expected 2 pages and 2 findings, got %d and %d", len(result.Pages), len(result.Findings))
	}
	for _, f := range result.Findings {
		if f.Norms == nil || f.Unmapped {
			t.Errorf("expected mapped finding, got %+v", f)
		}
	}

	md, err := os.ReadFile(filepath.Join(cfg.OutputDir, scanMarkdownFile))
	if err != nil {
		t.Fatalf("expected report.md: %v", err)
	}
	if !strings.Contains(string(md), "# Accessibility Report") {
		t.Error("expected Markdown report")
	}

	if !strings.Contains(out.String(), "ACCESSIBILITY SCAN REPORT") {
		t.Errorf("expected text report on stdout, got:\n%s", out.String())
	}

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		t.Fatalf("expected database: %v", err)
	}
	defer db.Close()
	stored, err := db.GetLatestScan(context.Background(), cfg.URL)
	if err != nil || stored == nil {
		t.Fatalf("expected stored scan, got %v", err)
	}
	if stored.ID != result.ID {
		t.Errorf("expected stored id %s, got %s", result.ID, stored.ID)
	}
}

func TestRunScanJSONReportFile(t *testing.T) {
	t.Parallel()

	cfg, opener, withRegistry := scanFixture(t, missingH1)
	cfg.SaveToDB = false
	cfg.JSONReport = true
	cfg.ReportFile = filepath.Join(t.TempDir(), "nested", "report.json")

	var out bytes.Buffer
	if err := runScan(context.Background(), cfg, slog.New(slog.DiscardHandler), &out, opener, withRegistry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Error("expected nothing on stdout when a report file is set")
	}

	data, err := os.ReadFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("expected report file: %v", err)
	}
	var wrapped struct {
		Version string            `json:"version"`
		Result  *model.ScanResult `json:"result"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if wrapped.Version == "" || wrapped.Result == nil {
		t.Errorf("expected wrapped report, got %s", data)
	}

	info, err := os.Stat(cfg.ReportFile)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected permission 0600, got %o", perm)
	}
}

func TestRunScanInterrupted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, opener, withRegistry := scanFixture(t, func(c *pipeline.Context) (*model.AnalyzerResult, error) {
		cancel()
		return missingH1(c)
	})

	var out bytes.Buffer
	err := runScan(ctx, cfg, slog.New(slog.DiscardHandler), &out, opener, withRegistry)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, scanJSONFile)); err != nil {
		t.Errorf("expected partial scan.json: %v", err)
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	stored, err := db.GetLatestScan(context.Background(), cfg.URL)
	if err != nil || stored == nil {
		t.Fatalf("expected the partial scan to be stored, got %v", err)
	}
	if len(stored.Pages) != 1 {
		t.Errorf("expected one page, got %d", len(stored.Pages))
	}
}

func TestRunScanErrors(t *testing.T) {
	t.Parallel()

	t.Run("browser start failure", func(t *testing.T) {
		t.Parallel()

		cfg, _, withRegistry := scanFixture(t, missingH1)
		failing := func(context.Context, *config.Config, *slog.Logger) (browser.Page, func(), error) {
			return nil, nil, errors.New("chrome not found")
		}
		err := runScan(context.Background(), cfg, slog.New(slog.DiscardHandler), &bytes.Buffer{}, failing, withRegistry)
		if err == nil || !strings.Contains(err.Error(), "chrome not found") {
			t.Errorf("expected browser error, got %v", err)
		}
	})

	t.Run("no analyzers", func(t *testing.T) {
		t.Parallel()

		cfg, opener, _ := scanFixture(t, missingH1)
		cfg.Modules = []string{"does-not-exist"}
		err := runScan(context.Background(), cfg, slog.New(slog.DiscardHandler), &bytes.Buffer{}, opener,
			scan.WithRegistry(pipeline.NewRegistry()))
		if !errors.Is(err, scan.ErrNoAnalyzers) {
			t.Errorf("expected ErrNoAnalyzers, got %v", err)
		}
	})
}

func TestOutputReport(t *testing.T) {
	t.Parallel()

	result := &model.ScanResult{
		ID:      "r1",
		Summary: model.NewScanSummary("https://example.com/", time.Now()),
		Findings: []model.Finding{
			{ID: "links:empty", Severity: model.SeverityCritical, Summary: "Link has no text", PageURL: "https://example.com/"},
		},
	}

	testCases := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{"text", &config.Config{}, "ACCESSIBILITY SCAN REPORT"},
		{"markdown", &config.Config{MarkdownReport: true}, "# Accessibility Report"},
		{"json", &config.Config{JSONReport: true}, `"version"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := outputReport(tc.cfg, result, &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tc.want) {
				t.Errorf("expected output to contain %q", tc.want)
			}
		})
	}
}

func TestSaveScanResult(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	t.Run("returns nil when db is nil", func(t *testing.T) {
		t.Parallel()
		if err := saveScanResult(ctx, nil, &model.ScanResult{}, logger); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects incomplete result", func(t *testing.T) {
		t.Parallel()
		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		err = saveScanResult(ctx, db, &model.ScanResult{ID: "x"}, logger)
		if !errors.Is(err, database.ErrIncompleteResult) {
			t.Errorf("expected ErrIncompleteResult, got %v", err)
		}
	})

	t.Run("saves result", func(t *testing.T) {
		t.Parallel()
		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		summary := model.NewScanSummary("https://saved.example/", time.Now())
		summary.Freeze(time.Now(), 100, model.Totals{})
		if err := saveScanResult(ctx, db, &model.ScanResult{ID: "saved", Summary: summary}, logger); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := db.GetScanByScanID(ctx, "saved")
		if err != nil || got == nil {
			t.Errorf("expected saved scan, got %v", err)
		}
	})
}

func ExampleNewScanCmd() {
	cmd := NewScanCmd()
	fmt.Println(cmd.Use)
	// Output: scan [url]
}
