package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/log"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/report"
	"github.com/nao1215/a11yscan/internal/scan"
	"github.com/spf13/cobra"
)

// Files written to the output directory of every scan.
const (
	scanJSONFile     = "scan.json"
	scanMarkdownFile = "report.md"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "Audit a website for accessibility issues",
		Long: `Scan crawls a website with a headless Chrome, runs the selected
accessibility analyzers on every rendered page and maps the findings to
WCAG 2.1, BITV 2.0 and EN 301 549.

The result is written to scan.json and report.md in the output directory
and stored in the scan history for 'a11yscan compare'. A summary is printed
to stdout.

Examples:
  # Scan a site with the standard profile
  a11yscan scan https://www.example.com

  # Quick structural check of at most 10 pages
  a11yscan scan --profile quick --max-pages 10 https://www.example.com

  # Run selected analyzers only
  a11yscan scan --modules headings,images,links https://www.example.com

  # Follow links into a sister domain and print JSON
  a11yscan scan --scope domain-allowlist --allow-domain example.org --json https://www.example.com

Configuration file (.a11yscan.yaml) example:
  profile: standard
  crawl:
    maxPages: 100
    respectRobots: audit
  sites:
    staging.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 5`,
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .a11yscan.yaml in current or home directory)")

	// Module selection
	cmd.Flags().StringP("profile", "P", config.DefaultProfile,
		"Analyzer profile (quick, standard, full or a custom profile)")
	cmd.Flags().StringP("modules", "M", "",
		"Comma separated analyzer slugs; overrides --profile ('*' selects all)")

	// Crawl behavior
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to visit")
	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the start URL")
	cmd.Flags().String("scope", string(config.ScopeSameOrigin),
		"Crawl scope: same-origin, same-site or domain-allowlist")
	cmd.Flags().StringSlice("allow-domain", nil,
		"Additional domain for the domain-allowlist scope (repeatable)")
	cmd.Flags().String("robots", string(config.RobotsRespect),
		"robots.txt handling: respect, audit or ignore")
	cmd.Flags().Bool("seed-sitemap", false,
		"Seed the crawl with URLs from sitemap.xml")

	// Output
	cmd.Flags().StringP("output-dir", "o", "",
		"Directory for scan.json, report.md and artifacts (default: XDG data directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write the printed report to this file instead of stdout")
	cmd.Flags().Bool("no-save", false,
		"Do not store the result in the scan history")
	cmd.Flags().String("log-format", "text",
		"Log format: text or json")

	// Browser
	cmd.Flags().String("chrome-path", "",
		"Chrome or Chromium executable (default: auto-detect)")
	cmd.Flags().Bool("headful", false,
		"Show the browser window")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(os.Stderr, cfg.LogFormat, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), openChrome)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file, the
// environment and the command flags, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	if len(args) > 0 {
		cfg.URL = normalizeSeed(args[0])
	}

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.Getenv)

	if err := applyScanFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir(cfg.URL, time.Now())
	}
	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
}

// loadConfigFile applies the configuration file to cfg.
// If the user explicitly specified a config file path, a missing file is an
// error. Otherwise an empty site configuration is used.
func loadConfigFile(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.ApplyTo(cfg); err != nil {
			return fmt.Errorf("failed to apply config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}
	return nil
}

// applyScanFlags copies flags the user set explicitly onto cfg, so that
// defaults of unset flags never shadow values from the configuration file.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("profile") {
		if cfg.Profile, err = flags.GetString("profile"); err != nil {
			return err
		}
	}
	if flags.Changed("modules") {
		modules, err := flags.GetString("modules")
		if err != nil {
			return err
		}
		cfg.Modules = config.ParseModuleList(modules)
	}
	if flags.Changed("max-pages") {
		if cfg.Crawl.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return err
		}
	}
	if flags.Changed("max-depth") {
		if cfg.Crawl.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
			return err
		}
	}
	if flags.Changed("scope") {
		scope, err := flags.GetString("scope")
		if err != nil {
			return err
		}
		cfg.Crawl.Scope = config.ScopeMode(scope)
	}
	if flags.Changed("allow-domain") {
		if cfg.Crawl.AllowDomains, err = flags.GetStringSlice("allow-domain"); err != nil {
			return err
		}
	}
	if flags.Changed("robots") {
		robots, err := flags.GetString("robots")
		if err != nil {
			return err
		}
		cfg.Crawl.RespectRobots = config.RobotsMode(robots)
	}
	if flags.Changed("seed-sitemap") {
		if cfg.Crawl.SeedSitemap, err = flags.GetBool("seed-sitemap"); err != nil {
			return err
		}
	}
	if flags.Changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = flags.GetString("report"); err != nil {
		return err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noSave
	if cfg.LogFormat, err = flags.GetString("log-format"); err != nil {
		return err
	}
	if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return err
	}
	if cfg.Headful, err = flags.GetBool("headful"); err != nil {
		return err
	}
	return nil
}

// normalizeSeed adds https:// to addresses given without a scheme.
func normalizeSeed(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// defaultOutputDir returns <data dir>/scans/<host>/<timestamp>.
func defaultOutputDir(seed string, now time.Time) string {
	host := "unknown"
	if u, err := url.Parse(seed); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return filepath.Join(config.XDGDataDir(), "scans", host, now.UTC().Format("20060102-150405"))
}

// pageOpener starts the browser page used for a scan. The returned
// function releases it.
type pageOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (browser.Page, func(), error)

// openChrome starts Chrome with the session settings of the seed's site.
func openChrome(ctx context.Context, cfg *config.Config, logger *slog.Logger) (browser.Page, func(), error) {
	chrome, err := browser.NewChrome(ctx, chromeOptions(cfg, logger)...)
	if err != nil {
		return nil, nil, err
	}
	return chrome, func() {
		if err := chrome.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}, nil
}

// chromeOptions translates cfg into browser options.
func chromeOptions(cfg *config.Config, logger *slog.Logger) []browser.ChromeOption {
	opts := []browser.ChromeOption{
		browser.WithExecPath(cfg.ChromePath),
		browser.WithHeadless(!cfg.Headful),
		browser.WithUserAgent(cfg.Crawl.UserAgent),
		browser.WithLogger(logger),
	}
	if headers := siteHeaders(cfg); len(headers) > 0 {
		opts = append(opts, browser.WithExtraHeaders(headers))
	}
	return opts
}

// siteHeaders returns the extra request headers for the seed's site.
// The site cookie is sent as a Cookie header.
func siteHeaders(cfg *config.Config) map[string]string {
	u, err := url.Parse(cfg.URL)
	if err != nil || cfg.SiteConfigs == nil {
		return nil
	}
	site := cfg.SiteConfigs.GetSiteConfig(u.Hostname())
	headers := make(map[string]string, len(site.Headers)+1)
	maps.Copy(headers, site.Headers)
	if site.Cookie != "" {
		headers["Cookie"] = site.Cookie
	}
	return headers
}

// runScan executes one scan and writes its outputs.
// A cancelled scan still writes and stores the partial result before the
// context error is returned.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, open pageOpener, opts ...scan.Option) error {
	runner, err := scan.New(cfg, append([]scan.Option{scan.WithLogger(logger)}, opts...)...)
	if err != nil {
		return err
	}

	logger.Info("starting scan",
		"url", cfg.URL,
		"modules", runner.Modules(),
		"outputDir", cfg.OutputDir,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.ScanDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	page, release, err := open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer release()

	fmt.Fprintf(os.Stderr, "Scanning %s...\n", cfg.URL)
	startTime := time.Now()

	result, runErr := runner.Run(ctx, page, cfg.URL)
	if result == nil {
		return fmt.Errorf("scan failed: %w", runErr)
	}
	fmt.Fprintf(os.Stderr, "Scan completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

	if err := writeScanFiles(cfg.OutputDir, result); err != nil {
		return err
	}
	logger.Info("scan files written", "dir", cfg.OutputDir)

	// Use a fresh context so an interrupted scan is still recorded.
	if err := saveScanResult(context.WithoutCancel(ctx), db, result, logger); err != nil {
		logger.Error("failed to save scan result", "url", cfg.URL, "error", err)
	}

	if err := outputReport(cfg, result, out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("scan interrupted: %w", runErr)
	}
	return nil
}

// writeScanFiles writes scan.json and report.md into dir.
func writeScanFiles(dir string, result *model.ScanResult) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{scanJSONFile, func(w io.Writer) error {
			_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).Write(result)
			return err
		}},
		{scanMarkdownFile, func(w io.Writer) error {
			_, err := report.NewMarkdownWriter(w).Write(result)
			return err
		}},
	}
	for _, file := range files {
		if err := writeFile(filepath.Join(dir, file.name), file.write); err != nil {
			return err
		}
	}
	return nil
}

// writeFile creates path with owner-only permissions and fills it with write.
// Reports may contain session URLs that should only be readable by the owner.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path is built from user configuration
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// outputReport prints the scan result in the requested format to
// cfg.ReportFile, or to out when no file is set.
func outputReport(cfg *config.Config, result *model.ScanResult, out io.Writer) error {
	writer := func(w io.Writer) error {
		var rw report.Writer
		switch {
		case cfg.JSONReport:
			rw = report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
		case cfg.MarkdownReport:
			rw = report.NewMarkdownWriter(w)
		default:
			rw = report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
		}
		_, err := rw.Write(result)
		return err
	}

	if cfg.ReportFile == "" {
		return writer(out)
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return writeFile(cfg.ReportFile, writer)
}

// saveScanResult stores the result in the scan history.
// If db is nil, this function is a no-op.
func saveScanResult(ctx context.Context, db *database.ScanDB, result *model.ScanResult, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveScan(ctx, result)
	if err != nil {
		if errors.Is(err, database.ErrIncompleteResult) {
			return fmt.Errorf("result cannot be stored: %w", err)
		}
		return fmt.Errorf("failed to save scan result: %w", err)
	}

	logger.Info("scan result saved to database", "url", result.Summary.StartURL, "id", id)
	return nil
}
