package scan

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/a11yscan/internal/analyzer"
	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/crawler"
	"github.com/nao1215/a11yscan/internal/download"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/norms"
	"github.com/nao1215/a11yscan/internal/pipeline"
	"github.com/nao1215/a11yscan/internal/score"
)

// ArtifactDir is the directory below the output directory that receives
// analyzer artifacts.
const ArtifactDir = "artifacts"

// Runner performs complete scans: crawl, analyze, probe documents, map
// findings to norms and compute the score.
//
// Design decision: The runner is built once from a validated config and
// holds no per-scan state because:
//  1. Several scans can share one runner (e.g. a rescan after a fix)
//  2. Per-scan failures live in a handler value created by Run
type Runner struct {
	cfg       *config.Config
	registry  *pipeline.Registry
	pipeline  *pipeline.Pipeline
	mapper    *norms.Mapper
	prober    *download.Prober
	logger    *slog.Logger
	client    *http.Client
	artifacts *pipeline.ArtifactStore
	now       func() time.Time
	newID     func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used by the runner and everything it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRegistry replaces the built-in analyzer registry.
func WithRegistry(registry *pipeline.Registry) Option {
	return func(r *Runner) {
		r.registry = registry
	}
}

// WithHTTPClient sets the client for robots.txt, sitemaps and document probes.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		r.client = client
	}
}

// WithClock sets the time source. Tests use it to freeze timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New builds a runner for cfg. The config must already be validated.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("scan: nil config")
	}
	r := &Runner{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.registry == nil {
		registry, err := analyzer.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to build analyzer registry: %w", err)
		}
		r.registry = registry
	}

	selected, err := r.registry.Select(selection(cfg), r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to select analyzers: %w", err)
	}
	if len(selected) == 0 {
		return nil, ErrNoAnalyzers
	}

	mapper, err := norms.FromConfig(cfg.Norms)
	if err != nil {
		return nil, fmt.Errorf("failed to load norm mapping: %w", err)
	}
	r.mapper = mapper

	if cfg.OutputDir != "" {
		r.artifacts = pipeline.NewArtifactStore(filepath.Join(cfg.OutputDir, ArtifactDir))
	}
	r.pipeline = pipeline.New(selected,
		pipeline.WithLogger(r.logger),
		pipeline.WithModuleOptions(cfg.ModuleOptions),
		pipeline.WithArtifacts(r.artifacts),
	)

	proberOpts := []download.Option{
		download.WithLogger(r.logger),
		download.WithUserAgent(cfg.Crawl.UserAgent),
	}
	if r.client != nil {
		proberOpts = append(proberOpts, download.WithHTTPClient(r.client))
	}
	r.prober = download.NewProber(cfg.Crawl.Downloads, proberOpts...)
	return r, nil
}

// selection resolves the module choice of cfg: explicit modules win,
// otherwise the profile plus toggles.
func selection(cfg *config.Config) pipeline.Selection {
	sel := pipeline.Selection{
		Modules: cfg.Modules,
		Toggles: cfg.ModuleToggles,
	}
	if len(sel.Modules) == 0 {
		name := cmp.Or(cfg.Profile, config.DefaultProfile)
		if p, ok := config.LookupProfile(name, cfg.Profiles); ok {
			sel.Profile = p.Modules
		}
	}
	return sel
}

// Modules returns the slugs of the analyzers that run, in execution order.
func (r *Runner) Modules() []string {
	return r.pipeline.Slugs()
}

// CrawlConfig returns the crawl options for the seed, with the matching
// site configuration applied on top.
func (r *Runner) CrawlConfig(seed string) config.Crawl {
	crawl := r.cfg.Crawl
	u, err := url.Parse(seed)
	if err != nil || r.cfg.SiteConfigs == nil {
		return crawl
	}
	site := r.cfg.SiteConfigs.GetSiteConfig(u.Hostname())
	if site.Depth > 0 {
		crawl.MaxDepth = site.Depth
	}
	if len(site.IgnorePatterns) > 0 {
		crawl.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		crawl.FollowPatterns = site.FollowPatterns
	}
	return crawl
}

// Run scans the site at seed through page.
//
// When ctx is cancelled the partial result is still assembled and returned
// together with the context error. Any other error means no result.
func (r *Runner) Run(ctx context.Context, page browser.Page, seed string) (*model.ScanResult, error) {
	logger := r.logger.With("url", seed)
	logger.Info("starting scan", "modules", r.Modules(), "profile", r.cfg.Profile)

	engineOpts := []crawler.Option{crawler.WithLogger(r.logger)}
	if r.client != nil {
		engineOpts = append(engineOpts, crawler.WithHTTPClient(r.client))
	}
	engine := crawler.New(page, r.CrawlConfig(seed), engineOpts...)

	h := &pageHandler{pipeline: r.pipeline}
	crawled, runErr := engine.Run(ctx, seed, h)
	if crawled == nil {
		return nil, runErr
	}
	if runErr != nil && ctx.Err() == nil {
		return nil, runErr
	}

	result := &model.ScanResult{
		ID:        r.newID(),
		Summary:   crawled.Summary,
		Pages:     crawled.Pages,
		Downloads: crawled.Downloads,
		Failures:  append(crawled.Failures, h.failures...),
	}
	if len(r.cfg.Modules) == 0 {
		result.Summary.Profile = cmp.Or(r.cfg.Profile, config.DefaultProfile)
	}

	if runErr == nil && len(result.Downloads) > 0 {
		entries, failures, err := r.prober.Probe(ctx, result.Downloads)
		result.Downloads = entries
		result.Failures = append(result.Failures, failures...)
		if err != nil {
			runErr = err
		}
	}

	r.aggregate(result)
	logger.Info("scan finished",
		"pages", result.Summary.PagesCrawled,
		"findings", len(result.Findings),
		"score", result.Summary.Score,
		"failures", len(result.Failures),
	)
	return result, runErr
}

// aggregate maps findings to norms, flattens them across pages, builds
// module summaries and freezes the summary.
func (r *Runner) aggregate(result *model.ScanResult) {
	result.Findings = []model.Finding{}
	result.Modules = make(map[string]model.ModuleSummary)
	incomplete := 0
	unmapped := 0

	for i := range result.Pages {
		page := &result.Pages[i]
		for j := range page.Results {
			res := &page.Results[j]
			unmapped += r.mapper.ApplyAll(res.Findings)
			result.Findings = append(result.Findings, res.Findings...)

			ms := result.Modules[res.Module]
			ms.Version = res.Version
			ms.Pages++
			ms.Findings += len(res.Findings)
			if len(res.Stats) > 0 {
				ms.Stats = append(ms.Stats, res.Stats)
			}
			result.Modules[res.Module] = ms

			if res.Module == analyzer.SlugDOMAria {
				incomplete += statInt(res.Stats, "incomplete")
			}
		}
	}
	for _, d := range result.Downloads {
		if d.NeedsManualReview() {
			incomplete++
		}
	}
	if unmapped > 0 {
		r.logger.Warn("findings without complete norm references", "count", unmapped)
	}

	audit := norms.Audit(result.Findings)
	result.NormAudit = &audit

	// The formula was validated with the config; an unknown one scores
	// with the default formula rather than dropping the scan.
	value, err := score.Compute(result.Findings, r.cfg.Score.Formula)
	if err != nil {
		r.logger.Warn("falling back to weighted score", "error", err)
		value = score.Weighted(result.Findings)
	}
	result.Summary.Freeze(r.now(), value, model.Totals{
		Violations: len(result.Findings),
		Incomplete: incomplete,
	})
}

// statInt reads an integer statistic that may have passed through JSON.
func statInt(stats map[string]any, key string) int {
	switch v := stats[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// pageHandler runs the pipeline for the crawl engine and keeps the
// analyzer failures of one scan.
type pageHandler struct {
	pipeline *pipeline.Pipeline
	failures []model.Failure
}

var _ crawler.PageHandler = (*pageHandler)(nil)

// HandlePage implements crawler.PageHandler.
func (h *pageHandler) HandlePage(ctx context.Context, page browser.Page, result *model.PageResult) error {
	out, err := h.pipeline.Execute(ctx, pipeline.Input{
		Page:  page,
		URL:   result.URL,
		Depth: result.Depth,
	})
	if out != nil {
		result.Results = append(result.Results, out.Results...)
		h.failures = append(h.failures, out.Failures...)
	}
	return err
}
