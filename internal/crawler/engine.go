package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

const (
	// maxInteractions bounds the menu triggers clicked before analysis.
	maxInteractions = 10

	// defaultHTTPTimeout applies to robots.txt and sitemap requests.
	defaultHTTPTimeout = 15 * time.Second
)

// PageHandler analyzes a loaded page. The engine calls it once for every
// page that is not simulated, after links were extracted and before SPA
// routes are read. Results are written into result.
type PageHandler interface {
	HandlePage(ctx context.Context, page browser.Page, result *model.PageResult) error
}

// PageHandlerFunc adapts a function to PageHandler.
type PageHandlerFunc func(ctx context.Context, page browser.Page, result *model.PageResult) error

// HandlePage calls f.
func (f PageHandlerFunc) HandlePage(ctx context.Context, page browser.Page, result *model.PageResult) error {
	return f(ctx, page, result)
}

// Engine walks a site breadth first through a single browser page.
//
// Design decision: The engine drives exactly one page sequentially because:
//  1. Keyboard and focus analysis needs an undisturbed, focused tab
//  2. Politeness delays are easier to honor with one request in flight
type Engine struct {
	page   browser.Page
	cfg    config.Crawl
	logger *slog.Logger
	client *http.Client
	norm   normalizer
	filter pathFilter
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHTTPClient sets the client used for robots.txt and sitemaps.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		if client != nil {
			e.client = client
		}
	}
}

// New creates an engine that loads pages in page.
// A MaxPages of zero or less falls back to the default, as does a negative
// MaxDepth. A MaxDepth of zero visits only the seed and sitemap entries.
func New(page browser.Page, cfg config.Crawl, opts ...Option) *Engine {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = config.DefaultMaxPages
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = config.DefaultMaxDepth
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	if cfg.RespectRobots == "" {
		cfg.RespectRobots = config.RobotsRespect
	}

	e := &Engine{
		page:   page,
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		client: &http.Client{Timeout: defaultHTTPTimeout},
		norm:   normalizer{stripQuery: cfg.StripQuery, hashRoutes: cfg.HashRoutes},
		filter: pathFilter{ignore: cfg.IgnorePatterns, follow: cfg.FollowPatterns},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// queueItem is an entry of the crawl frontier.
type queueItem struct {
	url   string
	depth int
	// from is the page the URL was found on, empty for the seed and sitemap entries.
	from string
}

// crawl is the state of one Run. It is owned by the crawl loop and needs no locking.
type crawl struct {
	seed      *url.URL
	scope     *Scope
	robots    *RobotsRules
	queue     []queueItem
	seen      map[string]bool
	downloads *downloadSet
	result    *model.CrawlResult

	minDelay time.Duration
	maxDelay time.Duration
}

func (c *crawl) record(pr *model.PageResult) {
	c.result.Pages = append(c.result.Pages, *pr)
	c.result.Summary.RecordPage(pr)
	if pr.RobotsDisallowed && !pr.Failed {
		c.result.Summary.RecordRobotsAudit()
	}
}

// fail marks the page failed and records the failure.
func (c *crawl) fail(pr *model.PageResult, kind model.FailureKind, err error) {
	pr.Failed = true
	if pr.Error == "" {
		pr.Error = err.Error()
	}
	c.note(kind, pr.URL, err)
}

// note records a failure that does not fail the page.
func (c *crawl) note(kind model.FailureKind, pageURL string, err error) {
	c.result.Failures = append(c.result.Failures, model.NewFailure(kind, pageURL, err))
}

func (c *crawl) done() *model.CrawlResult {
	c.result.Downloads = c.downloads.entries
	return c.result
}

// Run crawls from seed until the frontier is empty or MaxPages pages were
// visited. Page level problems are recorded in the result and never stop
// the crawl. Only a done ctx ends it early; the partial result is returned
// together with the context error.
func (e *Engine) Run(ctx context.Context, seed string, handler PageHandler) (*model.CrawlResult, error) {
	seedURL, err := parseSeed(seed)
	if err != nil {
		return nil, err
	}
	start, err := e.norm.normalizeURL(seedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	scope, err := NewScope(e.cfg.Scope, seedURL, e.cfg.AllowDomains)
	if err != nil {
		return nil, err
	}

	c := &crawl{
		seed:      seedURL,
		scope:     scope,
		seen:      make(map[string]bool),
		downloads: newDownloadSet(e.cfg.Downloads),
		result: &model.CrawlResult{
			Summary: model.NewScanSummary(start, time.Now()),
			Pages:   []model.PageResult{},
		},
	}
	c.robots = e.loadRobots(ctx, c)
	c.minDelay, c.maxDelay = e.delayBounds(c.robots.CrawlDelay())

	if e.dropDisallowed(c, seedURL) {
		e.logger.Warn("seed disallowed by robots.txt", "url", start)
	} else {
		c.seen[start] = true
		c.queue = append(c.queue, queueItem{url: start, depth: 0})
	}
	if e.cfg.SeedSitemap {
		e.seedSitemaps(ctx, c)
	}

	e.logger.Info("starting crawl",
		"url", start,
		"scope", string(scope.Mode()),
		"robots", string(e.cfg.RespectRobots),
		"maxPages", e.cfg.MaxPages,
		"maxDepth", e.cfg.MaxDepth,
	)

	for len(c.queue) > 0 && len(c.result.Pages) < e.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return c.done(), err
		}

		item := c.queue[0]
		c.queue = c.queue[1:]

		if len(c.result.Pages) > 0 {
			if err := e.wait(ctx, c); err != nil {
				return c.done(), err
			}
		}
		if err := e.visit(ctx, c, item, handler); err != nil {
			return c.done(), err
		}
	}

	e.logger.Info("crawl finished",
		"url", start,
		"pages", len(c.result.Pages),
		"failures", len(c.result.Failures),
		"downloads", len(c.downloads.entries),
	)
	return c.done(), nil
}

func parseSeed(seed string) (*url.URL, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSeed)
	}
	if !strings.Contains(seed, "://") {
		seed = "https://" + seed
	}
	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}
	return u, nil
}

// visit loads one frontier item, runs the handler and grows the frontier.
// It returns an error only when ctx is done.
func (e *Engine) visit(ctx context.Context, c *crawl, item queueItem, handler PageHandler) error {
	pr := model.PageResult{URL: item.url, Depth: item.depth}
	logger := e.logger.With("url", item.url, "depth", item.depth)

	if u, err := url.Parse(item.url); err == nil && !c.robots.Allowed(u) {
		pr.RobotsDisallowed = true
		pr.Simulated = true
	}

	resp, err := e.navigate(ctx, item.url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if resp != nil {
			pr.Status = resp.Status
		}
		c.fail(&pr, model.FailureNavigation, err)
		c.record(&pr)
		logger.Warn("page failed", "error", err)
		return nil
	}
	pr.Status = resp.Status

	base := item.url
	if resp.URL != "" {
		base = resp.URL
		if e.redirectedToSeen(c, item.url, resp.URL) {
			logger.Debug("skipping redirect to an already visited url", "target", resp.URL)
			return nil
		}
	}
	if !isHTML(resp.MIMEType) {
		if c.downloads.isDocumentType(resp.MIMEType) {
			e.divertDocument(c, item, resp.MIMEType)
			logger.Debug("diverting document to downloads", "mimeType", resp.MIMEType)
			return nil
		}
		c.record(&pr)
		logger.Debug("skipping non-html document", "mimeType", resp.MIMEType)
		return nil
	}

	e.dismissConsent(ctx, c, &pr, logger)
	if e.cfg.Interactions {
		e.interact(ctx, c, &pr, logger)
	}

	links, err := e.collectLinks(ctx, base)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.fail(&pr, model.FailureEvaluation, err)
		logger.Warn("link extraction failed", "error", err)
	}
	if e.cfg.CheckIframes {
		links = append(links, e.frameLinks(ctx, c, &pr, base, logger)...)
	}

	var routes []string
	if !pr.Simulated && handler != nil {
		hooked := e.installRouteHook(ctx, c, &pr, logger)
		err := handler.HandlePage(ctx, e.page, &pr)
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.record(&pr)
			return ctxErr
		}
		if err != nil {
			c.fail(&pr, model.FailureEvaluation, err)
			logger.Warn("page analysis failed", "error", err)
		}
		if hooked {
			routes = e.readRoutes(ctx, c, &pr, logger)
		}
	}

	e.discover(c, &pr, base, links, routes, item.depth+1)
	c.record(&pr)
	logger.Info("page crawled",
		"status", pr.Status,
		"simulated", pr.Simulated,
		"failed", pr.Failed,
		"links", len(links),
	)
	return nil
}

func (e *Engine) navigate(ctx context.Context, target string) (*browser.Response, error) {
	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigationTimeoutDuration())
	defer cancel()

	wait := browser.WaitPolicy(e.cfg.WaitPolicy)
	if wait == "" {
		wait = browser.WaitLoad
	}
	resp, err := e.page.Navigate(navCtx, target, wait)
	if err != nil {
		if errors.Is(err, ErrNavigation) {
			return resp, err
		}
		return resp, fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: no response for %s", ErrNavigation, target)
	}
	if resp.Status >= http.StatusBadRequest {
		return resp, fmt.Errorf("%w: HTTP %d", ErrNavigation, resp.Status)
	}
	return resp, nil
}

// redirectedToSeen reports whether navigating to requested ended on a
// different URL that was already visited or queued. A new final URL is
// marked seen so that links to it are not crawled again.
func (e *Engine) redirectedToSeen(c *crawl, requested, final string) bool {
	norm, err := e.norm.normalize(final)
	if err != nil || norm == requested {
		return false
	}
	if c.seen[norm] {
		return true
	}
	c.seen[norm] = true
	return false
}

// divertDocument records a navigated URL that answered with a document
// content type as a download entry instead of a page.
func (e *Engine) divertDocument(c *crawl, item queueItem, contentType string) {
	from := item.from
	if from == "" {
		from = item.url
	}
	before := len(c.downloads.entries)
	for range c.downloads.add(from, []Link{{URL: item.url}}) {
		c.result.Summary.RecordDownload()
	}
	if len(c.downloads.entries) > before {
		c.downloads.entries[before].ContentType = mediaType(contentType)
	}
}

func isHTML(mimeType string) bool {
	return mimeType == "" || strings.Contains(strings.ToLower(mimeType), "html")
}

func (e *Engine) collectLinks(ctx context.Context, base string) ([]Link, error) {
	var snap documentSnapshot
	if err := e.page.Evaluate(ctx, documentHTMLScript.Invoke(), &snap); err != nil {
		return nil, err
	}
	if snap.URL != "" {
		base = snap.URL
	}
	links, err := ExtractLinks(base, strings.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse rendered document: %w", err)
	}
	return links, nil
}

func (e *Engine) frameLinks(ctx context.Context, c *crawl, pr *model.PageResult, base string, logger *slog.Logger) []Link {
	frames, err := e.page.Frames(ctx)
	if err != nil {
		c.note(model.FailureEvaluation, pr.URL, fmt.Errorf("list frames: %w", err))
		logger.Debug("frame listing failed", "error", err)
		return nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	var out []Link
	for _, f := range frames {
		if u := resolve(baseURL, f); u != nil {
			out = append(out, Link{URL: u.String()})
		}
	}
	return out
}

// dismissConsent clicks a cookie banner button. Not finding one is fine.
func (e *Engine) dismissConsent(ctx context.Context, c *crawl, pr *model.PageResult, logger *slog.Logger) {
	mode := e.cfg.ConsentClick
	if mode == "" || mode == config.ConsentOff {
		return
	}
	var res consentResult
	if err := e.page.Evaluate(ctx, consentScript.Invoke(string(mode), e.cfg.ConsentSelector), &res); err != nil {
		c.note(model.FailureEvaluation, pr.URL, fmt.Errorf("consent: %w", err))
		logger.Debug("consent click failed", "error", err)
		return
	}
	if res.Clicked {
		logger.Debug("consent banner dismissed", "button", res.Label)
	}
}

func (e *Engine) interact(ctx context.Context, c *crawl, pr *model.PageResult, logger *slog.Logger) {
	var clicked int
	if err := e.page.Evaluate(ctx, interactionsScript.Invoke(maxInteractions), &clicked); err != nil {
		c.note(model.FailureEvaluation, pr.URL, fmt.Errorf("interactions: %w", err))
		logger.Debug("interactions failed", "error", err)
		return
	}
	logger.Debug("menus revealed", "clicked", clicked)
}

func (e *Engine) installRouteHook(ctx context.Context, c *crawl, pr *model.PageResult, logger *slog.Logger) bool {
	if err := e.page.Evaluate(ctx, routeHookScript.Invoke(), nil); err != nil {
		c.note(model.FailureEvaluation, pr.URL, fmt.Errorf("route hook: %w", err))
		logger.Debug("route hook failed", "error", err)
		return false
	}
	return true
}

func (e *Engine) readRoutes(ctx context.Context, c *crawl, pr *model.PageResult, logger *slog.Logger) []string {
	var routes []string
	if err := e.page.Evaluate(ctx, routeReadScript.Invoke(), &routes); err != nil {
		c.note(model.FailureEvaluation, pr.URL, fmt.Errorf("read routes: %w", err))
		logger.Debug("route read failed", "error", err)
		return nil
	}
	return routes
}

// discover sorts the links of a page into documents and frontier candidates.
func (e *Engine) discover(c *crawl, pr *model.PageResult, base string, links []Link, routes []string, depth int) {
	var docs []Link
	for _, l := range links {
		u, err := url.Parse(l.URL)
		if err != nil {
			continue
		}
		if c.downloads.isDocument(u) {
			docs = append(docs, l)
			continue
		}
		e.admit(c, u, depth, pr.URL)
	}
	for range c.downloads.add(pr.URL, docs) {
		c.result.Summary.RecordDownload()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return
	}
	for _, r := range routes {
		u := resolve(baseURL, r)
		if u == nil || !c.scope.Contains(u) {
			continue
		}
		if norm, err := e.norm.normalizeURL(u); err == nil && !slices.Contains(pr.Routes, norm) {
			pr.Routes = append(pr.Routes, norm)
		}
		e.admit(c, u, depth, pr.URL)
	}
}

// admit adds u to the frontier when it is new, within depth, in scope,
// passes the path filter and is not dropped by robots.txt.
func (e *Engine) admit(c *crawl, u *url.URL, depth int, from string) {
	if depth > e.cfg.MaxDepth {
		return
	}
	norm, err := e.norm.normalizeURL(u)
	if err != nil || c.seen[norm] {
		return
	}
	if !c.scope.Contains(u) || !e.filter.allows(u) {
		return
	}
	if e.dropDisallowed(c, u) {
		e.logger.Debug("skipping url disallowed by robots.txt", "url", norm)
		return
	}
	c.seen[norm] = true
	c.queue = append(c.queue, queueItem{url: norm, depth: depth, from: from})
}

// dropDisallowed reports whether u is disallowed and must not be visited at
// all. In audit mode, and in respect mode with simulation, disallowed URLs
// are visited in simulate mode instead.
func (e *Engine) dropDisallowed(c *crawl, u *url.URL) bool {
	if c.robots.Allowed(u) {
		return false
	}
	return e.cfg.RespectRobots == config.RobotsRespect && !e.cfg.SimulateDisallowed
}

func (e *Engine) loadRobots(ctx context.Context, c *crawl) *RobotsRules {
	if e.cfg.RespectRobots == config.RobotsIgnore {
		return nil
	}
	rules, err := FetchRobots(ctx, e.client, c.seed, e.cfg.UserAgent)
	if err != nil {
		robotsURL := (&url.URL{Scheme: c.seed.Scheme, Host: c.seed.Host, Path: robotsTxtPath}).String()
		c.note(model.FailureRobots, robotsURL, err)
		e.logger.Warn("robots.txt unusable, allowing all", "url", robotsURL, "error", err)
	}
	return rules
}

func (e *Engine) seedSitemaps(ctx context.Context, c *crawl) {
	sources := c.robots.Sitemaps()
	if len(sources) == 0 {
		sources = []string{(&url.URL{Scheme: c.seed.Scheme, Host: c.seed.Host, Path: "/sitemap.xml"}).String()}
	}

	f := fetcher{client: e.client, userAgent: e.cfg.UserAgent}
	urls, errs := f.sitemapURLs(ctx, sources)
	for _, err := range errs {
		c.note(model.FailureSitemap, "", err)
		e.logger.Warn("sitemap unusable", "error", err)
	}

	before := len(c.queue)
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || c.downloads.isDocument(u) {
			continue
		}
		e.admit(c, u, 0, "")
	}
	e.logger.Debug("sitemap seeded", "entries", len(urls), "queued", len(c.queue)-before)
}

// delayBounds returns the randomized delay range. A robots.txt Crawl-delay
// larger than the configured minimum raises the lower bound.
func (e *Engine) delayBounds(crawlDelay time.Duration) (time.Duration, time.Duration) {
	lo, hi := e.cfg.Delay()
	if crawlDelay > lo {
		lo = crawlDelay
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// wait pauses for a uniformly random delay within the crawl's bounds.
func (e *Engine) wait(ctx context.Context, c *crawl) error {
	d := c.minDelay
	if c.maxDelay > c.minDelay {
		d += rand.N(c.maxDelay - c.minDelay + 1)
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
