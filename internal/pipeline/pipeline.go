package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

// Pipeline runs an ordered list of analyzers against one page at a time.
type Pipeline struct {
	analyzers []Analyzer
	logger    *slog.Logger
	options   map[string]config.Options
	artifacts *ArtifactStore
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithModuleOptions sets the per-module options handed to analyzers.
func WithModuleOptions(options map[string]config.Options) Option {
	return func(p *Pipeline) {
		p.options = options
	}
}

// WithArtifacts enables artifact storage.
func WithArtifacts(store *ArtifactStore) Option {
	return func(p *Pipeline) {
		p.artifacts = store
	}
}

// New creates a pipeline for the given analyzers, which must already be in
// execution order (see Registry.Select).
func New(analyzers []Analyzer, opts ...Option) *Pipeline {
	p := &Pipeline{
		analyzers: analyzers,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Slugs returns the analyzer slugs in execution order.
func (p *Pipeline) Slugs() []string {
	names := make([]string, len(p.analyzers))
	for i, a := range p.analyzers {
		names[i] = a.Slug()
	}
	return names
}

// Analyzers returns the analyzers in execution order.
func (p *Pipeline) Analyzers() []Analyzer {
	return append([]Analyzer(nil), p.analyzers...)
}

// Input identifies the page to analyze.
type Input struct {
	Page  browser.Page
	URL   string
	Depth int
}

// Outcome is the result of running the pipeline on one page.
type Outcome struct {
	// Results holds one entry per analyzer that completed, in execution order.
	Results []model.AnalyzerResult

	// Failures holds one entry per analyzer that failed.
	Failures []model.Failure
}

// Execute runs every analyzer on the page in order.
// A failing or panicking analyzer is recorded and the next one still runs.
// The only error returned is the context error when the run is cancelled;
// the outcome collected so far is returned alongside it.
func (p *Pipeline) Execute(ctx context.Context, in Input) (*Outcome, error) {
	out := &Outcome{}
	prior := make(map[string]*model.AnalyzerResult, len(p.analyzers))

	for _, a := range p.analyzers {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"module", a.Slug(),
				"url", in.URL,
				"reason", ctx.Err(),
			)
			return out, ctx.Err()
		default:
		}

		logger := p.logger.With("module", a.Slug(), "url", in.URL)
		if err := checkPrerequisites(a, prior); err != nil {
			logger.Warn("skipping analyzer", "error", err)
			out.Failures = append(out.Failures, analyzerFailure(a, in.URL, err))
			continue
		}

		logger.Debug("executing analyzer")
		mctx := &Context{
			Page:      in.Page,
			URL:       in.URL,
			Depth:     in.Depth,
			Logger:    logger,
			Options:   p.options[a.Slug()],
			module:    a.Slug(),
			prior:     prior,
			artifacts: p.artifacts,
		}

		res, err := p.run(ctx, a, mctx)
		if err != nil {
			logger.Error("analyzer failed", "error", err)
			out.Failures = append(out.Failures, analyzerFailure(a, in.URL, err))
			continue
		}

		finalize(a, in.URL, res)
		out.Results = append(out.Results, *res)
		prior[a.Slug()] = res
		logger.Debug("analyzer completed", "findings", len(res.Findings))
	}

	return out, nil
}

// run executes Init, Run and Dispose for one analyzer and converts panics
// into errors.
func (p *Pipeline) run(ctx context.Context, a Analyzer, c *Context) (res *model.AnalyzerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %v", ErrAnalyzerPanic, r)
		}
	}()

	if ini, ok := a.(Initializer); ok {
		if err := ini.Init(ctx, c); err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
	}
	if disp, ok := a.(Disposer); ok {
		defer func() {
			if derr := disp.Dispose(ctx, c); derr != nil {
				c.Logger.Warn("dispose failed", "error", derr)
			}
		}()
	}

	res, err = a.Run(ctx, c)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &model.AnalyzerResult{}
	}
	return res, nil
}

func checkPrerequisites(a Analyzer, prior map[string]*model.AnalyzerResult) error {
	var errs []error
	for _, req := range RequiresOf(a) {
		if _, ok := prior[req]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrPrerequisiteMissing, req))
		}
	}
	return errors.Join(errs...)
}

// finalize stamps module metadata and the page URL on the result.
func finalize(a Analyzer, pageURL string, res *model.AnalyzerResult) {
	res.Module = a.Slug()
	res.Version = a.Version()
	if res.Findings == nil {
		res.Findings = []model.Finding{}
	}
	for i := range res.Findings {
		f := &res.Findings[i]
		if f.Module == "" {
			f.Module = a.Slug()
		}
		if f.PageURL == "" {
			f.PageURL = pageURL
		}
	}
}

func analyzerFailure(a Analyzer, pageURL string, err error) model.Failure {
	f := model.NewFailure(model.FailureAnalyzer, pageURL, err)
	f.Module = a.Slug()
	return f
}
