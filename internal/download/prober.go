package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

// DefaultTimeout bounds a single probe request.
const DefaultTimeout = 15 * time.Second

// legacyNote explains manual-review entries.
const legacyNote = "legacy binary format cannot be checked automatically; convert to DOCX, PPTX, XLSX or tagged PDF"

// Prober HEAD-probes discovered documents.
//
// Design decision: We probe with HEAD instead of downloading because:
//  1. Content type and size are enough to decide whether a document is reachable and in limits
//  2. Large documents are not pulled from the audited server
type Prober struct {
	client       *http.Client
	userAgent    string
	timeout      time.Duration
	maxBytes     int64
	contentTypes []string
	concurrency  int
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		if client != nil {
			p.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProber creates a prober from the download configuration. Zero values
// fall back to the defaults; a RequestsPerSecond of zero or less disables
// rate limiting.
func NewProber(cfg config.Downloads, opts ...Option) *Prober {
	p := &Prober{
		client:       http.DefaultClient,
		userAgent:    config.DefaultUserAgent,
		timeout:      DefaultTimeout,
		maxBytes:     cfg.MaxBytes,
		contentTypes: cfg.ContentTypes,
		concurrency:  cfg.Concurrency,
		logger:       slog.New(slog.DiscardHandler),
	}
	if p.maxBytes <= 0 {
		p.maxBytes = config.DefaultDownloadMaxBytes
	}
	if len(p.contentTypes) == 0 {
		p.contentTypes = config.DefaultDownloadContentTypes()
	}
	if p.concurrency <= 0 {
		p.concurrency = config.DefaultDownloadConcurrency
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	p.limiter = rate.NewLimiter(limit, 1)

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe checks every entry and returns labeled copies in input order.
// Entries that could not be probed are marked skipped with a note and are
// reported as download failures. The error is non-nil only when ctx is done.
func (p *Prober) Probe(ctx context.Context, entries []model.DownloadEntry) ([]model.DownloadEntry, []model.Failure, error) {
	out := make([]model.DownloadEntry, len(entries))
	failures := make([]*model.Failure, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, entry := range entries {
		g.Go(func() error {
			entry.Label = Label(entry.URL, entry.Label)

			if IsLegacy(entry.URL) {
				entry.Status = model.DownloadManualReview
				entry.Note = legacyNote
				out[i] = entry
				return nil
			}

			if err := p.limiter.Wait(gctx); err != nil {
				out[i] = entry
				return err
			}

			if err := p.probe(gctx, &entry); err != nil {
				if gctx.Err() != nil {
					out[i] = entry
					return gctx.Err()
				}
				entry.Status = model.DownloadSkipped
				entry.Note = err.Error()
				f := model.NewFailure(model.FailureDownload, entry.URL, err)
				failures[i] = &f
				p.logger.Debug("document skipped", "url", entry.URL, "error", err)
			}
			out[i] = entry
			return nil
		})
	}
	err := g.Wait()

	var fs []model.Failure
	for _, f := range failures {
		if f != nil {
			fs = append(fs, *f)
		}
	}
	if err != nil {
		return out, fs, err
	}
	return out, fs, ctx.Err()
}

var (
	errTooLarge    = errors.New("document too large")
	errContentType = errors.New("unexpected content type")
	errStatus      = errors.New("unexpected status")
)

// probe sends the HEAD request and fills content type, size and status.
func (p *Prober) probe(ctx context.Context, entry *model.DownloadEntry) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, entry.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req) //nolint:gosec // URL discovered on the audited site
	if err != nil {
		return fmt.Errorf("HEAD: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: HTTP %d", errStatus, resp.StatusCode)
	}

	mediaType := resp.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	entry.ContentType = strings.ToLower(mediaType)
	if resp.ContentLength > 0 {
		entry.SizeBytes = resp.ContentLength
	}

	if !slices.Contains(p.contentTypes, entry.ContentType) {
		return fmt.Errorf("%w: %q", errContentType, entry.ContentType)
	}
	if entry.SizeBytes > p.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", errTooLarge, entry.SizeBytes, p.maxBytes)
	}
	entry.Status = model.DownloadProbed
	return nil
}
