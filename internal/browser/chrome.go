package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	// networkQuietPeriod is how long no request may be in flight before the
	// network counts as idle.
	networkQuietPeriod = 500 * time.Millisecond

	// networkPollInterval is the polling interval of the idle check.
	networkPollInterval = 100 * time.Millisecond
)

// ChromeOption configures a Chrome page.
type ChromeOption func(*Chrome)

// WithExecPath sets the browser executable. Empty means auto-detect.
func WithExecPath(path string) ChromeOption {
	return func(c *Chrome) {
		c.execPath = path
	}
}

// WithHeadless controls headless mode. Default is true.
func WithHeadless(headless bool) ChromeOption {
	return func(c *Chrome) {
		c.headless = headless
	}
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) ChromeOption {
	return func(c *Chrome) {
		c.userAgent = ua
	}
}

// WithExtraHeaders sends the headers with every request of the tab.
// A "Cookie" entry authenticates the session for sites behind a login.
func WithExtraHeaders(headers map[string]string) ChromeOption {
	return func(c *Chrome) {
		c.headers = headers
	}
}

// WithViewport sets the window size.
func WithViewport(width, height int) ChromeOption {
	return func(c *Chrome) {
		c.width = width
		c.height = height
	}
}

// WithLogger sets the logger for browser events.
func WithLogger(logger *slog.Logger) ChromeOption {
	return func(c *Chrome) {
		c.logger = logger
	}
}

// Chrome is a Page backed by a Chrome tab driven over the DevTools protocol.
//
// Design decision: One Chrome value owns exactly one tab for the whole
// crawl. The crawl loop is sequential, so there is never more than one
// operation in flight and no per-call tab management is needed.
type Chrome struct {
	execPath  string
	headless  bool
	userAgent string
	headers   map[string]string
	width     int
	height    int
	logger    *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	lastBusy time.Time
}

// NewChrome starts a browser and opens a tab.
// The browser lives until Close is called or parent is cancelled.
func NewChrome(parent context.Context, opts ...ChromeOption) (*Chrome, error) {
	c := &Chrome{
		headless: true,
		width:    1280,
		height:   900,
		logger:   slog.Default(),
		inflight: make(map[network.RequestID]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", c.headless),
		chromedp.WindowSize(c.width, c.height),
	)
	if c.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.execPath))
	}
	if c.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(c.userAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			c.logger.Debug("devtools error", "message", fmt.Sprintf(format, args...))
		}),
	)
	c.ctx = tabCtx
	c.cancel = cancel
	c.allocCancel = allocCancel

	chromedp.ListenTarget(tabCtx, c.trackNetwork)

	setup := []chromedp.Action{network.Enable()}
	if len(c.headers) > 0 {
		h := make(network.Headers, len(c.headers))
		for k, v := range c.headers {
			h[k] = v
		}
		setup = append(setup, network.SetExtraHTTPHeaders(h))
	}
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return c, nil
}

// Close shuts down the tab and the browser process.
func (c *Chrome) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}

// Navigate loads url. With WaitNetworkIdle it additionally waits until no
// request has been in flight for a short quiet period.
func (c *Chrome) Navigate(ctx context.Context, url string, wait WaitPolicy) (*Response, error) {
	c.resetNetwork()

	runCtx, cancel := c.derive(ctx)
	defer cancel()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}

	if wait == WaitNetworkIdle {
		if err := c.waitNetworkIdle(runCtx); err != nil {
			return nil, fmt.Errorf("%w: %s: waiting for network idle: %w", ErrNavigation, url, err)
		}
	}

	out := &Response{URL: url}
	if resp != nil {
		out.URL = resp.URL
		out.Status = int(resp.Status)
		out.MIMEType = resp.MimeType
	}
	return out, nil
}

// Evaluate runs call and decodes its JSON result into out.
func (c *Chrome) Evaluate(ctx context.Context, call Call, out any) error {
	expr, err := call.Expression()
	if err != nil {
		return err
	}

	runCtx, cancel := c.derive(ctx)
	defer cancel()

	action := chromedp.Evaluate(expr, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	})
	if err := chromedp.Run(runCtx, action); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEvaluation, call.Script.Name, err)
	}
	return nil
}

// PressKey dispatches key to the focused element.
func (c *Chrome) PressKey(ctx context.Context, key Key) error {
	runCtx, cancel := c.derive(ctx)
	defer cancel()

	var action chromedp.Action
	switch key {
	case KeyTab:
		action = chromedp.KeyEvent(kb.Tab)
	case KeyShiftTab:
		action = chromedp.KeyEvent(kb.Tab, chromedp.KeyModifiers(input.ModifierShift))
	case KeyEnter:
		action = chromedp.KeyEvent(kb.Enter)
	case KeyEscape:
		action = chromedp.KeyEvent(kb.Escape)
	default:
		return fmt.Errorf("unsupported key %q", key)
	}
	return chromedp.Run(runCtx, action)
}

// Frames returns the URLs of all nested frames.
func (c *Chrome) Frames(ctx context.Context) ([]string, error) {
	runCtx, cancel := c.derive(ctx)
	defer cancel()

	var urls []string
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		urls = collectFrameURLs(tree.ChildFrames, urls)
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame tree: %w", err)
	}
	return urls, nil
}

func collectFrameURLs(trees []*page.FrameTree, urls []string) []string {
	for _, t := range trees {
		if t == nil {
			continue
		}
		if f := t.Frame; f != nil && frameURL(f) != "" {
			urls = append(urls, frameURL(f))
		}
		urls = collectFrameURLs(t.ChildFrames, urls)
	}
	return urls
}

func frameURL(f *cdp.Frame) string {
	if f.URLFragment != "" {
		return f.URL + f.URLFragment
	}
	return f.URL
}

// Screenshot captures clip as PNG.
func (c *Chrome) Screenshot(ctx context.Context, clip Rect) ([]byte, error) {
	if clip.Empty() {
		return nil, fmt.Errorf("empty clip rectangle")
	}

	runCtx, cancel := c.derive(ctx)
	defer cancel()

	var buf []byte
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			WithClip(&page.Viewport{
				X:      clip.X,
				Y:      clip.Y,
				Width:  clip.Width,
				Height: clip.Height,
				Scale:  1,
			}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// derive returns a context that carries the tab and ends when either the
// tab or the caller's ctx ends.
func (c *Chrome) derive(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(c.ctx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		prev := cancel
		cancel = func() {
			cancelDeadline()
			prev()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (c *Chrome) trackNetwork(ev any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		c.inflight[e.RequestID] = struct{}{}
		c.lastBusy = time.Now()
	case *network.EventLoadingFinished:
		delete(c.inflight, e.RequestID)
		c.lastBusy = time.Now()
	case *network.EventLoadingFailed:
		delete(c.inflight, e.RequestID)
		c.lastBusy = time.Now()
	}
}

func (c *Chrome) resetNetwork() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.inflight)
	c.lastBusy = time.Now()
}

func (c *Chrome) networkIdle(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight) == 0 && now.Sub(c.lastBusy) >= networkQuietPeriod
}

func (c *Chrome) waitNetworkIdle(ctx context.Context) error {
	ticker := time.NewTicker(networkPollInterval)
	defer ticker.Stop()

	for {
		if c.networkIdle(time.Now()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
