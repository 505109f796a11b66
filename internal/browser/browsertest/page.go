// Package browsertest provides a scripted browser.Page for tests.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nao1215/a11yscan/internal/browser"
)

// ErrNoHandler is returned by Evaluate for scripts without a handler.
var ErrNoHandler = errors.New("browsertest: no handler for script")

// ScriptFunc answers an in-page call. The returned value is JSON round
// tripped into the caller's out value, like a real browser result.
type ScriptFunc func(args []any) (any, error)

// Page is a fake browser.Page. Handlers are looked up by script name.
// The zero value is usable; unknown scripts fail with ErrNoHandler.
type Page struct {
	// Scripts maps script names to handlers.
	Scripts map[string]ScriptFunc

	// NavigateFunc answers navigations. When nil every navigation succeeds with status 200.
	NavigateFunc func(url string) (*browser.Response, error)

	// KeyFunc is called for every key press.
	KeyFunc func(key browser.Key) error

	// FrameURLs is returned by Frames.
	FrameURLs []string

	// ScreenshotData is returned by Screenshot.
	ScreenshotData []byte

	mu          sync.Mutex
	navigations []string
	calls       []string
	keys        []browser.Key
	current     string
}

var _ browser.Page = (*Page)(nil)

// Handle registers a handler for the script name and returns the page.
func (p *Page) Handle(name string, fn ScriptFunc) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Scripts == nil {
		p.Scripts = make(map[string]ScriptFunc)
	}
	p.Scripts[name] = fn
	return p
}

// Returns registers a handler that always answers v.
func (p *Page) Returns(name string, v any) *Page {
	return p.Handle(name, func([]any) (any, error) { return v, nil })
}

// Navigate implements browser.Page.
func (p *Page) Navigate(ctx context.Context, url string, _ browser.WaitPolicy) (*browser.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	p.current = url
	fn := p.NavigateFunc
	p.mu.Unlock()

	if fn == nil {
		return &browser.Response{URL: url, Status: 200, MIMEType: "text/html"}, nil
	}
	return fn(url)
}

// Evaluate implements browser.Page.
func (p *Page) Evaluate(ctx context.Context, call browser.Call, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := call.Expression(); err != nil {
		return err
	}

	p.mu.Lock()
	p.calls = append(p.calls, call.Script.Name)
	fn, ok := p.Scripts[call.Script.Name]
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w %q", ErrNoHandler, call.Script.Name)
	}

	// Arguments cross the boundary as JSON, so handlers see decoded values.
	args, err := roundTripArgs(call.Args)
	if err != nil {
		return err
	}

	v, err := fn(args)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", browser.ErrEvaluation, call.Script.Name, err)
	}
	if out == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func roundTripArgs(in []any) ([]any, error) {
	if len(in) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out []any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PressKey implements browser.Page.
func (p *Page) PressKey(ctx context.Context, key browser.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.keys = append(p.keys, key)
	fn := p.KeyFunc
	p.mu.Unlock()

	if fn != nil {
		return fn(key)
	}
	return nil
}

// Frames implements browser.Page.
func (p *Page) Frames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), p.FrameURLs...), nil
}

// Screenshot implements browser.Page.
func (p *Page) Screenshot(ctx context.Context, _ browser.Rect) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.ScreenshotData == nil {
		return []byte{0x89, 'P', 'N', 'G'}, nil
	}
	return p.ScreenshotData, nil
}

// Navigations returns the visited URLs in order.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Calls returns the names of evaluated scripts in order.
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Keys returns the pressed keys in order.
func (p *Page) Keys() []browser.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.Key(nil), p.keys...)
}

// Current returns the URL of the last navigation.
func (p *Page) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
