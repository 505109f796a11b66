package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// WaitPolicy decides when a navigation counts as finished.
type WaitPolicy string

const (
	// WaitLoad waits for the load event.
	WaitLoad WaitPolicy = "load"
	// WaitDOMContentLoaded waits for the DOMContentLoaded event.
	WaitDOMContentLoaded WaitPolicy = "domcontentloaded"
	// WaitNetworkIdle waits for the load event and then for a quiet network.
	WaitNetworkIdle WaitPolicy = "networkidle"
)

// Key is a keyboard input understood by PressKey.
type Key string

const (
	KeyTab      Key = "Tab"
	KeyShiftTab Key = "Shift+Tab"
	KeyEnter    Key = "Enter"
	KeyEscape   Key = "Escape"
)

// Response describes the main document response of a navigation.
type Response struct {
	URL      string `json:"url"`
	Status   int    `json:"status"`
	MIMEType string `json:"mimeType"`
}

// Rect is a clip rectangle in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Expand grows the rectangle by margin on every side, clamped at the origin.
func (r Rect) Expand(margin float64) Rect {
	x := max(0, r.X-margin)
	y := max(0, r.Y-margin)
	return Rect{
		X:      x,
		Y:      y,
		Width:  r.X + r.Width + margin - x,
		Height: r.Y + r.Height + margin - y,
	}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Script is a named JavaScript function expression, e.g. "(opts) => {...}".
// The name identifies the script in logs, errors and test fakes.
type Script struct {
	Name   string
	Source string
}

// NewScript creates a script. The source is trimmed.
func NewScript(name, source string) Script {
	return Script{Name: name, Source: strings.TrimSpace(source)}
}

// Call is a typed in-page function invocation. Args are JSON encoded and
// passed positionally; the function result is JSON decoded into the out
// value given to Page.Evaluate.
type Call struct {
	Script Script
	Args   []any
}

// Invoke builds a Call of s with the given arguments.
func (s Script) Invoke(args ...any) Call {
	return Call{Script: s, Args: args}
}

// Expression renders the call as a JavaScript expression.
func (c Call) Expression() (string, error) {
	if c.Script.Source == "" {
		return "", fmt.Errorf("%w: script %q has no source", ErrInvalidScript, c.Script.Name)
	}
	parts := make([]string, 0, len(c.Args))
	for i, arg := range c.Args {
		data, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("%w: argument %d of %s: %v", ErrInvalidScript, i, c.Script.Name, err)
		}
		parts = append(parts, string(data))
	}
	return "(" + c.Script.Source + ")(" + strings.Join(parts, ", ") + ")", nil
}

// Page is a loaded browser tab. Every method blocks until the browser
// answers or ctx is done. Implementations are not safe for concurrent use;
// the crawl loop owns the page exclusively.
type Page interface {
	// Navigate loads url and waits according to wait.
	Navigate(ctx context.Context, url string, wait WaitPolicy) (*Response, error)

	// Evaluate runs call in the page and decodes the result into out.
	// out may be nil when the result is not needed.
	Evaluate(ctx context.Context, call Call, out any) error

	// PressKey dispatches a key press to the focused element.
	PressKey(ctx context.Context, key Key) error

	// Frames returns the URLs of all child frames of the current document.
	Frames(ctx context.Context) ([]string, error)

	// Screenshot captures the given region as PNG.
	Screenshot(ctx context.Context, clip Rect) ([]byte, error)
}

var (
	// ErrInvalidScript is returned when a call cannot be rendered.
	ErrInvalidScript = errors.New("invalid script call")

	// ErrEvaluation is returned when an in-page script throws.
	ErrEvaluation = errors.New("script evaluation failed")

	// ErrNavigation is returned when a page cannot be loaded.
	ErrNavigation = errors.New("navigation failed")
)
