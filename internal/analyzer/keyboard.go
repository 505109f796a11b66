package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

const screenshotMargin = 16

// focusState is what the page reports for document.activeElement.
type focusState struct {
	Selector        string       `json:"selector"`
	DOMIndex        int          `json:"domIndex"`
	Rect            browser.Rect `json:"rect"`
	OutlineStyle    string       `json:"outlineStyle"`
	OutlineWidth    float64      `json:"outlineWidth"`
	OutlineColor    string       `json:"outlineColor"`
	BoxShadow       string       `json:"boxShadow"`
	BackgroundColor string       `json:"backgroundColor"`
	TabIndex        string       `json:"tabindex"`
	Visible         bool         `json:"visible"`
}

type focusable struct {
	Selector string `json:"selector"`
	TabIndex string `json:"tabindex"`
}

// FocusStep is one Tab press recorded in the keyboard trace.
type FocusStep struct {
	Step               int          `json:"step"`
	Action             string       `json:"action"`
	Selector           string       `json:"selector"`
	DOMIndex           int          `json:"domIndex"`
	BoundingBox        browser.Rect `json:"boundingBox"`
	Visible            bool         `json:"visible"`
	IndicatorContrast  float64      `json:"indicatorContrast"`
	IndicatorAreaRatio float64      `json:"indicatorAreaRatio"`
	Rule               string       `json:"rule,omitempty"`
	Screenshot         string       `json:"screenshot,omitempty"`
	Timestamp          time.Time    `json:"timestamp"`
}

// KeyboardTrace is the ordered focus sequence of one page. It is exposed as
// result data for analyzers that depend on the keyboard analyzer.
type KeyboardTrace struct {
	URL   string      `json:"url"`
	Steps []FocusStep `json:"steps"`
}

// StepOf returns the 1-based step at which selector first received focus,
// or 0 when it never did.
func (t *KeyboardTrace) StepOf(selector string) int {
	if t == nil {
		return 0
	}
	for _, s := range t.Steps {
		if s.Selector == selector {
			return s.Step
		}
	}
	return 0
}

// Indicator describes the visible focus indicator of an element.
type Indicator struct {
	Color     string
	Thickness float64
	AreaRatio float64
	Contrast  float64
	Present   bool
}

// MeasureIndicator derives the focus indicator from outline and box-shadow.
// The outline wins when it has a width; otherwise the shadow spread is used.
// Without any indicator color the contrast is 1.
func MeasureIndicator(outlineStyle string, outlineWidth float64, outlineColor, boxShadow, background string, rect browser.Rect) Indicator {
	spread, shadowColor := parseBoxShadow(boxShadow)
	outline := outlineStyle != "none" && outlineWidth > 0

	ind := Indicator{Present: outline || (strings.TrimSpace(boxShadow) != "" && boxShadow != "none")}
	switch {
	case outline:
		ind.Color = outlineColor
		ind.Thickness = outlineWidth
	case spread > 0:
		ind.Color = shadowColor
		ind.Thickness = spread
	default:
		ind.Color = shadowColor
	}

	w, h := rect.Width, rect.Height
	if w*h > 0 && ind.Thickness > 0 {
		s := ind.Thickness
		ind.AreaRatio = ((w+2*s)*(h+2*s) - w*h) / (w * h)
	}

	ind.Contrast = 1
	if ind.Color != "" {
		bg := background
		if bg == "" {
			bg = "rgb(255, 255, 255)"
		}
		ind.Contrast = ContrastOf(ind.Color, bg)
	}
	return ind
}

// Keyboard walks the page with Tab and evaluates every focus stop.
type Keyboard struct{}

// NewKeyboard creates the keyboard analyzer.
func NewKeyboard() *Keyboard { return &Keyboard{} }

func (*Keyboard) Slug() string    { return SlugKeyboard }
func (*Keyboard) Version() string { return "1.1.0" }

// Init moves focus to the start of the document.
func (*Keyboard) Init(ctx context.Context, c *pipeline.Context) error {
	return evaluate(ctx, c, focusResetScript.Invoke(), nil)
}

// Dispose resets focus so that later analyzers start from a clean state.
func (*Keyboard) Dispose(ctx context.Context, c *pipeline.Context) error {
	return evaluate(ctx, c, focusResetScript.Invoke(), nil)
}

// Run presses Tab up to maxTabs times and records the trace.
func (a *Keyboard) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	maxTabs := c.Options.Int("maxTabs", 50)
	minArea := c.Options.Float("minAreaRatio", 0.02)
	minContrast := c.Options.Float("minContrast", 3)
	screenshots := c.Options.Bool("screenshots", true) && c.ArtifactsEnabled()

	var domOrder []focusable
	if err := evaluate(ctx, c, focusablesScript.Invoke(), &domOrder); err != nil {
		return nil, err
	}

	trace := &KeyboardTrace{URL: c.URL}
	suppressed := newSelectorSet(maxSelectors)
	weak := newSelectorSet(maxSelectors)
	hidden := newSelectorSet(maxSelectors)
	var trapped string
	var contrastSum, areaSum float64

	for i := 1; i <= maxTabs; i++ {
		if err := c.Page.PressKey(ctx, browser.KeyTab); err != nil {
			return nil, fmt.Errorf("press tab: %w", err)
		}
		var st *focusState
		if err := evaluate(ctx, c, focusStateScript.Invoke(), &st); err != nil {
			return nil, err
		}
		if st == nil {
			break
		}
		// Focus wrapped around to the first stop.
		if len(trace.Steps) > 1 && st.Selector == trace.Steps[0].Selector {
			break
		}

		ind := MeasureIndicator(st.OutlineStyle, st.OutlineWidth, st.OutlineColor, st.BoxShadow, st.BackgroundColor, st.Rect)
		step := FocusStep{
			Step:               i,
			Action:             string(browser.KeyTab),
			Selector:           st.Selector,
			DOMIndex:           st.DOMIndex,
			BoundingBox:        st.Rect,
			Visible:            st.Visible,
			IndicatorContrast:  ind.Contrast,
			IndicatorAreaRatio: ind.AreaRatio,
			Timestamp:          time.Now(),
		}
		contrastSum += ind.Contrast
		areaSum += ind.AreaRatio

		switch {
		case !st.Visible:
			step.Rule = "keyboard:focus-not-visible"
			hidden.Add(st.Selector)
		case !ind.Present:
			step.Rule = "keyboard:outline-suppressed"
			suppressed.Add(st.Selector)
		case ind.AreaRatio < minArea || ind.Contrast < minContrast:
			step.Rule = "keyboard:focus-indicator-weak"
			weak.Add(st.Selector)
		}
		if step.Rule != "" && screenshots && !st.Rect.Empty() {
			step.Screenshot = a.capture(ctx, c, i, st.Rect)
		}

		prev := ""
		if n := len(trace.Steps); n > 0 {
			prev = trace.Steps[n-1].Selector
		}
		trace.Steps = append(trace.Steps, step)

		if prev == st.Selector {
			escaped, err := a.probeBackward(ctx, c, st.Selector)
			if err != nil {
				return nil, err
			}
			if !escaped {
				trapped = st.Selector
				break
			}
		}
	}

	res := newResult()
	add := func(id, summary, details string, set *selectorSet) {
		if set.Len() == 0 {
			return
		}
		res.Findings = append(res.Findings,
			model.NewFinding(id, a.Slug(), c.URL, summary).WithDetails(details).WithSelectors(set.Items()...))
	}
	add("keyboard:focus-not-visible", "Focus not clearly visible",
		fmt.Sprintf("%d focused elements are hidden or outside the viewport", hidden.Len()), hidden)
	add("keyboard:outline-suppressed", "Outline suppressed without replacement",
		fmt.Sprintf("%d focused elements have no outline and no box-shadow", suppressed.Len()), suppressed)
	add("keyboard:focus-indicator-weak", "Focus indicator weak",
		fmt.Sprintf("%d focus indicators below contrast %.1f:1 or area ratio %.2f", weak.Len(), minContrast, minArea), weak)

	if trapped != "" {
		res.Findings = append(res.Findings,
			model.NewFinding("keyboard:focus-trap", a.Slug(), c.URL, "Keyboard focus trapped").
				WithDetails("Focus did not move after Tab and Shift+Tab").
				WithSelectors(trapped))
	}

	jumps, jumpDetails, jumpSelectors := tabOrderJumps(trace.Steps)
	if jumps > 0 {
		res.Findings = append(res.Findings,
			model.NewFinding("keyboard:tab-order-anomaly", a.Slug(), c.URL, "Unexpected tab order").
				WithDetails(strings.Join(jumpDetails, "; ")).
				WithSelectors(jumpSelectors...))
	}

	gtZero := newSelectorSet(maxSelectors)
	for _, f := range domOrder {
		if n, err := strconv.Atoi(strings.TrimSpace(f.TabIndex)); err == nil && n > 0 {
			gtZero.Add(f.Selector)
		}
	}
	add("keyboard:tabindex-gt-zero", "tabindex greater than zero",
		fmt.Sprintf("%d elements use a positive tabindex", gtZero.Len()), gtZero)

	steps := len(trace.Steps)
	res.Metrics = map[string]float64{
		"steps":                 float64(steps),
		"weakIndicators":        float64(weak.Len()),
		"avgIndicatorContrast":  0,
		"avgIndicatorAreaRatio": 0,
		"tabOrderJumps":         float64(jumps),
		"tabindexGtZero":        float64(gtZero.Len()),
	}
	if steps > 0 {
		res.Metrics["avgIndicatorContrast"] = contrastSum / float64(steps)
		res.Metrics["avgIndicatorAreaRatio"] = areaSum / float64(steps)
	}
	res.Data = trace
	saveArtifact(c, res, "trace", "keyboard_trace.json", trace)
	return res, nil
}

// probeBackward presses Shift+Tab and reports whether focus left selector.
func (a *Keyboard) probeBackward(ctx context.Context, c *pipeline.Context, selector string) (bool, error) {
	if err := c.Page.PressKey(ctx, browser.KeyShiftTab); err != nil {
		return false, fmt.Errorf("press shift+tab: %w", err)
	}
	var after string
	if err := evaluate(ctx, c, activeElementScript.Invoke(), &after); err != nil {
		return false, err
	}
	return after != "" && after != selector, nil
}

func (a *Keyboard) capture(ctx context.Context, c *pipeline.Context, step int, rect browser.Rect) string {
	png, err := c.Page.Screenshot(ctx, rect.Expand(screenshotMargin))
	if err != nil {
		c.Logger.Debug("focus screenshot failed", "step", step, "error", err)
		return ""
	}
	path, err := c.SaveBlob(fmt.Sprintf("step-%02d.png", step), png)
	if err != nil {
		c.Logger.Warn("failed to save focus screenshot", "step", step, "error", err)
		return ""
	}
	return path
}

// tabOrderJumps counts regressions of the DOM index along the focus trace.
// Steps whose element is not in the focusable list are ignored.
func tabOrderJumps(steps []FocusStep) (int, []string, []string) {
	var details []string
	sels := newSelectorSet(5)
	last, lastSel := -1, ""
	jumps := 0
	for _, s := range steps {
		if s.DOMIndex < 0 {
			continue
		}
		if s.DOMIndex < last {
			jumps++
			details = append(details, fmt.Sprintf("Focus moves from %s (%d) to %s (%d)", lastSel, last, s.Selector, s.DOMIndex))
			sels.Add(s.Selector)
		}
		last, lastSel = s.DOMIndex, s.Selector
	}
	return jumps, details, sels.Items()
}
