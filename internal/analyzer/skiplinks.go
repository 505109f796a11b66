package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

// fallbackTabs is the number of Tab presses used when no keyboard trace exists.
const fallbackTabs = 10

var (
	skipText  = regexp.MustCompile(`skip|jump|bypass|sprung|zum inhalt|zum content`)
	skipClass = regexp.MustCompile(`skip|visually-hidden|sr-only`)
	skipID    = regexp.MustCompile(`skip`)
)

type fragmentLink struct {
	Text      string `json:"text"`
	Href      string `json:"href"`
	Selector  string `json:"selector"`
	ClassName string `json:"className"`
	ID        string `json:"id"`
}

// IsSkipLinkCandidate reports whether an in-page link looks like a skip link.
func IsSkipLinkCandidate(text, className, id string) bool {
	return skipText.MatchString(strings.ToLower(text)) ||
		skipClass.MatchString(strings.ToLower(className)) ||
		skipID.MatchString(strings.ToLower(id))
}

type skipSnapshot struct {
	Links   []fragmentLink `json:"links"`
	Targets []string       `json:"targets"`
}

type activation struct {
	Found         bool `json:"found"`
	Focusable     bool `json:"focusable"`
	FocusTransfer bool `json:"focusTransfer"`
}

// SkipLinkInfo is one entry of the skip link overview artifact.
type SkipLinkInfo struct {
	Text          string `json:"text"`
	Href          string `json:"href"`
	Selector      string `json:"selector"`
	StepIndex     int    `json:"stepIndex"`
	TargetExists  bool   `json:"targetExists"`
	Focusable     bool   `json:"focusable"`
	FocusTransfer bool   `json:"focusTransfer"`
}

// SkipLinks verifies bypass links using the keyboard trace.
type SkipLinks struct{}

// NewSkipLinks creates the skip link analyzer.
func NewSkipLinks() *SkipLinks { return &SkipLinks{} }

func (*SkipLinks) Slug() string       { return SlugSkipLinks }
func (*SkipLinks) Version() string    { return "1.0.0" }
func (*SkipLinks) Requires() []string { return []string{SlugKeyboard} }

// Run finds skip link candidates and checks their target and position.
func (a *SkipLinks) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	maxStep := c.Options.Int("maxStep", 3)

	trace, err := a.trace(ctx, c)
	if err != nil {
		return nil, err
	}

	var snap skipSnapshot
	if err := evaluate(ctx, c, skipLinksScript.Invoke(), &snap); err != nil {
		return nil, err
	}
	targets := make(map[string]bool, len(snap.Targets))
	for _, t := range snap.Targets {
		targets[strings.ToLower(t)] = true
	}

	res := newResult()
	finding := func(id, summary, details string, selectors ...string) {
		res.Findings = append(res.Findings,
			model.NewFinding(id, a.Slug(), c.URL, summary).WithDetails(details).WithSelectors(selectors...))
	}

	var overview []SkipLinkInfo
	var order []string
	byTarget := make(map[string][]string)
	valid, late, missing := 0, 0, 0

	for _, l := range snap.Links {
		if !IsSkipLinkCandidate(l.Text, l.ClassName, l.ID) {
			continue
		}
		hash := strings.ToLower(strings.TrimPrefix(l.Href, "#"))
		info := SkipLinkInfo{
			Text:      l.Text,
			Href:      l.Href,
			Selector:  l.Selector,
			StepIndex: trace.StepOf(l.Selector),
		}
		info.TargetExists = hash != "" && targets[hash]

		if !info.TargetExists {
			missing++
			finding("skiplinks:target-missing", "Skip link target missing",
				fmt.Sprintf("Target %s does not exist", l.Href), l.Selector)
		} else {
			var act activation
			call := skipLinkActivateScript.Invoke(map[string]string{"selector": l.Selector, "hash": hash})
			if err := evaluate(ctx, c, call, &act); err != nil {
				return nil, err
			}
			info.Focusable = act.Focusable
			info.FocusTransfer = act.FocusTransfer

			if info.StepIndex == 0 || info.StepIndex > maxStep {
				late++
				details := "Skip link never received keyboard focus"
				if info.StepIndex > 0 {
					details = fmt.Sprintf("Skip link reached at focus step %d, expected within %d", info.StepIndex, maxStep)
				}
				finding("skiplinks:late", "Skip link late in focus order", details, l.Selector)
			} else {
				valid++
			}
			if !act.Focusable {
				finding("skiplinks:target-not-focusable", "Skip link target not focusable",
					`Give the target tabindex="-1"`, l.Selector)
			}
			if !act.FocusTransfer {
				finding("skiplinks:no-focus-transfer", "Focus does not move to skip link target",
					"After activation focus stays outside the target", l.Selector)
			}
		}

		overview = append(overview, info)
		if hash != "" {
			if _, ok := byTarget[hash]; !ok {
				order = append(order, hash)
			}
			byTarget[hash] = append(byTarget[hash], l.Selector)
		}
	}

	for _, hash := range order {
		sels := byTarget[hash]
		if len(sels) > 1 {
			finding("skiplinks:redundant", "Multiple skip links to the same target",
				fmt.Sprintf("%d skip links point to #%s", len(sels), hash), sels[:min(len(sels), maxSelectors)]...)
		}
	}
	if len(overview) == 0 {
		finding("skiplinks:missing", "No skip link present",
			"The page offers no way to bypass repeated blocks")
	}

	res.Stats = map[string]any{
		"total":         len(overview),
		"valid":         valid,
		"late":          late,
		"targetMissing": missing,
	}
	saveArtifact(c, res, "overview", "skiplinks_overview.json", overview)
	return res, nil
}

// trace returns the keyboard trace of this page. Without a usable trace it
// records a short one by pressing Tab.
func (a *SkipLinks) trace(ctx context.Context, c *pipeline.Context) (*KeyboardTrace, error) {
	if prior, ok := c.Prior(SlugKeyboard); ok {
		if t, ok := prior.Data.(*KeyboardTrace); ok && len(t.Steps) > 0 {
			return t, nil
		}
	}

	c.Logger.Debug("no keyboard trace, recording fallback trace")
	if err := evaluate(ctx, c, focusResetScript.Invoke(), nil); err != nil {
		return nil, err
	}
	t := &KeyboardTrace{URL: c.URL}
	for i := 1; i <= fallbackTabs; i++ {
		if err := c.Page.PressKey(ctx, browser.KeyTab); err != nil {
			return nil, fmt.Errorf("press tab: %w", err)
		}
		var sel string
		if err := evaluate(ctx, c, activeElementScript.Invoke(), &sel); err != nil {
			return nil, err
		}
		if sel == "" {
			break
		}
		t.Steps = append(t.Steps, FocusStep{Step: i, Action: string(browser.KeyTab), Selector: sel, DOMIndex: -1})
	}
	return t, nil
}
