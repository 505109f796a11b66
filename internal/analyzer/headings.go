package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

// Heading is one entry of the document outline.
type Heading struct {
	Level       int    `json:"level"`
	Text        string `json:"text"`
	ID          string `json:"id,omitempty"`
	RoleHeading bool   `json:"roleHeading,omitempty"`
	Selector    string `json:"selector"`
}

// Headings checks the heading outline.
type Headings struct{}

// NewHeadings creates the headings analyzer.
func NewHeadings() *Headings { return &Headings{} }

func (*Headings) Slug() string    { return SlugHeadings }
func (*Headings) Version() string { return "1.0.0" }

// Run builds the outline and reports structural problems.
func (a *Headings) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	var raw []Heading
	if err := evaluate(ctx, c, headingsScript.Invoke(), &raw); err != nil {
		return nil, err
	}
	outline := make([]Heading, 0, len(raw))
	for _, h := range raw {
		if h.Level < 1 || h.Level > 6 {
			continue
		}
		h.Text = strings.TrimSpace(h.Text)
		outline = append(outline, h)
	}

	res := newResult()
	finding := func(id, summary string, selectors ...string) {
		res.Findings = append(res.Findings,
			model.NewFinding(id, a.Slug(), c.URL, summary).WithSelectors(selectors...))
	}

	var h1 []string
	maxDepth := 0
	for _, h := range outline {
		if h.Level == 1 {
			h1 = append(h1, h.Selector)
		}
		maxDepth = max(maxDepth, h.Level)
	}
	switch {
	case len(h1) == 0:
		finding("headings:missing-h1", "Missing H1")
	case len(h1) > 1:
		finding("headings:multiple-h1", "Multiple H1 elements", h1[:min(len(h1), 5)]...)
	}

	jumps := 0
	for i := 1; i < len(outline); i++ {
		prev, cur := outline[i-1], outline[i]
		if cur.Level-prev.Level > 1 {
			jumps++
			finding("headings:jump-level",
				fmt.Sprintf("Heading level jumps from h%d to h%d", prev.Level, cur.Level),
				prev.Selector, cur.Selector)
		}
	}
	for _, h := range outline {
		if h.Text == "" {
			finding("headings:empty-text", "Empty heading text", h.Selector)
		}
	}

	res.Stats = map[string]any{
		"hasH1":      len(h1) > 0,
		"multipleH1": len(h1) > 1,
		"maxDepth":   maxDepth,
		"jumps":      jumps,
	}
	saveArtifact(c, res, "outline", "headings_outline.json", map[string]any{
		"outline": outline,
		"stats":   res.Stats,
	})
	return res, nil
}
