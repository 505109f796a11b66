package analyzer

import (
	"context"
	"fmt"
	"slices"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

// Module slugs.
const (
	SlugContrast  = "text-contrast"
	SlugKeyboard  = "keyboard"
	SlugLandmarks = "landmarks"
	SlugLinks     = "links"
	SlugForms     = "forms"
	SlugHeadings  = "headings"
	SlugSkipLinks = "skiplinks"
	SlugImages    = "images"
	SlugMetaDoc   = "meta-doc"
	SlugDOMAria   = "dom-aria"
)

// maxSelectors caps the selectors attached to one aggregated finding.
const maxSelectors = 20

// All returns a fresh instance of every built-in analyzer in registration order.
func All() []pipeline.Analyzer {
	return []pipeline.Analyzer{
		NewContrast(),
		NewKeyboard(),
		NewLandmarks(),
		NewLinks(),
		NewForms(),
		NewHeadings(),
		NewSkipLinks(),
		NewImages(),
		NewMetaDoc(),
		NewDOMAria(),
	}
}

// NewRegistry builds a registry holding all built-in analyzers.
func NewRegistry() (*pipeline.Registry, error) {
	r := pipeline.NewRegistry()
	for _, a := range All() {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// evaluate runs a script and wraps failures with the script name.
func evaluate(ctx context.Context, c *pipeline.Context, call browser.Call, out any) error {
	if err := c.Page.Evaluate(ctx, call, out); err != nil {
		return fmt.Errorf("%s: %w", call.Script.Name, err)
	}
	return nil
}

// saveArtifact persists v and records it on res. Write failures are logged;
// a missing artifact never fails the analysis.
func saveArtifact(c *pipeline.Context, res *model.AnalyzerResult, key, name string, v any) {
	path, err := c.SaveArtifact(name, v)
	if err != nil {
		c.Logger.Warn("failed to save artifact", "artifact", name, "error", err)
		return
	}
	res.AddArtifact(key, path)
}

// selectorSet collects unique selectors in insertion order up to a limit.
type selectorSet struct {
	limit int
	seen  map[string]bool
	list  []string
	count int
}

func newSelectorSet(limit int) *selectorSet {
	return &selectorSet{limit: limit, seen: make(map[string]bool)}
}

// Add records sel. It returns false when sel was already present.
func (s *selectorSet) Add(sel string) bool {
	if s.seen[sel] {
		return false
	}
	s.seen[sel] = true
	s.count++
	if len(s.list) < s.limit {
		s.list = append(s.list, sel)
	}
	return true
}

func (s *selectorSet) Len() int        { return s.count }
func (s *selectorSet) Items() []string { return slices.Clone(s.list) }

func newResult() *model.AnalyzerResult {
	return &model.AnalyzerResult{
		Findings: []model.Finding{},
		Stats:    map[string]any{},
	}
}
