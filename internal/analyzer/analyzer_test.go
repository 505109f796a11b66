package analyzer

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/a11yscan/internal/browser/browsertest"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

const testURL = "https://example.com/page"

// runAnalyzers executes analyzers through the pipeline against a fake page
// and fails the test on any analyzer failure.
func runAnalyzers(t *testing.T, page *browsertest.Page, options map[string]config.Options, analyzers ...pipeline.Analyzer) []model.AnalyzerResult {
	t.Helper()
	p := pipeline.New(analyzers, pipeline.WithModuleOptions(options))
	out, err := p.Execute(context.Background(), pipeline.Input{Page: page, URL: testURL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range out.Failures {
		t.Fatalf("analyzer %s failed: %s", f.Module, f.Message)
	}
	return out.Results
}

func runOne(t *testing.T, page *browsertest.Page, a pipeline.Analyzer) *model.AnalyzerResult {
	t.Helper()
	results := runAnalyzers(t, page, nil, a)
	return &results[0]
}

func findingIDs(res *model.AnalyzerResult) []string {
	out := make([]string, 0, len(res.Findings))
	for _, f := range res.Findings {
		out = append(out, f.ID)
	}
	return out
}

func findByID(res *model.AnalyzerResult, id string) *model.Finding {
	for i := range res.Findings {
		if res.Findings[i].ID == id {
			return &res.Findings[i]
		}
	}
	return nil
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		SlugContrast, SlugKeyboard, SlugLandmarks, SlugLinks, SlugForms,
		SlugHeadings, SlugSkipLinks, SlugImages, SlugMetaDoc, SlugDOMAria,
	}
	if !slices.Equal(r.Slugs(), want) {
		t.Errorf("expected %v, got %v", want, r.Slugs())
	}

	profile, _ := config.LookupProfile("standard", nil)
	selected, err := r.Select(pipeline.Selection{Profile: profile.Modules}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, a := range selected {
		if a.Slug() == SlugSkipLinks && !slices.ContainsFunc(selected[:i], func(p pipeline.Analyzer) bool { return p.Slug() == SlugKeyboard }) {
			t.Error("expected keyboard before skiplinks")
		}
	}
}

func TestScriptsAreEmbedded(t *testing.T) {
	t.Parallel()

	for _, s := range []struct{ name, source string }{
		{contrastScript.Name, contrastScript.Source},
		{landmarksScript.Name, landmarksScript.Source},
		{axeRunScript.Name, axeRunScript.Source},
	} {
		if !strings.Contains(s.source, "function cssPath") {
			t.Errorf("%s: expected shared helpers", s.name)
		}
		if !strings.HasPrefix(s.source, "(function () {") {
			t.Errorf("%s: unexpected wrapper", s.name)
		}
	}
}
