package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nao1215/a11yscan/internal/browser/browsertest"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

func TestRuleSeverity(t *testing.T) {
	t.Parallel()

	overrides := map[string]string{"region": "minor", "broken": "whatever"}
	testCases := []struct {
		rule, impact string
		want         model.Severity
	}{
		{"region", "moderate", model.SeverityMinor},
		{"image-alt", "critical", model.SeverityCritical},
		{"broken", "moderate", model.SeverityModerate},
		{"unknown", "", model.SeveritySerious},
	}
	for _, tc := range testCases {
		if got := RuleSeverity(tc.rule, tc.impact, overrides); got != tc.want {
			t.Errorf("RuleSeverity(%q, %q) = %v, want %v", tc.rule, tc.impact, got, tc.want)
		}
	}
}

func TestDOMAria(t *testing.T) {
	t.Parallel()

	run := ruleRun{
		Available: true,
		Version:   "4.10.0",
		Violations: []ruleResult{
			{
				ID: "image-alt", Impact: "critical", Help: "Images must have alternate text",
				HelpURL: "https://dequeuniversity.com/rules/axe/4.10/image-alt",
				Tags:    []string{"wcag2a", "wcag111"},
				Nodes:   []ruleNode{{Target: []string{"#a"}}, {Target: []string{"#b"}}},
			},
			{ID: "region", Impact: "moderate", Help: "All page content should be contained by landmarks"},
		},
		Incomplete: []ruleResult{{ID: "color-contrast"}},
	}

	t.Run("converts violations", func(t *testing.T) {
		t.Parallel()

		var runOptions any
		page := (&browsertest.Page{}).Handle(scriptAxeRun, func(args []any) (any, error) {
			runOptions = args[0]
			return run, nil
		})
		options := map[string]config.Options{SlugDOMAria: {
			"severityMap": map[string]any{"region": "minor"},
			"runOptions":  map[string]any{"resultTypes": []any{"violations"}},
		}}
		results := runAnalyzers(t, page, options, NewDOMAria())
		res := &results[0]

		if !slices.Equal(findingIDs(res), []string{"axe:image-alt", "axe:image-alt", "axe:region"}) {
			t.Fatalf("unexpected findings %v", findingIDs(res))
		}
		first := res.Findings[0]
		if first.Severity != model.SeverityCritical || !slices.Equal(first.Selectors, []string{"#a"}) || !slices.Contains(first.Tags, "wcag111") {
			t.Errorf("unexpected finding %+v", first)
		}
		if first.HelpURL == "" {
			t.Error("expected help url")
		}
		if res.Findings[2].Severity != model.SeverityMinor || len(res.Findings[2].Selectors) != 0 {
			t.Errorf("unexpected region finding %+v", res.Findings[2])
		}
		if res.Stats["incomplete"] != 1 || res.Stats["engine"] != "4.10.0" {
			t.Errorf("unexpected stats %v", res.Stats)
		}
		if m, ok := runOptions.(map[string]any); !ok || m["resultTypes"] == nil {
			t.Errorf("expected run options to reach the page, got %v", runOptions)
		}
	})

	t.Run("injects engine source", func(t *testing.T) {
		t.Parallel()

		src := filepath.Join(t.TempDir(), "axe.min.js")
		if err := os.WriteFile(src, []byte("window.axe = {};"), 0o600); err != nil {
			t.Fatal(err)
		}
		var injected any
		page := (&browsertest.Page{}).
			Handle(scriptAxeInject, func(args []any) (any, error) {
				injected = args[0]
				return true, nil
			}).
			Returns(scriptAxeRun, ruleRun{Available: true})

		runAnalyzers(t, page, map[string]config.Options{SlugDOMAria: {"axeSource": src}}, NewDOMAria())
		if injected != "window.axe = {};" {
			t.Errorf("unexpected injected source %v", injected)
		}
	})

	t.Run("engine unavailable is a failure", func(t *testing.T) {
		t.Parallel()

		page := (&browsertest.Page{}).Returns(scriptAxeRun, ruleRun{})
		p := pipeline.New([]pipeline.Analyzer{NewDOMAria()})
		out, err := p.Execute(context.Background(), pipeline.Input{Page: page, URL: testURL})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out.Failures) != 1 || out.Failures[0].Module != SlugDOMAria {
			t.Fatalf("expected one failure, got %+v", out.Failures)
		}
	})

	t.Run("missing source file fails init", func(t *testing.T) {
		t.Parallel()

		c := &pipeline.Context{
			Page:    &browsertest.Page{},
			URL:     testURL,
			Options: config.Options{"axeSource": filepath.Join(t.TempDir(), "missing.js")},
		}
		err := NewDOMAria().Init(context.Background(), c)
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})
}
