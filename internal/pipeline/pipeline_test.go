package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/a11yscan/internal/browser/browsertest"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

// mockAnalyzer is a test helper that implements Analyzer and the optional
// lifecycle interfaces.
type mockAnalyzer struct {
	slug      string
	requires  []string
	runFunc   func(ctx context.Context, c *Context) (*model.AnalyzerResult, error)
	initErr   error
	callCount int
	disposed  int
}

func (m *mockAnalyzer) Slug() string       { return m.slug }
func (m *mockAnalyzer) Version() string    { return "1.0.0" }
func (m *mockAnalyzer) Requires() []string { return m.requires }

func (m *mockAnalyzer) Init(context.Context, *Context) error { return m.initErr }

func (m *mockAnalyzer) Dispose(context.Context, *Context) error {
	m.disposed++
	return nil
}

func (m *mockAnalyzer) Run(ctx context.Context, c *Context) (*model.AnalyzerResult, error) {
	m.callCount++
	if m.runFunc != nil {
		return m.runFunc(ctx, c)
	}
	return &model.AnalyzerResult{}, nil
}

func findingResult(id string) func(context.Context, *Context) (*model.AnalyzerResult, error) {
	return func(context.Context, *Context) (*model.AnalyzerResult, error) {
		return &model.AnalyzerResult{Findings: []model.Finding{{ID: id, Summary: id}}}, nil
	}
}

func input() Input {
	return Input{Page: &browsertest.Page{}, URL: "https://example.com/", Depth: 0}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs analyzers in order and stamps results", func(t *testing.T) {
		t.Parallel()

		a := &mockAnalyzer{slug: "a", runFunc: findingResult("a-1")}
		b := &mockAnalyzer{slug: "b", runFunc: findingResult("b-1")}
		p := New([]Analyzer{a, b})

		out, err := p.Execute(context.Background(), input())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out.Results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(out.Results))
		}
		if out.Results[0].Module != "a" || out.Results[1].Module != "b" {
			t.Errorf("unexpected order: %s, %s", out.Results[0].Module, out.Results[1].Module)
		}
		f := out.Results[0].Findings[0]
		if f.Module != "a" || f.PageURL != "https://example.com/" {
			t.Errorf("finding not stamped: %+v", f)
		}
		if out.Results[0].Version != "1.0.0" {
			t.Errorf("expected version 1.0.0, got %s", out.Results[0].Version)
		}
	})

	t.Run("error in one analyzer does not stop the others", func(t *testing.T) {
		t.Parallel()

		failing := &mockAnalyzer{slug: "failing", runFunc: func(context.Context, *Context) (*model.AnalyzerResult, error) {
			return nil, errors.New("boom")
		}}
		next := &mockAnalyzer{slug: "next"}
		p := New([]Analyzer{failing, next})

		out, err := p.Execute(context.Background(), input())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.callCount != 1 {
			t.Errorf("expected next analyzer to run once, got %d", next.callCount)
		}
		if len(out.Failures) != 1 {
			t.Fatalf("expected 1 failure, got %d", len(out.Failures))
		}
		got := out.Failures[0]
		if got.Kind != model.FailureAnalyzer || got.Module != "failing" || got.URL != "https://example.com/" {
			t.Errorf("unexpected failure %+v", got)
		}
		if failing.disposed != 1 {
			t.Error("expected dispose to run after a failed run")
		}
	})

	t.Run("panic is recovered and recorded", func(t *testing.T) {
		t.Parallel()

		panicky := &mockAnalyzer{slug: "panicky", runFunc: func(context.Context, *Context) (*model.AnalyzerResult, error) {
			panic("unexpected nil")
		}}
		next := &mockAnalyzer{slug: "next"}
		p := New([]Analyzer{panicky, next})

		out, err := p.Execute(context.Background(), input())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out.Results) != 1 || out.Results[0].Module != "next" {
			t.Errorf("expected only next to produce a result, got %+v", out.Results)
		}
		if len(out.Failures) != 1 || !strings.Contains(out.Failures[0].Message, "unexpected nil") {
			t.Errorf("unexpected failures %+v", out.Failures)
		}
		if panicky.disposed != 1 {
			t.Error("expected dispose to run after a panic")
		}
	})

	t.Run("init failure skips run and dispose", func(t *testing.T) {
		t.Parallel()

		a := &mockAnalyzer{slug: "a", initErr: errors.New("no page")}
		out, _ := New([]Analyzer{a}).Execute(context.Background(), input())

		if a.callCount != 0 || a.disposed != 0 {
			t.Errorf("expected no run and no dispose, got run=%d dispose=%d", a.callCount, a.disposed)
		}
		if len(out.Failures) != 1 {
			t.Errorf("expected 1 failure, got %d", len(out.Failures))
		}
	})

	t.Run("dependent reads prior result", func(t *testing.T) {
		t.Parallel()

		base := &mockAnalyzer{slug: "keyboard", runFunc: func(context.Context, *Context) (*model.AnalyzerResult, error) {
			return &model.AnalyzerResult{Data: []string{"#skip"}}, nil
		}}
		var seen any
		dep := &mockAnalyzer{slug: "skiplinks", requires: []string{"keyboard"}, runFunc: func(_ context.Context, c *Context) (*model.AnalyzerResult, error) {
			prior, ok := c.Prior("keyboard")
			if !ok {
				t.Error("expected prior keyboard result")
				return nil, nil
			}
			seen = prior.Data
			return nil, nil
		}}

		if _, err := New([]Analyzer{base, dep}).Execute(context.Background(), input()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, ok := seen.([]string); !ok || got[0] != "#skip" {
			t.Errorf("unexpected prior data %v", seen)
		}
	})

	t.Run("dependent fails closed when prerequisite failed", func(t *testing.T) {
		t.Parallel()

		base := &mockAnalyzer{slug: "keyboard", runFunc: func(context.Context, *Context) (*model.AnalyzerResult, error) {
			return nil, errors.New("focus lost")
		}}
		dep := &mockAnalyzer{slug: "skiplinks", requires: []string{"keyboard"}}

		out, _ := New([]Analyzer{base, dep}).Execute(context.Background(), input())
		if dep.callCount != 0 {
			t.Error("expected dependent not to run")
		}
		if len(out.Failures) != 2 {
			t.Fatalf("expected 2 failures, got %d", len(out.Failures))
		}
		if !strings.Contains(out.Failures[1].Message, ErrPrerequisiteMissing.Error()) {
			t.Errorf("unexpected failure message %q", out.Failures[1].Message)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockAnalyzer{slug: "first", runFunc: func(context.Context, *Context) (*model.AnalyzerResult, error) {
			cancel()
			return nil, nil
		}}
		second := &mockAnalyzer{slug: "second"}

		out, err := New([]Analyzer{first, second}).Execute(ctx, input())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second analyzer not to run")
		}
		if len(out.Results) != 1 {
			t.Errorf("expected partial outcome with 1 result, got %d", len(out.Results))
		}
	})

	t.Run("passes module options", func(t *testing.T) {
		t.Parallel()

		var got int
		a := &mockAnalyzer{slug: "links", runFunc: func(_ context.Context, c *Context) (*model.AnalyzerResult, error) {
			got = c.Options.Int("maxSelectors", 0)
			return nil, nil
		}}
		p := New([]Analyzer{a}, WithModuleOptions(map[string]config.Options{"links": {"maxSelectors": 5}}))
		if _, err := p.Execute(context.Background(), input()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 5 {
			t.Errorf("expected option 5, got %d", got)
		}
	})
}

func TestContextArtifacts(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON below module and page key", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		var path string
		a := &mockAnalyzer{slug: "headings", runFunc: func(_ context.Context, c *Context) (*model.AnalyzerResult, error) {
			var err error
			path, err = c.SaveArtifact("outline.json", map[string]int{"h1": 1})
			return nil, err
		}}
		p := New([]Analyzer{a}, WithArtifacts(NewArtifactStore(dir)))
		out, err := p.Execute(context.Background(), input())
		if err != nil || len(out.Failures) != 0 {
			t.Fatalf("unexpected error: %v %+v", err, out.Failures)
		}

		if !strings.HasPrefix(path, filepath.Join(dir, "headings")) {
			t.Errorf("unexpected artifact path %s", path)
		}
		data, err := os.ReadFile(path) //nolint:gosec // test path
		if err != nil {
			t.Fatalf("failed to read artifact: %v", err)
		}
		var decoded map[string]int
		if err := json.Unmarshal(data, &decoded); err != nil || decoded["h1"] != 1 {
			t.Errorf("unexpected artifact content %s", data)
		}
	})

	t.Run("disabled store returns empty path", func(t *testing.T) {
		t.Parallel()

		c := &Context{URL: "https://example.com/", module: "keyboard"}
		path, err := c.SaveBlob("focus.png", []byte{1})
		if err != nil || path != "" {
			t.Errorf("expected empty path and nil error, got %q %v", path, err)
		}
	})
}

func TestPageKey(t *testing.T) {
	t.Parallel()

	a := PageKey("https://example.com/docs/a?x=1")
	b := PageKey("https://example.com/docs/a?x=2")
	if a == b {
		t.Error("expected distinct keys for distinct URLs")
	}
	if !strings.HasPrefix(a, "example.com_docs_a-") {
		t.Errorf("unexpected key %s", a)
	}
	if strings.ContainsAny(a, "/?:") {
		t.Errorf("key is not filesystem safe: %s", a)
	}
}
