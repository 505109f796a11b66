package pipeline

import (
	"context"
	"errors"

	"github.com/nao1215/a11yscan/internal/model"
)

// Analyzer is a pluggable per-page analysis module.
//
// Design decision: We use an interface with optional companion interfaces
// (Initializer, Disposer, Dependent) rather than one large interface because:
// 1. Most analyzers need neither setup nor teardown
// 2. Analyzers stay small and self-describing
type Analyzer interface {
	// Slug is the unique module name, e.g. "headings".
	Slug() string

	// Version is the module version recorded in every result.
	Version() string

	// Run analyzes the page in c and returns its result.
	Run(ctx context.Context, c *Context) (*model.AnalyzerResult, error)
}

// Initializer is implemented by analyzers that prepare the page before Run.
type Initializer interface {
	Init(ctx context.Context, c *Context) error
}

// Disposer is implemented by analyzers that clean up after Run.
// Dispose is called whenever Init succeeded, even if Run failed.
type Disposer interface {
	Dispose(ctx context.Context, c *Context) error
}

// Dependent is implemented by analyzers that read the result of other
// analyzers through Context.Prior.
type Dependent interface {
	Requires() []string
}

// RequiresOf returns the prerequisites of a, or nil.
func RequiresOf(a Analyzer) []string {
	if d, ok := a.(Dependent); ok {
		return d.Requires()
	}
	return nil
}

var (
	// ErrDuplicateAnalyzer is returned when two analyzers share a slug.
	ErrDuplicateAnalyzer = errors.New("analyzer already registered")

	// ErrDependencyCycle is returned when prerequisites form a cycle.
	ErrDependencyCycle = errors.New("analyzer dependency cycle")

	// ErrPrerequisiteMissing is recorded when a prerequisite is not selected
	// or did not produce a result on the current page.
	ErrPrerequisiteMissing = errors.New("prerequisite result missing")

	// ErrAnalyzerPanic is recorded when an analyzer panics.
	ErrAnalyzerPanic = errors.New("analyzer panicked")
)
