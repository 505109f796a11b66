package pipeline

import (
	"fmt"
	"log/slog"
	"slices"
)

// AllModules selects every registered analyzer.
const AllModules = "*"

// Registry holds analyzers in registration order.
// It is built once per run; there is no package-level registry.
type Registry struct {
	analyzers []Analyzer
	bySlug    map[string]Analyzer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bySlug: make(map[string]Analyzer)}
}

// Register adds an analyzer. Slugs must be unique.
func (r *Registry) Register(a Analyzer) error {
	slug := a.Slug()
	if _, ok := r.bySlug[slug]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAnalyzer, slug)
	}
	r.analyzers = append(r.analyzers, a)
	r.bySlug[slug] = a
	return nil
}

// Get returns the analyzer with the given slug.
func (r *Registry) Get(slug string) (Analyzer, bool) {
	a, ok := r.bySlug[slug]
	return a, ok
}

// All returns all analyzers in registration order.
func (r *Registry) All() []Analyzer {
	return slices.Clone(r.analyzers)
}

// Slugs returns all slugs in registration order.
func (r *Registry) Slugs() []string {
	out := make([]string, len(r.analyzers))
	for i, a := range r.analyzers {
		out[i] = a.Slug()
	}
	return out
}

// Selection describes which analyzers to run.
type Selection struct {
	// Modules is an explicit list. When set, Profile and Toggles are ignored.
	Modules []string

	// Profile is the module list of the active profile.
	Profile []string

	// Toggles enable (true) or disable (false) single modules on top of the profile.
	// Without a profile, the modules toggled on form the selection.
	Toggles map[string]bool
}

// Select resolves sel into an ordered analyzer list.
// Unknown slugs are logged and ignored. The result follows registration
// order, adjusted so that every selected prerequisite runs before its
// dependents. Prerequisites that are not selected are not added; the
// dependent fails closed at run time instead.
func (r *Registry) Select(sel Selection, logger *slog.Logger) ([]Analyzer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	wanted := make(map[string]bool)
	add := func(slugs []string) {
		for _, s := range slugs {
			if s == AllModules {
				for _, a := range r.analyzers {
					wanted[a.Slug()] = true
				}
				continue
			}
			if _, ok := r.bySlug[s]; !ok {
				logger.Warn("ignoring unknown analyzer", "module", s)
				continue
			}
			wanted[s] = true
		}
	}

	switch {
	case len(sel.Modules) > 0:
		add(sel.Modules)
	default:
		add(sel.Profile)
		for slug, on := range sel.Toggles {
			if on {
				add([]string{slug})
			} else {
				delete(wanted, slug)
			}
		}
	}

	selected := make([]Analyzer, 0, len(wanted))
	for _, a := range r.analyzers {
		if wanted[a.Slug()] {
			selected = append(selected, a)
		}
	}
	return orderByRequires(selected)
}

// orderByRequires performs a stable topological sort: analyzers keep their
// relative order unless a prerequisite has to move in front.
func orderByRequires(in []Analyzer) ([]Analyzer, error) {
	index := make(map[string]Analyzer, len(in))
	for _, a := range in {
		index[a.Slug()] = a
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(in))
	out := make([]Analyzer, 0, len(in))

	var visit func(a Analyzer) error
	visit = func(a Analyzer) error {
		switch state[a.Slug()] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w at %s", ErrDependencyCycle, a.Slug())
		}
		state[a.Slug()] = visiting
		for _, req := range RequiresOf(a) {
			if dep, ok := index[req]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[a.Slug()] = done
		out = append(out, a)
		return nil
	}

	for _, a := range in {
		if err := visit(a); err != nil {
			return nil, err
		}
	}
	return out, nil
}
