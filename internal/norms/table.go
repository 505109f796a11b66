package norms

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules_mapping.yaml
var defaultMapping []byte

// ErrInvalidEntry is returned for a mapping entry that cannot be used.
var ErrInvalidEntry = errors.New("invalid norm mapping entry")

// Entry holds the regulatory references of one finding id.
type Entry struct {
	WCAG         []string `yaml:"wcag,omitempty"`
	BITV         []string `yaml:"bitv,omitempty"`
	EN301549     []string `yaml:"en301549,omitempty"`
	LegalContext string   `yaml:"legalContext,omitempty"`

	// Severity overrides the severity of matching findings when set.
	Severity string `yaml:"severity,omitempty"`
}

// Table maps finding ids to norm references.
type Table map[string]Entry

// DefaultTable returns the built-in mapping table.
func DefaultTable() (Table, error) {
	return ParseTable(defaultMapping)
}

// ParseTable decodes a YAML mapping table.
func ParseTable(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse norm mapping: %w", err)
	}
	if t == nil {
		t = Table{}
	}
	for id, e := range t {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: empty finding id", ErrInvalidEntry)
		}
		for _, w := range e.WCAG {
			if !wcagCriterion.MatchString(w) {
				return nil, fmt.Errorf("%w: %s: malformed WCAG criterion %q", ErrInvalidEntry, id, w)
			}
		}
	}
	return t, nil
}

// LoadTable reads a mapping table from path.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user's configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read norm mapping: %w", err)
	}
	return ParseTable(data)
}

// Merge returns a new table with the entries of other replacing those of t.
func (t Table) Merge(other Table) Table {
	out := make(Table, len(t)+len(other))
	for id, e := range t {
		out[id] = e
	}
	for id, e := range other {
		out[id] = e
	}
	return out
}

// Lookup returns the entry of a finding id. Rule engine ids ("axe:<rule>")
// fall back to the bare rule id.
func (t Table) Lookup(id string) (Entry, bool) {
	if e, ok := t[id]; ok {
		return e, true
	}
	if rule, ok := strings.CutPrefix(id, ruleEnginePrefix); ok {
		e, ok := t[rule]
		return e, ok
	}
	return Entry{}, false
}
