package model

import "slices"

// Finding is a single accessibility issue reported by one analyzer on one page.
//
// Findings are treated as immutable after an analyzer returns them. Norm
// mapping produces a copy with Norms filled in instead of editing in place.
type Finding struct {
	// ID is the rule identifier in "<module>:<rule>" form, e.g. "headings:missing-h1".
	ID string `json:"id"`

	// Module is the slug of the analyzer that produced the finding.
	Module string `json:"module"`

	// Severity is the impact level of the issue.
	Severity Severity `json:"severity"`

	// Summary is a one-line description.
	Summary string `json:"summary"`

	// Details carries measurements or context, e.g. "Contrast 3.10:1, expected 4.5:1".
	Details string `json:"details,omitempty"`

	// Selectors identify the affected elements.
	Selectors []string `json:"selectors,omitempty"`

	// PageURL is the page the finding was observed on.
	PageURL string `json:"pageUrl"`

	// Tags are rule engine tags such as "wcag2aa" or "wcag143".
	// They feed the WCAG fallback in norm mapping.
	Tags []string `json:"tags,omitempty"`

	// HelpURL links to rule documentation.
	HelpURL string `json:"helpUrl,omitempty"`

	// Metrics holds numeric measurements attached to this finding.
	Metrics map[string]float64 `json:"metrics,omitempty"`

	// Norms is set by norm mapping.
	Norms *NormReference `json:"norms,omitempty"`

	// Unmapped is true when norm mapping could not complete all references.
	Unmapped bool `json:"unmapped,omitempty"`
}

// Occurrences returns the number of affected elements, at least one.
func (f Finding) Occurrences() int {
	if len(f.Selectors) == 0 {
		return 1
	}
	return len(f.Selectors)
}

// Key identifies a finding across scans of the same site.
func (f Finding) Key() string {
	return f.ID + "|" + f.PageURL
}

// NormReference links a finding to regulatory clauses.
type NormReference struct {
	WCAG         []string `json:"wcag"`
	BITV         []string `json:"bitv"`
	EN301549     []string `json:"en301549"`
	LegalContext string   `json:"legalContext,omitempty"`

	// Inferred is true when at least one list was derived rather than
	// taken from the mapping table.
	Inferred bool `json:"inferred,omitempty"`
}

// Complete reports whether all three reference lists are populated.
func (n *NormReference) Complete() bool {
	return n != nil && len(n.WCAG) > 0 && len(n.BITV) > 0 && len(n.EN301549) > 0
}

// Clone returns a deep copy.
func (n *NormReference) Clone() *NormReference {
	if n == nil {
		return nil
	}
	return &NormReference{
		WCAG:         slices.Clone(n.WCAG),
		BITV:         slices.Clone(n.BITV),
		EN301549:     slices.Clone(n.EN301549),
		LegalContext: n.LegalContext,
		Inferred:     n.Inferred,
	}
}

// NewFinding builds a finding with the severity from the finding info mapping.
func NewFinding(id, module, pageURL, summary string) Finding {
	return Finding{
		ID:       id,
		Module:   module,
		Severity: GetSeverity(id),
		Summary:  summary,
		PageURL:  pageURL,
	}
}

// WithDetails returns a copy of f with details set.
func (f Finding) WithDetails(details string) Finding {
	f.Details = details
	return f
}

// WithSelectors returns a copy of f with the given selectors.
func (f Finding) WithSelectors(selectors ...string) Finding {
	f.Selectors = slices.Clone(selectors)
	return f
}
