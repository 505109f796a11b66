package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

var (
	requiredVocabulary = regexp.MustCompile(`(?i)required|erforderlich|pflichtfeld|mandatory|obligatory`)
	emailPurpose       = regexp.MustCompile(`e-?mail`)
	telPurpose         = regexp.MustCompile(`phone|tel|telefon`)
	postalPurpose      = regexp.MustCompile(`postleitzahl|\bplz\b|postal|zip`)
)

type describedBy struct {
	Role string `json:"role"`
	Live string `json:"live"`
}

// FormField is one form control as reported by the page.
type FormField struct {
	Selector     string        `json:"selector"`
	Tag          string        `json:"tag"`
	Type         string        `json:"type"`
	Name         string        `json:"name"`
	LabelFor     []string      `json:"labelFor"`
	WrapLabel    string        `json:"wrapLabel"`
	Labelledby   string        `json:"labelledby"`
	AriaLabel    string        `json:"ariaLabel"`
	Title        string        `json:"title"`
	Placeholder  string        `json:"placeholder"`
	Required     bool          `json:"required"`
	AriaRequired bool          `json:"ariaRequired"`
	Validation   bool          `json:"validation"`
	DescribedBy  []describedBy `json:"describedBy"`
	Autocomplete string        `json:"autocomplete"`
	InFieldset   bool          `json:"inFieldset"`
	Legend       string        `json:"legend"`

	Hints []string `json:"hints,omitempty"`
}

// Names returns the distinct accessible name candidates in priority order:
// label[for], wrapping label, aria-labelledby, aria-label, title or placeholder.
func (f *FormField) Names() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		key := NormalizeText(s)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}
	for _, l := range f.LabelFor {
		add(l)
	}
	add(f.WrapLabel)
	add(f.Labelledby)
	add(f.AriaLabel)
	if f.Title != "" {
		add(f.Title)
	} else {
		add(f.Placeholder)
	}
	return out
}

// HasErrorBinding reports whether a described-by target announces messages.
func (f *FormField) HasErrorBinding() bool {
	for _, d := range f.DescribedBy {
		if d.Role == "alert" || d.Role == "status" {
			return true
		}
		if d.Live != "" && d.Live != "off" {
			return true
		}
	}
	return false
}

// RequiredIndicated reports whether a required field says so in its label
// or through aria-required.
func (f *FormField) RequiredIndicated() bool {
	if f.AriaRequired {
		return true
	}
	for _, n := range f.Names() {
		if strings.Contains(n, "*") || requiredVocabulary.MatchString(n) {
			return true
		}
	}
	return false
}

// ExpectedPurpose infers an input purpose from the label and name attribute.
// It returns the expected type ("" when any type is fine) and autocomplete token.
func (f *FormField) ExpectedPurpose() (typ, autocomplete string, ok bool) {
	label := strings.ToLower(strings.Join(append(f.Names(), f.Name), " "))
	switch {
	case emailPurpose.MatchString(label):
		return "email", "email", true
	case telPurpose.MatchString(label):
		return "tel", "tel", true
	case postalPurpose.MatchString(label):
		return "", "postal-code", true
	}
	return "", "", false
}

// Forms checks labels, required indicators, error association, input
// purpose and grouping of form controls.
type Forms struct{}

// NewForms creates the forms analyzer.
func NewForms() *Forms { return &Forms{} }

func (*Forms) Slug() string    { return SlugForms }
func (*Forms) Version() string { return "1.0.0" }

// Run evaluates every enabled, non-hidden form control.
func (a *Forms) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	var fields []FormField
	if err := evaluate(ctx, c, formsScript.Invoke(), &fields); err != nil {
		return nil, err
	}

	res := newResult()
	stats := map[string]int{
		"totalControls":            len(fields),
		"unlabeled":                0,
		"ambiguous":                0,
		"errorNotBound":            0,
		"requiredMissingIndicator": 0,
		"autocompleteMismatch":     0,
		"groupsWithoutLegend":      0,
	}
	add := func(f *FormField, id, summary, details, stat string) {
		f.Hints = append(f.Hints, id)
		stats[stat]++
		res.Findings = append(res.Findings,
			model.NewFinding(id, a.Slug(), c.URL, summary).WithDetails(details).WithSelectors(f.Selector))
	}

	for i := range fields {
		f := &fields[i]
		names := f.Names()
		switch {
		case len(names) == 0:
			add(f, "forms:label-missing", "Form control has no label",
				"Control element lacks an accessible name", "unlabeled")
		case len(names) > 1:
			add(f, "forms:label-ambiguous", "Form control has ambiguous labels",
				fmt.Sprintf("Competing names: %s", strings.Join(names, " | ")), "ambiguous")
		}

		if (f.Required || f.AriaRequired) && !f.RequiredIndicated() {
			add(f, "forms:required-not-indicated", "Required field not indicated",
				"Field is required but neither the label nor aria-required says so", "requiredMissingIndicator")
		}

		if f.Validation && !f.HasErrorBinding() {
			add(f, "forms:error-not-associated", "Validation error not associated",
				"Field has validation constraints but no aria-describedby target with role alert/status or aria-live", "errorNotBound")
		}

		if typ, ac, ok := f.ExpectedPurpose(); ok {
			typeWrong := typ != "" && typ != f.Type
			if typeWrong || f.Autocomplete != ac {
				add(f, "forms:autocomplete-mismatch", "Autocomplete or type missing or wrong",
					fmt.Sprintf("Expected autocomplete=%q%s, got autocomplete=%q type=%q", ac, typeHint(typ), f.Autocomplete, f.Type),
					"autocompleteMismatch")
			}
		}
	}

	for _, g := range choiceGroups(fields) {
		if len(g) > 1 && !g[0].hasLegend {
			f := &fields[g[0].index]
			add(f, "forms:group-missing-legend", "Form controls missing fieldset/legend",
				fmt.Sprintf("Group of %d %s controls lacks fieldset/legend", len(g), f.Type), "groupsWithoutLegend")
		}
	}

	res.Stats = make(map[string]any, len(stats))
	for k, v := range stats {
		res.Stats[k] = v
	}
	saveArtifact(c, res, "overview", "forms_overview.json", fields)
	return res, nil
}

func typeHint(typ string) string {
	if typ == "" {
		return ""
	}
	return fmt.Sprintf(" and type=%q", typ)
}

type groupMember struct {
	index     int
	hasLegend bool
}

// choiceGroups groups radio and checkbox controls by name attribute in
// document order. A group has a legend when any member sits in a fieldset
// with non-empty legend text.
func choiceGroups(fields []FormField) [][]groupMember {
	var order []string
	groups := make(map[string][]groupMember)
	legend := make(map[string]bool)
	for i, f := range fields {
		if (f.Type != "radio" && f.Type != "checkbox") || f.Name == "" {
			continue
		}
		key := f.Type + "|" + f.Name
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], groupMember{index: i})
		if f.InFieldset && strings.TrimSpace(f.Legend) != "" {
			legend[key] = true
		}
	}
	out := make([][]groupMember, 0, len(order))
	for _, key := range order {
		g := groups[key]
		for i := range g {
			g[i].hasLegend = legend[key]
		}
		out = append(out, g)
	}
	return out
}
