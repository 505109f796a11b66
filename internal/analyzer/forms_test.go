package analyzer

import (
	"slices"
	"testing"

	"github.com/nao1215/a11yscan/internal/browser/browsertest"
)

func TestFormFieldNames(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		field FormField
		want  []string
	}{
		{
			name:  "no sources",
			field: FormField{},
			want:  nil,
		},
		{
			name:  "label and identical aria-label collapse",
			field: FormField{LabelFor: []string{"Email"}, AriaLabel: " email "},
			want:  []string{"Email"},
		},
		{
			name:  "title wins over placeholder",
			field: FormField{Title: "Search", Placeholder: "Type here"},
			want:  []string{"Search"},
		},
		{
			name:  "placeholder used without title",
			field: FormField{Placeholder: "Type here"},
			want:  []string{"Type here"},
		},
		{
			name:  "priority order",
			field: FormField{AriaLabel: "Aria", WrapLabel: "Wrap", LabelFor: []string{"For"}},
			want:  []string{"For", "Wrap", "Aria"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.field.Names(); !slices.Equal(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestFormFieldPurpose(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		field    FormField
		typ, ac  string
		expected bool
	}{
		{FormField{LabelFor: []string{"E-Mail address"}}, "email", "email", true},
		{FormField{Name: "telefon"}, "tel", "tel", true},
		{FormField{LabelFor: []string{"PLZ"}}, "", "postal-code", true},
		{FormField{LabelFor: []string{"Comment"}}, "", "", false},
	}
	for _, tc := range testCases {
		typ, ac, ok := tc.field.ExpectedPurpose()
		if typ != tc.typ || ac != tc.ac || ok != tc.expected {
			t.Errorf("%+v: got (%q, %q, %v)", tc.field, typ, ac, ok)
		}
	}
}

func TestForms(t *testing.T) {
	t.Parallel()

	fields := []FormField{
		{Selector: "#email", Tag: "input", Type: "text", Name: "email", LabelFor: []string{"E-Mail"}, Required: true},
		{Selector: "#q", Tag: "input", Type: "text", Name: "q"},
		{Selector: "#name", Tag: "input", Type: "text", LabelFor: []string{"Name *"}, AriaLabel: "Full name", Required: true},
		{
			Selector: "#zip", Tag: "input", Type: "text", LabelFor: []string{"PLZ"}, Autocomplete: "postal-code",
			Validation: true, DescribedBy: []describedBy{{Role: "alert"}},
		},
		{Selector: "#age", Tag: "input", Type: "number", LabelFor: []string{"Age"}, Validation: true, DescribedBy: []describedBy{{Live: "off"}}},
		{Selector: "#r1", Tag: "input", Type: "radio", Name: "size", LabelFor: []string{"S"}},
		{Selector: "#r2", Tag: "input", Type: "radio", Name: "size", LabelFor: []string{"M"}},
		{Selector: "#c1", Tag: "input", Type: "checkbox", Name: "topics", LabelFor: []string{"News"}, InFieldset: true, Legend: "Topics"},
		{Selector: "#c2", Tag: "input", Type: "checkbox", Name: "topics", LabelFor: []string{"Events"}, InFieldset: true, Legend: "Topics"},
	}
	page := (&browsertest.Page{}).Returns(scriptForms, fields)
	res := runOne(t, page, NewForms())

	want := []string{
		"forms:required-not-indicated",
		"forms:autocomplete-mismatch",
		"forms:label-missing",
		"forms:label-ambiguous",
		"forms:error-not-associated",
		"forms:group-missing-legend",
	}
	if !slices.Equal(findingIDs(res), want) {
		t.Fatalf("expected %v, got %v", want, findingIDs(res))
	}

	selectors := make([]string, 0, len(res.Findings))
	for _, f := range res.Findings {
		selectors = append(selectors, f.Selectors[0])
	}
	if !slices.Equal(selectors, []string{"#email", "#email", "#q", "#name", "#age", "#r1"}) {
		t.Errorf("unexpected selectors %v", selectors)
	}
	if got := findByID(res, "forms:autocomplete-mismatch").Details; got != `Expected autocomplete="email" and type="email", got autocomplete="" type="text"` {
		t.Errorf("unexpected details %q", got)
	}
	if res.Stats["totalControls"] != 9 || res.Stats["groupsWithoutLegend"] != 1 || res.Stats["unlabeled"] != 1 {
		t.Errorf("unexpected stats %v", res.Stats)
	}
}
