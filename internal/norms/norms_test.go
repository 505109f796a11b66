package norms

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

func TestDefaultTable(t *testing.T) {
	t.Parallel()

	table, err := DefaultTable()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range []string{"contrast:text-low", "headings:missing-h1", "keyboard:outline-suppressed", "image-alt", "link-name", "color-contrast"} {
		if e, ok := table[id]; !ok || len(e.WCAG) == 0 {
			t.Errorf("expected a WCAG mapping for %s", id)
		}
	}

	// Every built-in entry must be completable.
	if audit := AuditTable(NewMapper(table, "")); !audit.OK() {
		t.Errorf("incomplete built-in entries: %+v", audit.Missing)
	}
}

func TestParseTable(t *testing.T) {
	t.Parallel()

	t.Run("malformed criterion", func(t *testing.T) {
		t.Parallel()
		_, err := ParseTable([]byte("x:\n  wcag: [\"1.3\"]\n"))
		if !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("expected ErrInvalidEntry, got %v", err)
		}
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()
		table, err := ParseTable(nil)
		if err != nil || table == nil || len(table) != 0 {
			t.Errorf("expected empty table, got %v %v", table, err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseTable([]byte("- a\n- b")); err == nil {
			t.Error("expected error for a list document")
		}
	})
}

func TestWCAGFromTags(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		tags    []string
		helpURL string
		want    []string
	}{
		{"criteria tags", []string{"cat.text-alternatives", "wcag2a", "wcag111", "section508"}, "", []string{"1.1.1"}},
		{"two digit criterion", []string{"wcag1410", "wcag143"}, "", []string{"1.4.3", "1.4.10"}},
		{"uppercase and suffix", []string{"WCAG131A"}, "", []string{"1.3.1a"}},
		{"help url", nil, "https://example.com/rules/wcag244", []string{"2.4.4"}},
		{"dedup", []string{"wcag111"}, "https://example.com/wcag111", []string{"1.1.1"}},
		{"nothing", []string{"best-practice"}, "https://dequeuniversity.com/rules/axe/4.10/region", []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := WCAGFromTags(tc.tags, tc.helpURL); !slices.Equal(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()

	wcag := []string{"2.4.4", "1.3.1", "1.1.1"}
	if got, want := DeriveBITV(wcag), []string{"9.1.1.1", "9.1.3.1a", "9.1.3.1b", "9.2.4.4"}; !slices.Equal(got, want) {
		t.Errorf("bitv: expected %v, got %v", want, got)
	}
	if got, want := DeriveEN(wcag), []string{"9.1.1.1", "9.1.3.1", "9.2.4.4"}; !slices.Equal(got, want) {
		t.Errorf("en: expected %v, got %v", want, got)
	}
	if got := DeriveBITV(nil); len(got) != 0 {
		t.Errorf("expected nothing for no criteria, got %v", got)
	}
}

func TestMapperApply(t *testing.T) {
	t.Parallel()

	table := Table{
		"full":      {WCAG: []string{"2.4.7"}, BITV: []string{"9.2.4.7"}, EN301549: []string{"9.2.4.7"}, LegalContext: "BITV 2.0"},
		"wcag-only": {WCAG: []string{"1.3.1"}},
		"image-alt": {WCAG: []string{"1.1.1"}, Severity: "critical"},
	}
	m := NewMapper(table, "EU Web Accessibility Directive")

	t.Run("explicit entry", func(t *testing.T) {
		t.Parallel()
		f := m.Apply(model.Finding{ID: "full"})
		want := &model.NormReference{
			WCAG: []string{"2.4.7"}, BITV: []string{"9.2.4.7"}, EN301549: []string{"9.2.4.7"},
			LegalContext: "BITV 2.0",
		}
		if !reflect.DeepEqual(f.Norms, want) || f.Unmapped {
			t.Errorf("unexpected norms %+v", f.Norms)
		}
	})

	t.Run("derived lists", func(t *testing.T) {
		t.Parallel()
		f := m.Apply(model.Finding{ID: "wcag-only"})
		if !slices.Equal(f.Norms.BITV, []string{"9.1.3.1a", "9.1.3.1b"}) || !slices.Equal(f.Norms.EN301549, []string{"9.1.3.1"}) {
			t.Errorf("unexpected derived lists %+v", f.Norms)
		}
		if !f.Norms.Inferred || f.Norms.LegalContext != "EU Web Accessibility Directive" {
			t.Errorf("expected inferred references with default legal context, got %+v", f.Norms)
		}
	})

	t.Run("rule engine prefix and severity override", func(t *testing.T) {
		t.Parallel()
		f := m.Apply(model.Finding{ID: "axe:image-alt", Severity: model.SeveritySerious})
		if f.Severity != model.SeverityCritical || !slices.Equal(f.Norms.WCAG, []string{"1.1.1"}) || f.Unmapped {
			t.Errorf("unexpected finding %+v", f)
		}
	})

	t.Run("tags fill unknown rules", func(t *testing.T) {
		t.Parallel()
		f := m.Apply(model.Finding{ID: "axe:aria-roles", Tags: []string{"wcag2a", "wcag412"}})
		if !slices.Equal(f.Norms.WCAG, []string{"4.1.2"}) || !slices.Equal(f.Norms.BITV, []string{"9.4.1.2"}) || f.Unmapped {
			t.Errorf("unexpected finding %+v", f.Norms)
		}
	})

	t.Run("unmapped", func(t *testing.T) {
		t.Parallel()
		f := m.Apply(model.Finding{ID: "custom:thing", Tags: []string{"best-practice"}})
		if !f.Unmapped || len(f.Norms.WCAG) != 0 {
			t.Errorf("expected unmapped finding, got %+v", f)
		}
	})

	t.Run("merges references already on the finding", func(t *testing.T) {
		t.Parallel()
		in := model.Finding{ID: "full", Norms: &model.NormReference{WCAG: []string{"1.4.11"}}}
		f := m.Apply(in)
		if !slices.Equal(f.Norms.WCAG, []string{"1.4.11", "2.4.7"}) {
			t.Errorf("unexpected merge %v", f.Norms.WCAG)
		}
		if len(in.Norms.WCAG) != 1 {
			t.Error("input finding must not be modified")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()
		for _, id := range []string{"full", "wcag-only", "axe:image-alt", "custom:thing"} {
			once := m.Apply(model.Finding{ID: id, Tags: []string{"wcag111"}})
			twice := m.Apply(once)
			if !reflect.DeepEqual(once, twice) {
				t.Errorf("%s: mapping twice changed the finding:\n%+v\n%+v", id, once.Norms, twice.Norms)
			}
		}
	})
}

func TestApplyAllOrderIndependent(t *testing.T) {
	t.Parallel()

	table, err := DefaultTable()
	if err != nil {
		t.Fatal(err)
	}
	m := NewMapper(table, "")
	a := []model.Finding{
		{ID: "headings:missing-h1", PageURL: "https://example.com/"},
		{ID: "custom:unknown", PageURL: "https://example.com/"},
		{ID: "axe:link-name", PageURL: "https://example.com/b"},
	}
	b := []model.Finding{a[2], a[0], a[1]}

	if n := m.ApplyAll(a); n != 1 {
		t.Errorf("expected one unmapped finding, got %d", n)
	}
	m.ApplyAll(b)
	if !reflect.DeepEqual(a[0], b[1]) || !reflect.DeepEqual(a[2], b[0]) {
		t.Error("mapping depends on finding order")
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mapping.yaml")
	data := "headings:missing-h1:\n  wcag: [\"2.4.6\"]\n  legalContext: custom\ncustom:rule:\n  wcag: [\"4.1.2\"]\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := FromConfig(config.Norms{MappingFile: path, LegalContext: "default"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := m.Apply(model.Finding{ID: "headings:missing-h1"})
	if !slices.Equal(f.Norms.WCAG, []string{"2.4.6"}) || f.Norms.LegalContext != "custom" {
		t.Errorf("expected file entry to replace the built-in one, got %+v", f.Norms)
	}
	if f := m.Apply(model.Finding{ID: "custom:rule"}); f.Unmapped {
		t.Error("expected custom rule to be mapped")
	}

	if _, err := FromConfig(config.Norms{MappingFile: filepath.Join(t.TempDir(), "missing.yaml")}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestAudit(t *testing.T) {
	t.Parallel()

	complete := &model.NormReference{WCAG: []string{"1.1.1"}, BITV: []string{"9.1.1.1"}, EN301549: []string{"9.1.1.1"}}
	partial := &model.NormReference{WCAG: []string{"4.1.2"}}
	findings := []model.Finding{
		{ID: "b:rule", Norms: partial},
		{ID: "a:rule"},
		{ID: "ok:rule", Norms: complete},
		{ID: "b:rule", Norms: partial},
	}

	audit := Audit(findings)
	if audit.Checked != 3 || audit.OK() {
		t.Fatalf("unexpected audit %+v", audit)
	}
	if len(audit.Missing) != 2 || audit.Missing[0].Rule != "a:rule" || audit.Missing[1].Rule != "b:rule" {
		t.Errorf("unexpected gaps %+v", audit.Missing)
	}
	if !slices.Equal(audit.Missing[1].WCAG, []string{"4.1.2"}) || audit.MissingByRule["b:rule"] != 2 {
		t.Errorf("unexpected gap details %+v %v", audit.Missing[1], audit.MissingByRule)
	}

	if empty := Audit(nil); !empty.OK() || empty.Checked != 0 {
		t.Errorf("unexpected empty audit %+v", empty)
	}
}
