package norms

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

const (
	ruleEnginePrefix = "axe:"

	// clausePrefix turns a WCAG success criterion into the matching
	// BITV 2.0 and EN 301 549 (chapter 9, web) clause.
	clausePrefix = "9."
)

var (
	wcagCriterion = regexp.MustCompile(`^\d\.\d\.\d{1,2}$`)
	wcagTag       = regexp.MustCompile(`(?i)^wcag(\d)(\d)(\d{1,2})([a-z])?$`)
	wcagHelpURL   = regexp.MustCompile(`(?i)wcag(\d)(\d)(\d{1,2})([a-z])?`)
)

// override lists the clauses of criteria that do not map one to one.
type override struct {
	bitv []string
	en   []string
}

var overrides = map[string]override{
	"1.3.1": {
		bitv: []string{"9.1.3.1a", "9.1.3.1b"},
		en:   []string{"9.1.3.1"},
	},
}

// WCAGFromTags extracts success criteria from rule tags such as "wcag111"
// and from a help URL that embeds one.
func WCAGFromTags(tags []string, helpURL string) []string {
	var out []string
	for _, t := range tags {
		if m := wcagTag.FindStringSubmatch(strings.TrimSpace(t)); m != nil {
			out = append(out, criterion(m))
		}
	}
	if m := wcagHelpURL.FindStringSubmatch(helpURL); m != nil {
		out = append(out, criterion(m))
	}
	return sortClauses(out)
}

func criterion(m []string) string {
	return m[1] + "." + m[2] + "." + m[3] + strings.ToLower(m[4])
}

// DeriveBITV maps success criteria to BITV 2.0 test steps.
func DeriveBITV(wcag []string) []string {
	return derive(wcag, func(o override) []string { return o.bitv })
}

// DeriveEN maps success criteria to EN 301 549 clauses.
func DeriveEN(wcag []string) []string {
	return derive(wcag, func(o override) []string { return o.en })
}

func derive(wcag []string, pick func(override) []string) []string {
	var out []string
	for _, w := range wcag {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if o, ok := overrides[w]; ok {
			out = append(out, pick(o)...)
			continue
		}
		out = append(out, clausePrefix+w)
	}
	return sortClauses(out)
}

// Mapper attaches norm references to findings.
type Mapper struct {
	table        Table
	legalContext string
}

// NewMapper creates a mapper over table. legalContext is attached to
// findings whose entry has none.
func NewMapper(table Table, legalContext string) *Mapper {
	if table == nil {
		table = Table{}
	}
	return &Mapper{table: table, legalContext: legalContext}
}

// FromConfig builds a mapper from the built-in table merged with the
// configured mapping file.
func FromConfig(cfg config.Norms) (*Mapper, error) {
	table, err := DefaultTable()
	if err != nil {
		return nil, err
	}
	if cfg.MappingFile != "" {
		extra, err := LoadTable(cfg.MappingFile)
		if err != nil {
			return nil, fmt.Errorf("norms mapping file %s: %w", cfg.MappingFile, err)
		}
		table = table.Merge(extra)
	}
	return NewMapper(table, cfg.LegalContext), nil
}

// Table returns the mapping table in use.
func (m *Mapper) Table() Table { return m.table }

// Apply returns f with its norm references resolved.
//
// References already on the finding are merged with the table entry.
// Empty lists are filled in order: WCAG from tags and help URL, then BITV
// and EN 301 549 from WCAG. Lists are deduplicated and sorted, so applying
// the mapper again yields the same finding. A finding that still lacks a
// list is flagged Unmapped.
func (m *Mapper) Apply(f model.Finding) model.Finding {
	ref := f.Norms.Clone()
	if ref == nil {
		ref = &model.NormReference{}
	}
	entry, _ := m.table.Lookup(f.ID)

	ref.WCAG = sortClauses(append(ref.WCAG, entry.WCAG...))
	ref.BITV = sortClauses(append(ref.BITV, entry.BITV...))
	ref.EN301549 = sortClauses(append(ref.EN301549, entry.EN301549...))

	if len(ref.WCAG) == 0 {
		if ref.WCAG = WCAGFromTags(f.Tags, f.HelpURL); len(ref.WCAG) > 0 {
			ref.Inferred = true
		}
	}
	if len(ref.BITV) == 0 {
		if ref.BITV = DeriveBITV(ref.WCAG); len(ref.BITV) > 0 {
			ref.Inferred = true
		}
	}
	if len(ref.EN301549) == 0 {
		if ref.EN301549 = DeriveEN(ref.WCAG); len(ref.EN301549) > 0 {
			ref.Inferred = true
		}
	}

	if ref.LegalContext == "" {
		ref.LegalContext = cmp.Or(entry.LegalContext, m.legalContext)
	}
	if sev, err := model.ParseSeverity(entry.Severity); err == nil && entry.Severity != "" {
		f.Severity = sev
	}

	f.Norms = ref
	f.Unmapped = !ref.Complete()
	return f
}

// ApplyAll maps every finding in place and returns the number of findings
// left unmapped.
func (m *Mapper) ApplyAll(findings []model.Finding) int {
	unmapped := 0
	for i := range findings {
		findings[i] = m.Apply(findings[i])
		if findings[i].Unmapped {
			unmapped++
		}
	}
	return unmapped
}

// sortClauses deduplicates clauses and sorts them numerically, so that
// 1.4.3 sorts before 1.4.10.
func sortClauses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, compareClauses)
	return slices.Compact(out)
}

func compareClauses(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if c := compareParts(pa[i], pb[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(pa), len(pb))
}

// compareParts compares "12b" style parts by number, then suffix.
func compareParts(a, b string) int {
	na, sa := splitNumber(a)
	nb, sb := splitNumber(b)
	if c := cmp.Compare(na, nb); c != 0 {
		return c
	}
	return strings.Compare(sa, sb)
}

func splitNumber(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return -1, s
	}
	return n, s[i:]
}
