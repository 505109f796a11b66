package analyzer

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

// DefaultWeakLinkTexts are link texts that say nothing about the target.
var DefaultWeakLinkTexts = []string{
	"hier", "mehr", "weiter", "click here", "more", "learn more",
	"weiterlesen", "details", "link", "read more",
}

var (
	rawURLPattern  = regexp.MustCompile(`^https?://`)
	bareDomainText = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}(?:/|$)`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// NormalizeText prepares text for comparison: NFKC, non-breaking spaces
// as spaces, collapsed whitespace and Unicode case folding.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = norm.NFKC.String(s)
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	return cases.Fold().String(s)
}

// NormalizeTarget resolves href against base and drops the fragment, and
// the query unless keepQuery is set. Unparsable hrefs are returned as is.
func NormalizeTarget(href, base string, keepQuery bool) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if b, err := url.Parse(base); err == nil {
		ref = b.ResolveReference(ref)
	}
	ref.Fragment = ""
	ref.RawFragment = ""
	if !keepQuery {
		ref.RawQuery = ""
		ref.ForceQuery = false
	}
	return ref.String()
}

// Jaccard returns the token overlap of two texts. Two empty texts are identical.
func Jaccard(a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	inter := 0
	union := len(sb)
	for t := range sa {
		if sb[t] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		out[t] = true
	}
	return out
}

type rawLink struct {
	Text       string `json:"text"`
	AriaLabel  string `json:"ariaLabel"`
	Labelledby string `json:"labelledby"`
	Title      string `json:"title"`
	ImgAlt     string `json:"imgAlt"`
	Href       string `json:"href"`
	Selector   string `json:"selector"`
}

// AccessibleName returns the first non-empty name source.
func (l rawLink) AccessibleName() string {
	for _, s := range []string{l.Text, l.AriaLabel, l.Labelledby, l.Title, l.ImgAlt} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// LinkInfo is a normalized link as stored in the links overview artifact.
type LinkInfo struct {
	Name     string `json:"name"`
	Text     string `json:"text"`
	Href     string `json:"href"`
	Target   string `json:"target"`
	Selector string `json:"selector"`
	IconOnly bool   `json:"iconOnly,omitempty"`
}

// Links checks link purpose: weak texts, raw URLs, icon-only links and
// inconsistent text/target pairs.
type Links struct{}

// NewLinks creates the links analyzer.
func NewLinks() *Links { return &Links{} }

func (*Links) Slug() string    { return SlugLinks }
func (*Links) Version() string { return "1.0.0" }

// Run collects visible links and evaluates them.
func (a *Links) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	var raw []rawLink
	if err := evaluate(ctx, c, linksScript.Invoke(), &raw); err != nil {
		return nil, err
	}
	keepQuery := c.Options.Bool("compareQuery", false)
	weakSet := make(map[string]bool)
	for _, w := range c.Options.Strings("weakTexts", DefaultWeakLinkTexts) {
		weakSet[NormalizeText(w)] = true
	}

	links := make([]LinkInfo, 0, len(raw))
	for _, l := range raw {
		name := l.AccessibleName()
		links = append(links, LinkInfo{
			Name:     name,
			Text:     NormalizeText(name),
			Href:     l.Href,
			Target:   NormalizeTarget(l.Href, c.URL, keepQuery),
			Selector: l.Selector,
			IconOnly: name == "",
		})
	}

	res := newResult()
	weak := newSelectorSet(maxSelectors)
	rawURL := newSelectorSet(maxSelectors)
	icon := newSelectorSet(maxSelectors)
	weakCount, rawCount := 0, 0
	for _, l := range links {
		if l.IconOnly {
			icon.Add(l.Selector)
		}
		if weakSet[l.Text] {
			weakCount++
			weak.Add(l.Selector)
		}
		if rawURLPattern.MatchString(l.Text) || bareDomainText.MatchString(l.Text) {
			rawCount++
			rawURL.Add(l.Selector)
		}
	}

	shareWeak := 0.0
	if len(links) > 0 {
		shareWeak = math.Round(float64(weakCount)/float64(len(links))*1000) / 10
	}

	if weakCount > 0 {
		f := model.NewFinding("links:nondescriptive", a.Slug(), c.URL, "Nondescriptive link text").
			WithDetails(fmt.Sprintf("%d of %d links use generic text", weakCount, len(links))).
			WithSelectors(weak.Items()...)
		f.Metrics = map[string]float64{"shareWeak": shareWeak, "weakCount": float64(weakCount)}
		res.Findings = append(res.Findings, f)
	}
	if rawCount > 0 {
		res.Findings = append(res.Findings,
			model.NewFinding("links:raw-url", a.Slug(), c.URL, "Link text is a raw URL").WithSelectors(rawURL.Items()...))
	}
	if icon.Len() > 0 {
		res.Findings = append(res.Findings,
			model.NewFinding("links:icon-only", a.Slug(), c.URL, "Icon-only link without text").WithSelectors(icon.Items()...))
	}

	dupText := duplicateTextGroups(links)
	for _, g := range dupText {
		res.Findings = append(res.Findings,
			model.NewFinding("links:text-dup-different-target", a.Slug(), c.URL,
				fmt.Sprintf("Same link text %q points to different targets", g.key)).
				WithSelectors(g.selectors...))
	}
	dupTarget := duplicateTargetGroups(links)
	for _, g := range dupTarget {
		res.Findings = append(res.Findings,
			model.NewFinding("links:target-dup-different-text", a.Slug(), c.URL, "Same target with differing link texts").
				WithDetails(g.key).
				WithSelectors(g.selectors...))
	}

	res.Stats = map[string]any{
		"total":           len(links),
		"nondescriptive":  weakCount,
		"rawUrl":          rawCount,
		"iconOnly":        icon.Len(),
		"dupTextGroups":   len(dupText),
		"dupTargetGroups": len(dupTarget),
		"shareWeak":       shareWeak,
	}
	saveArtifact(c, res, "overview", "links_overview.json", links)
	return res, nil
}

type linkGroup struct {
	key       string
	selectors []string
}

// groupLinks groups links by key, preserving first-seen order.
func groupLinks(links []LinkInfo, key func(LinkInfo) string) ([]string, map[string][]LinkInfo) {
	var order []string
	groups := make(map[string][]LinkInfo)
	for _, l := range links {
		k := key(l)
		if k == "" {
			continue
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], l)
	}
	return order, groups
}

func groupSelectors(ls []LinkInfo) []string {
	set := newSelectorSet(maxSelectors)
	for _, l := range ls {
		set.Add(l.Selector)
	}
	return set.Items()
}

// duplicateTextGroups returns texts that lead to more than one target.
func duplicateTextGroups(links []LinkInfo) []linkGroup {
	order, groups := groupLinks(links, func(l LinkInfo) string { return l.Text })
	var out []linkGroup
	for _, text := range order {
		targets := make(map[string]bool)
		for _, l := range groups[text] {
			targets[l.Target] = true
		}
		if len(targets) > 1 {
			out = append(out, linkGroup{key: text, selectors: groupSelectors(groups[text])})
		}
	}
	return out
}

// duplicateTargetGroups returns targets reached through texts that share
// little vocabulary (Jaccard below 0.3 for at least one pair).
func duplicateTargetGroups(links []LinkInfo) []linkGroup {
	order, groups := groupLinks(links, func(l LinkInfo) string { return l.Target })
	var out []linkGroup
	for _, target := range order {
		var texts []string
		for _, l := range groups[target] {
			if l.Text != "" {
				texts = append(texts, l.Text)
			}
		}
		if len(texts) < 2 || !anyDissimilar(texts) {
			continue
		}
		out = append(out, linkGroup{key: target, selectors: groupSelectors(groups[target])})
	}
	return out
}

func anyDissimilar(texts []string) bool {
	for i := range texts {
		for j := i + 1; j < len(texts); j++ {
			if Jaccard(texts[i], texts[j]) < 0.3 {
				return true
			}
		}
	}
	return false
}
