package analyzer

import (
	"context"
	"fmt"
	"math"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

type landmarkCandidate struct {
	Tag          string `json:"tag"`
	Role         string `json:"role"`
	Selector     string `json:"selector"`
	Named        bool   `json:"named"`
	InSectioning bool   `json:"inSectioning"`
	Ancestors    []int  `json:"ancestors"`
}

type landmarkNode struct {
	Selector  string `json:"selector"`
	Ancestors []int  `json:"ancestors"`
}

type landmarkSnapshot struct {
	Candidates []landmarkCandidate `json:"candidates"`
	Nodes      []landmarkNode      `json:"nodes"`
	TotalNodes int                 `json:"totalNodes"`
}

var landmarkRoles = map[string]bool{
	"banner":        true,
	"main":          true,
	"contentinfo":   true,
	"navigation":    true,
	"complementary": true,
	"search":        true,
	"region":        true,
	"form":          true,
}

// LandmarkRole resolves the landmark role of an element from its explicit
// role or the implicit role of its tag. It returns "" for non-landmarks.
// header and footer only map to banner and contentinfo outside of
// sectioning content; section only maps to region when it has a name.
func LandmarkRole(tag, role string, named, inSectioning bool) string {
	if role != "" {
		if landmarkRoles[role] {
			return role
		}
		return ""
	}
	switch tag {
	case "header":
		if !inSectioning {
			return "banner"
		}
	case "footer":
		if !inSectioning {
			return "contentinfo"
		}
	case "nav":
		return "navigation"
	case "aside":
		return "complementary"
	case "main":
		return "main"
	case "search":
		return "search"
	case "section":
		if named {
			return "region"
		}
	}
	return ""
}

// Landmark is a resolved landmark region.
type Landmark struct {
	Role     string `json:"role"`
	Selector string `json:"selector"`
	TopLevel bool   `json:"topLevel"`
}

// CoverageBadge grades landmark coverage.
func CoverageBadge(coverage int) string {
	switch {
	case coverage >= 95:
		return "green"
	case coverage >= 80:
		return "yellow"
	default:
		return "red"
	}
}

// Landmarks checks landmark structure and how much content they cover.
type Landmarks struct{}

// NewLandmarks creates the landmarks analyzer.
func NewLandmarks() *Landmarks { return &Landmarks{} }

func (*Landmarks) Slug() string    { return SlugLandmarks }
func (*Landmarks) Version() string { return "1.1.0" }

// Run resolves landmarks and computes coverage over visible nodes.
func (a *Landmarks) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	minCoverage := c.Options.Int("minCoverage", 80)
	opts := map[string]int{"maxNodes": c.Options.Int("maxNodes", 5000)}

	var snap landmarkSnapshot
	if err := evaluate(ctx, c, landmarksScript.Invoke(opts), &snap); err != nil {
		return nil, err
	}

	roles := make([]string, len(snap.Candidates))
	for i, cand := range snap.Candidates {
		roles[i] = LandmarkRole(cand.Tag, cand.Role, cand.Named, cand.InSectioning)
	}
	insideLandmark := func(ancestors []int) bool {
		for _, idx := range ancestors {
			if idx >= 0 && idx < len(roles) && roles[idx] != "" {
				return true
			}
		}
		return false
	}

	counts := map[string]int{}
	byRole := map[string][]Landmark{}
	var landmarks []Landmark
	for i, cand := range snap.Candidates {
		if roles[i] == "" {
			continue
		}
		lm := Landmark{Role: roles[i], Selector: cand.Selector, TopLevel: !insideLandmark(cand.Ancestors)}
		counts[lm.Role]++
		byRole[lm.Role] = append(byRole[lm.Role], lm)
		landmarks = append(landmarks, lm)
	}

	covered := 0
	orphans := newSelectorSet(10)
	for _, n := range snap.Nodes {
		if insideLandmark(n.Ancestors) {
			covered++
		} else {
			orphans.Add(n.Selector)
		}
	}
	coverage := 100
	if len(snap.Nodes) > 0 {
		coverage = int(math.Round(float64(covered) / float64(len(snap.Nodes)) * 100))
	}

	res := newResult()
	add := func(id, summary, details string, selectors []string) {
		res.Findings = append(res.Findings,
			model.NewFinding(id, a.Slug(), c.URL, summary).WithDetails(details).WithSelectors(selectors...))
	}
	selectorsOf := func(lms []Landmark, limit int) []string {
		out := make([]string, 0, limit)
		for _, lm := range lms {
			if len(out) == limit {
				break
			}
			out = append(out, lm.Selector)
		}
		return out
	}

	switch {
	case counts["main"] == 0:
		add("landmarks:missing-main", "No main landmark present",
			"Wrap the primary content in a single <main> element.", nil)
	case counts["main"] > 1:
		add("landmarks:duplicate-main", "Multiple main landmarks",
			fmt.Sprintf("%d main landmarks found", counts["main"]), selectorsOf(byRole["main"], 5))
	}
	for _, role := range []string{"banner", "contentinfo"} {
		if counts[role] > 1 {
			add("landmarks:duplicate-"+role, fmt.Sprintf("Multiple %s landmarks", role),
				fmt.Sprintf("%d %s landmarks found", counts[role], role), selectorsOf(byRole[role], 5))
		}
	}
	for _, role := range []string{"banner", "contentinfo", "main"} {
		var nested []Landmark
		for _, lm := range byRole[role] {
			if !lm.TopLevel {
				nested = append(nested, lm)
			}
		}
		if len(nested) > 0 {
			add("landmarks:nesting-"+role, fmt.Sprintf("%s landmark is nested", role),
				fmt.Sprintf("%s landmarks should not be contained in other landmarks", role), selectorsOf(nested, 5))
		}
	}

	if coverage < minCoverage {
		add("landmarks:coverage-low", fmt.Sprintf("Landmark coverage %d%%", coverage),
			fmt.Sprintf("%d of %d visible elements are inside landmarks", covered, len(snap.Nodes)), nil)
		res.Findings[len(res.Findings)-1].Metrics = map[string]float64{"coverage": float64(coverage)}
	}
	if orphans.Len() > 0 {
		add("landmarks:orphans", fmt.Sprintf("%d visible elements outside of landmarks", len(snap.Nodes)-covered),
			"Visible content should be placed inside a landmark region.", orphans.Items())
	}

	badge := CoverageBadge(coverage)
	res.Metrics = map[string]float64{"coverage": float64(coverage)}
	res.Stats = map[string]any{
		"coverage":     coverage,
		"badge":        badge,
		"counts":       counts,
		"visibleNodes": snap.TotalNodes,
		"sampledNodes": len(snap.Nodes),
	}
	saveArtifact(c, res, "data", "landmarks.json", map[string]any{
		"coverage":  coverage,
		"badge":     badge,
		"counts":    counts,
		"landmarks": landmarks,
		"orphans":   orphans.Items(),
	})
	return res, nil
}
