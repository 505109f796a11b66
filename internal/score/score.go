// Package score turns findings into a compliance score between 0 and 100.
//
// Both formulas group findings by rule id so that a rule repeated across
// many pages or elements is charged once, with a capped multiplier.
package score

import (
	"fmt"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

const (
	// maxOccurrences caps the multiplier of one rule.
	maxOccurrences = 5

	weightedRuleCap = 35
	deltaRuleCap    = 20
)

// Weights assigns a penalty to each severity.
type Weights map[model.Severity]int

var (
	weightedWeights = Weights{
		model.SeverityCritical: 6,
		model.SeveritySerious:  4,
		model.SeverityModerate: 2,
		model.SeverityMinor:    1,
	}
	deltaWeights = Weights{
		model.SeverityCritical: 5,
		model.SeveritySerious:  3,
		model.SeverityModerate: 2,
		model.SeverityMinor:    1,
	}
)

// RulePenalty is the deduction of one rule.
type RulePenalty struct {
	Rule        string         `json:"rule"`
	Severity    model.Severity `json:"severity"`
	Occurrences int            `json:"occurrences"`
	Penalty     int            `json:"penalty"`
}

type ruleGroup struct {
	severity    model.Severity
	occurrences int
}

func group(findings []model.Finding) (map[string]*ruleGroup, []string) {
	groups := make(map[string]*ruleGroup)
	var order []string
	for _, f := range findings {
		g, ok := groups[f.ID]
		if !ok {
			g = &ruleGroup{severity: f.Severity}
			groups[f.ID] = g
			order = append(order, f.ID)
		}
		g.severity = max(g.severity, f.Severity)
		g.occurrences += f.Occurrences()
	}
	return groups, order
}

// Breakdown returns the per-rule penalties in first-seen order.
func Breakdown(findings []model.Finding, weights Weights, ruleCap int) []RulePenalty {
	groups, order := group(findings)
	out := make([]RulePenalty, 0, len(order))
	for _, id := range order {
		g := groups[id]
		out = append(out, RulePenalty{
			Rule:        id,
			Severity:    g.severity,
			Occurrences: g.occurrences,
			Penalty:     min(ruleCap, weights[g.severity]*min(maxOccurrences, g.occurrences)),
		})
	}
	return out
}

func compute(findings []model.Finding, weights Weights, ruleCap int) int {
	score := 100
	for _, p := range Breakdown(findings, weights, ruleCap) {
		score -= p.Penalty
	}
	return max(0, min(100, score))
}

// Weighted scores with weights 6/4/2/1 and a per-rule cap of 35.
func Weighted(findings []model.Finding) int {
	return compute(findings, weightedWeights, weightedRuleCap)
}

// Delta scores with weights 5/3/2/1 and a per-rule cap of 20.
func Delta(findings []model.Finding) int {
	return compute(findings, deltaWeights, deltaRuleCap)
}

// Compute scores findings with the named formula.
func Compute(findings []model.Finding, formula string) (int, error) {
	switch formula {
	case config.ScoreWeighted, "":
		return Weighted(findings), nil
	case config.ScoreDelta:
		return Delta(findings), nil
	default:
		return 0, fmt.Errorf("%w: %q", config.ErrInvalidScoreFormula, formula)
	}
}
