package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

// ErrRuleEngineUnavailable is returned when no rule engine is present in the page.
var ErrRuleEngineUnavailable = errors.New("rule engine not available in page")

// maxRuleSelectors caps the selectors of one rule engine finding.
const maxRuleSelectors = 5

type ruleNode struct {
	Target []string `json:"target"`
}

type ruleResult struct {
	ID          string     `json:"id"`
	Impact      string     `json:"impact"`
	Help        string     `json:"help"`
	Description string     `json:"description"`
	HelpURL     string     `json:"helpUrl"`
	Tags        []string   `json:"tags"`
	Nodes       []ruleNode `json:"nodes"`
}

type ruleRun struct {
	Available  bool         `json:"available"`
	Version    string       `json:"version"`
	Violations []ruleResult `json:"violations"`
	Incomplete []ruleResult `json:"incomplete"`
}

// RuleSeverity picks the severity of a rule engine violation: the
// configured override, else the reported impact, else serious.
func RuleSeverity(ruleID, impact string, overrides map[string]string) model.Severity {
	if s, ok := overrides[ruleID]; ok {
		if sev, err := model.ParseSeverity(s); err == nil {
			return sev
		}
	}
	if sev, err := model.ParseSeverity(impact); err == nil {
		return sev
	}
	return model.SeveritySerious
}

// DOMAria runs the axe-core rule engine when it is present in the page.
// The engine can be injected from a local file with the axeSource option.
type DOMAria struct{}

// NewDOMAria creates the rule engine analyzer.
func NewDOMAria() *DOMAria { return &DOMAria{} }

func (*DOMAria) Slug() string    { return SlugDOMAria }
func (*DOMAria) Version() string { return "1.0.0" }

// Init injects the rule engine source when configured.
func (*DOMAria) Init(ctx context.Context, c *pipeline.Context) error {
	src := c.Options.String("axeSource", "")
	if src == "" {
		return nil
	}
	data, err := os.ReadFile(src) //nolint:gosec // path comes from the user's configuration
	if err != nil {
		return fmt.Errorf("failed to read rule engine source: %w", err)
	}
	var ok bool
	if err := evaluate(ctx, c, axeInjectScript.Invoke(string(data)), &ok); err != nil {
		return err
	}
	if !ok {
		return ErrRuleEngineUnavailable
	}
	return nil
}

// Run executes the engine and converts every violated node into a finding.
func (a *DOMAria) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	var run ruleRun
	if err := evaluate(ctx, c, axeRunScript.Invoke(c.Options["runOptions"]), &run); err != nil {
		return nil, err
	}
	if !run.Available {
		return nil, ErrRuleEngineUnavailable
	}

	overrides := c.Options.StringMap("severityMap")
	res := newResult()
	perRule := make(map[string]int)
	for _, v := range run.Violations {
		sev := RuleSeverity(v.ID, v.Impact, overrides)
		nodes := v.Nodes
		if len(nodes) == 0 {
			nodes = []ruleNode{{}}
		}
		for _, n := range nodes {
			f := model.NewFinding("axe:"+v.ID, a.Slug(), c.URL, v.Help).
				WithDetails(v.Description).
				WithSelectors(n.Target[:min(len(n.Target), maxRuleSelectors)]...)
			f.Severity = sev
			f.Tags = append([]string(nil), v.Tags...)
			f.HelpURL = v.HelpURL
			res.Findings = append(res.Findings, f)
			perRule[v.ID]++
		}
	}

	res.Stats = map[string]any{
		"violations": len(run.Violations),
		"incomplete": len(run.Incomplete),
		"rules":      perRule,
		"engine":     run.Version,
	}
	saveArtifact(c, res, "axe", "axe_raw.json", run)
	return res, nil
}
