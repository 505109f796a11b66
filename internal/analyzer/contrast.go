package analyzer

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

const (
	normalTextThreshold = 4.5
	largeTextThreshold  = 3.0
)

// TextRun is one visible text node sampled from the page.
type TextRun struct {
	Text       string  `json:"text"`
	Selector   string  `json:"selector"`
	Color      string  `json:"color"`
	Background string  `json:"background"`
	FontSizePx float64 `json:"fontSizePx"`
	FontWeight int     `json:"fontWeight"`

	Ratio float64 `json:"ratio"`
	Large bool    `json:"large"`
}

// IsLargeText reports whether WCAG treats the run as large scale text:
// at least 18.66px, or at least 14px when bold.
func IsLargeText(sizePx float64, weight int) bool {
	if weight >= 700 {
		return sizePx >= 14
	}
	return sizePx >= 18.66
}

// Contrast checks text against its effective background color.
type Contrast struct{}

// NewContrast creates the text contrast analyzer.
func NewContrast() *Contrast { return &Contrast{} }

func (*Contrast) Slug() string    { return SlugContrast }
func (*Contrast) Version() string { return "1.2.0" }

// Run samples text runs and reports those below the WCAG 1.4.3 minimum.
func (a *Contrast) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	opts := map[string]int{"maxSamples": c.Options.Int("maxSamples", 400)}

	var runs []TextRun
	if err := evaluate(ctx, c, contrastScript.Invoke(opts), &runs); err != nil {
		return nil, err
	}

	res := newResult()
	ratios := make([]float64, 0, len(runs))
	failing, failingLarge := 0, 0
	reported := make(map[string]bool)

	for i := range runs {
		r := &runs[i]
		r.Ratio = ContrastOf(r.Color, r.Background)
		r.Large = IsLargeText(r.FontSizePx, r.FontWeight)
		ratios = append(ratios, r.Ratio)

		expected := normalTextThreshold
		id := "contrast:text-low"
		summary := "Text contrast below 4.5:1"
		if r.Large {
			expected = largeTextThreshold
			id = "contrast:large-text-low"
			summary = "Large text contrast below 3:1"
		}
		if r.Ratio >= expected {
			continue
		}
		if r.Large {
			failingLarge++
		} else {
			failing++
		}
		if reported[id+r.Selector] {
			continue
		}
		reported[id+r.Selector] = true

		f := model.NewFinding(id, a.Slug(), c.URL, summary).
			WithDetails(fmt.Sprintf("Contrast %.2f:1, expected %s:1", r.Ratio, strconv.FormatFloat(expected, 'f', -1, 64))).
			WithSelectors(r.Selector)
		f.Metrics = map[string]float64{"ratio": round2(r.Ratio), "expected": expected}
		res.Findings = append(res.Findings, f)
	}

	avg, p95 := ratioStats(ratios)
	res.Stats = map[string]any{
		"sampled":      len(runs),
		"failing":      failing,
		"failingLarge": failingLarge,
		"avgRatio":     avg,
		"p95Ratio":     p95,
	}
	saveArtifact(c, res, "details", "text_contrast.json", runs)
	return res, nil
}

// ratioStats returns the mean and the 95th percentile, both 0 for no samples.
// The percentile is sorted[floor(0.95*(n-1))].
func ratioStats(ratios []float64) (avg, p95 float64) {
	if len(ratios) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	sorted := slices.Clone(ratios)
	slices.Sort(sorted)
	idx := int(math.Floor(0.95 * float64(len(sorted)-1)))
	return sum / float64(len(ratios)), sorted[idx]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
