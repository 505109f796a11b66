package analyzer

import (
	"context"
	"path"
	"strings"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

// ImageInfo is one image-like element reported by the page.
type ImageInfo struct {
	Kind          string  `json:"kind"`
	Alt           *string `json:"alt,omitempty"`
	Src           string  `json:"src,omitempty"`
	Role          string  `json:"role,omitempty"`
	AriaHidden    bool    `json:"ariaHidden,omitempty"`
	AriaLabel     string  `json:"ariaLabel,omitempty"`
	HasTitle      bool    `json:"hasTitle,omitempty"`
	InLink        bool    `json:"inLink,omitempty"`
	Selector      string  `json:"selector"`
	Filename      string  `json:"filename,omitempty"`
	ParentText    string  `json:"parentText,omitempty"`
	NaturalWidth  float64 `json:"naturalWidth,omitempty"`
	NaturalHeight float64 `json:"naturalHeight,omitempty"`
}

func (i ImageInfo) alt() string {
	if i.Alt == nil {
		return ""
	}
	return strings.TrimSpace(*i.Alt)
}

func (i ImageInfo) decorative() bool {
	return i.Role == "presentation" || i.Role == "none" || i.AriaHidden
}

// Images checks text alternatives of images, SVGs, image inputs and image map areas.
type Images struct{}

// NewImages creates the images analyzer.
func NewImages() *Images { return &Images{} }

func (*Images) Slug() string    { return SlugImages }
func (*Images) Version() string { return "1.0.0" }

// Run evaluates all image-like elements.
func (a *Images) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	var items []ImageInfo
	if err := evaluate(ctx, c, imagesScript.Invoke(), &items); err != nil {
		return nil, err
	}

	sets := map[string]*selectorSet{}
	flag := func(id, sel string) {
		s, ok := sets[id]
		if !ok {
			s = newSelectorSet(maxSelectors)
			sets[id] = s
		}
		s.Add(sel)
	}

	total, withAlt, missingAlt, decorative, svgCount := 0, 0, 0, 0, 0
	for _, it := range items {
		switch it.Kind {
		case "img":
			total++
			alt := it.alt()
			if alt != "" {
				withAlt++
			} else {
				missingAlt++
			}
			if it.decorative() {
				decorative++
			}
			switch {
			case alt == "" && !it.decorative() && it.Alt == nil:
				flag("images:missing-alt", it.Selector)
			case it.decorative() && alt != "":
				flag("images:decorative-with-alt", it.Selector)
			}
			altNorm := NormalizeText(alt)
			if alt != "" && altNorm == NormalizeText(it.ParentText) {
				flag("images:redundant-alt", it.Selector)
			}
			if alt != "" && altNorm == NormalizeText(strings.TrimSuffix(it.Filename, path.Ext(it.Filename))) {
				flag("images:filename-as-alt", it.Selector)
			}
			if LooksLikeTextImage(it.NaturalWidth, it.NaturalHeight) {
				flag("images:image-of-text", it.Selector)
			}
		case "svg":
			svgCount++
			labelled := it.HasTitle || it.AriaLabel != ""
			meaningful := it.InLink || (it.Role != "" && it.Role != "presentation" && it.Role != "none")
			if !labelled && !it.decorative() && meaningful {
				flag("images:svg-missing-title", it.Selector)
			}
		case "input-image":
			if it.alt() == "" {
				flag("images:input-image-missing-alt", it.Selector)
			}
		case "area":
			if it.alt() == "" && strings.TrimSpace(it.AriaLabel) == "" {
				flag("images:imagemap-area-missing-alt", it.Selector)
			}
		}
	}

	summaries := []struct{ id, summary string }{
		{"images:missing-alt", "Image without alt attribute"},
		{"images:redundant-alt", "Alt text duplicates surrounding link text"},
		{"images:decorative-with-alt", "Decorative image with alt text"},
		{"images:filename-as-alt", "Alt text equals file name"},
		{"images:image-of-text", "Image likely contains text"},
		{"images:svg-missing-title", "SVG without title or label"},
		{"images:input-image-missing-alt", "Image button without alt"},
		{"images:imagemap-area-missing-alt", "Image map area without alt"},
	}
	res := newResult()
	for _, s := range summaries {
		if set, ok := sets[s.id]; ok {
			res.Findings = append(res.Findings,
				model.NewFinding(s.id, a.Slug(), c.URL, s.summary).WithSelectors(set.Items()...))
		}
	}

	res.Stats = map[string]any{
		"total":           total,
		"withAlt":         withAlt,
		"missingAlt":      missingAlt,
		"decorativeCount": decorative,
		"svgCount":        svgCount,
	}
	saveArtifact(c, res, "index", "images_index.json", items)
	return res, nil
}

// LooksLikeTextImage flags wide, short images such as rendered headlines or
// buttons: natural height below 50px and aspect ratio above 3.
func LooksLikeTextImage(width, height float64) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	return height < 50 && width/height > 3
}
