package analyzer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RGBA is a color with 0-255 channels and alpha in [0,1].
type RGBA struct {
	R, G, B float64
	A       float64
}

var rgbPattern = regexp.MustCompile(`rgba?\(\s*(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)\s*,\s*(\d+(?:\.\d+)?)\s*(?:,\s*(\d*(?:\.\d+)?)\s*)?\)`)

// ParseColor parses a computed CSS color in rgb() or rgba() form.
// Anything else, including keywords, parses as opaque black.
func ParseColor(s string) RGBA {
	m := rgbPattern.FindStringSubmatch(s)
	if m == nil {
		return RGBA{A: 1}
	}
	c := RGBA{A: 1}
	c.R, _ = strconv.ParseFloat(m[1], 64)
	c.G, _ = strconv.ParseFloat(m[2], 64)
	c.B, _ = strconv.ParseFloat(m[3], 64)
	if m[4] != "" {
		if a, err := strconv.ParseFloat(m[4], 64); err == nil {
			c.A = a
		}
	}
	return c
}

// Over composites c over an opaque background.
func (c RGBA) Over(bg RGBA) RGBA {
	if c.A >= 1 {
		return c
	}
	return RGBA{
		R: c.R*c.A + bg.R*(1-c.A),
		G: c.G*c.A + bg.G*(1-c.A),
		B: c.B*c.A + bg.B*(1-c.A),
		A: 1,
	}
}

// Luminance returns the WCAG relative luminance.
func (c RGBA) Luminance() float64 {
	lin := func(v float64) float64 {
		v /= 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

var white = RGBA{R: 255, G: 255, B: 255, A: 1}

// ContrastRatio returns the WCAG contrast ratio between a foreground and a
// background color. A translucent background is composited over white and
// a translucent foreground over the resulting background.
func ContrastRatio(fg, bg RGBA) float64 {
	bg = bg.Over(white)
	l1 := fg.Over(bg).Luminance()
	l2 := bg.Luminance()
	hi, lo := math.Max(l1, l2), math.Min(l1, l2)
	return (hi + 0.05) / (lo + 0.05)
}

// ContrastOf is ContrastRatio on CSS color strings.
func ContrastOf(fg, bg string) float64 {
	return ContrastRatio(ParseColor(fg), ParseColor(bg))
}

// parseBoxShadow extracts the spread radius and the color of the first
// shadow in a computed box-shadow value such as "rgb(0, 95, 204) 0px 0px 0px 3px".
func parseBoxShadow(s string) (spread float64, color string) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return 0, ""
	}
	color = rgbPattern.FindString(s)
	rest := rgbPattern.ReplaceAllString(s, " ")
	if i := strings.Index(rest, ","); i >= 0 {
		rest = rest[:i]
	}
	var lengths []float64
	for _, f := range strings.Fields(rest) {
		if !strings.HasSuffix(f, "px") {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSuffix(f, "px"), 64); err == nil {
			lengths = append(lengths, v)
		}
	}
	if len(lengths) >= 4 {
		spread = lengths[3]
	}
	return spread, color
}
