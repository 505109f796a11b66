package analyzer

import (
	"slices"
	"testing"

	"github.com/nao1215/a11yscan/internal/browser/browsertest"
)

func alt(s string) *string { return &s }

func TestLooksLikeTextImage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		w, h float64
		want bool
	}{
		{400, 40, true},
		{120, 40, false},
		{400, 60, false},
		{0, 0, false},
	}
	for _, tc := range testCases {
		if got := LooksLikeTextImage(tc.w, tc.h); got != tc.want {
			t.Errorf("LooksLikeTextImage(%v, %v) = %v, want %v", tc.w, tc.h, got, tc.want)
		}
	}
}

func TestImages(t *testing.T) {
	t.Parallel()

	items := []ImageInfo{
		{Kind: "img", Selector: "#no-alt", Src: "/a.png"},
		{Kind: "img", Selector: "#spacer", Alt: alt("")},
		{Kind: "img", Selector: "#logo", Alt: alt("Logo"), Role: "presentation"},
		{Kind: "img", Selector: "#home", Alt: alt("Home"), InLink: true, ParentText: "Home"},
		{Kind: "img", Selector: "#hero", Alt: alt("hero-banner"), Filename: "hero-banner.jpg"},
		{Kind: "img", Selector: "#sale", Alt: alt("Sale now on"), NaturalWidth: 400, NaturalHeight: 40},
		{Kind: "svg", Selector: "#icon", InLink: true},
		{Kind: "svg", Selector: "#deco", InLink: true, AriaHidden: true},
		{Kind: "svg", Selector: "#chart", Role: "img", HasTitle: true},
		{Kind: "input-image", Selector: "#submit"},
		{Kind: "area", Selector: "#area", Alt: alt("")},
	}
	page := (&browsertest.Page{}).Returns(scriptImages, items)
	res := runOne(t, page, NewImages())

	want := []string{
		"images:missing-alt",
		"images:redundant-alt",
		"images:decorative-with-alt",
		"images:filename-as-alt",
		"images:image-of-text",
		"images:svg-missing-title",
		"images:input-image-missing-alt",
		"images:imagemap-area-missing-alt",
	}
	if !slices.Equal(findingIDs(res), want) {
		t.Fatalf("expected %v, got %v", want, findingIDs(res))
	}
	if got := findByID(res, "images:missing-alt").Selectors; !slices.Equal(got, []string{"#no-alt"}) {
		t.Errorf("empty alt must be treated as decorative, got %v", got)
	}
	if got := findByID(res, "images:svg-missing-title").Selectors; !slices.Equal(got, []string{"#icon"}) {
		t.Errorf("unexpected svg selectors %v", got)
	}
	if res.Stats["total"] != 6 || res.Stats["withAlt"] != 4 {
		t.Errorf("unexpected stats %v", res.Stats)
	}
}
