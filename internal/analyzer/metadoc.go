package analyzer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

// DocumentMeta is the document level metadata of a page.
type DocumentMeta struct {
	Title       string `json:"title"`
	Lang        string `json:"lang,omitempty"`
	XMLLang     string `json:"xmlLang,omitempty"`
	MetaCharset string `json:"metaCharset,omitempty"`
	Viewport    string `json:"viewport,omitempty"`
}

// ParseDocumentMeta extracts title, language and charset from serialized HTML.
func ParseDocumentMeta(html string) (*DocumentMeta, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	root := doc.Find("html").First()
	meta := &DocumentMeta{
		Title:       strings.TrimSpace(doc.Find("head title").First().Text()),
		Lang:        strings.TrimSpace(root.AttrOr("lang", "")),
		XMLLang:     strings.TrimSpace(root.AttrOr("xml:lang", "")),
		MetaCharset: doc.Find("meta[charset]").First().AttrOr("charset", ""),
		Viewport:    doc.Find(`meta[name="viewport"]`).First().AttrOr("content", ""),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return meta, nil
}

// ValidLanguageTag reports whether tag is a well-formed BCP 47 tag.
func ValidLanguageTag(tag string) bool {
	if tag == "" {
		return false
	}
	_, err := language.Parse(tag)
	return err == nil
}

func primarySubtag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}

// MetaDoc checks document title and language.
type MetaDoc struct{}

// NewMetaDoc creates the document metadata analyzer.
func NewMetaDoc() *MetaDoc { return &MetaDoc{} }

func (*MetaDoc) Slug() string    { return SlugMetaDoc }
func (*MetaDoc) Version() string { return "1.0.0" }

// Run parses the rendered document and reports title and language problems.
func (a *MetaDoc) Run(ctx context.Context, c *pipeline.Context) (*model.AnalyzerResult, error) {
	minTitle := c.Options.Int("minTitleLength", 10)

	var html string
	if err := evaluate(ctx, c, documentHTMLScript.Invoke(), &html); err != nil {
		return nil, err
	}
	meta, err := ParseDocumentMeta(html)
	if err != nil {
		return nil, err
	}

	res := newResult()
	finding := func(id, summary, details string, selectors ...string) {
		res.Findings = append(res.Findings,
			model.NewFinding(id, a.Slug(), c.URL, summary).WithDetails(details).WithSelectors(selectors...))
	}

	titleLen := utf8.RuneCountInString(meta.Title)
	switch {
	case meta.Title == "":
		finding("meta:title-missing", "Document is missing a <title>", "")
	case titleLen < minTitle:
		finding("meta:title-too-short", "Document title is very short",
			fmt.Sprintf("Title %q has %d characters, expected at least %d", meta.Title, titleLen, minTitle))
	}

	langValid := false
	if meta.Lang == "" {
		finding("meta:lang-missing", "Document language is missing", "", "html")
	} else {
		langValid = ValidLanguageTag(meta.Lang)
		if !langValid {
			finding("meta:lang-invalid", "Document language is invalid", fmt.Sprintf("lang=%q", meta.Lang), "html")
		}
		if meta.XMLLang != "" && primarySubtag(meta.XMLLang) != primarySubtag(meta.Lang) {
			finding("meta:lang-xml-mismatch", "lang and xml:lang mismatch",
				fmt.Sprintf("lang=%q xml:lang=%q", meta.Lang, meta.XMLLang), "html")
		}
	}

	res.Stats = map[string]any{
		"hasTitle":    meta.Title != "",
		"titleLength": titleLen,
		"lang":        meta.Lang,
		"xmlLang":     meta.XMLLang,
		"langValid":   langValid,
		"metaCharset": meta.MetaCharset,
	}
	return res, nil
}
