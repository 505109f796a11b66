package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is an outbound link of a rendered page.
type Link struct {
	// URL is absolute, resolved against the document base.
	URL string

	// Text is the visible link text, falling back to aria-label and title.
	Text string
}

// ExtractLinks parses the rendered DOM of a page and returns its <a href>
// and <area href> targets in document order without duplicates.
//
// Relative references are resolved against pageURL, or against <base href>
// when the document declares one. Links the crawler never follows
// (javascript:, mailto:, tel:, data:, bare "#") are skipped.
//
// Design decision: We parse the serialized DOM with golang.org/x/net/html
// instead of querying anchors in the page because:
//  1. The browser already resolved scripts, so the serialized DOM is what users see
//  2. Parsing is testable without a browser
func ExtractLinks(pageURL string, content io.Reader) ([]Link, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	if href := findBaseHref(doc); href != "" {
		if ref, err := url.Parse(href); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	var (
		links []Link
		seen  = make(map[string]bool)
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "area") {
			if u := resolve(base, getAttr(n, "href")); u != nil {
				target := u.String()
				if !seen[target] {
					seen[target] = true
					links = append(links, Link{URL: target, Text: linkText(n)})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

func findBaseHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "base" {
		return strings.TrimSpace(getAttr(n, "href"))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findBaseHref(c); href != "" {
			return href
		}
	}
	return ""
}

// linkText returns the collapsed text content of a link.
func linkText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if c.Data == "img" {
				b.WriteString(getAttr(c, "alt"))
				b.WriteByte(' ')
			}
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	text := strings.Join(strings.Fields(b.String()), " ")
	if text == "" {
		text = strings.TrimSpace(getAttr(n, "aria-label"))
	}
	if text == "" {
		text = strings.TrimSpace(getAttr(n, "title"))
	}
	return text
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
