package crawler

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	// maxSitemapBytes limits a single sitemap document.
	maxSitemapBytes = 10 * 1024 * 1024

	// maxChildSitemaps limits the sitemaps followed from one sitemap index.
	maxChildSitemaps = 50
)

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// sitemapDoc decodes both <urlset> and <sitemapindex>; XMLName tells them apart.
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

// ParseSitemap decodes a sitemap document. For a <urlset> it returns the page
// locations; for a <sitemapindex> it returns the child sitemap locations and
// index=true.
func ParseSitemap(data []byte) (locs []string, index bool, err error) {
	var doc sitemapDoc
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("parse sitemap: %w", err)
	}

	switch doc.XMLName.Local {
	case "urlset":
		return collectLocs(doc.URLs), false, nil
	case "sitemapindex":
		return collectLocs(doc.Sitemaps), true, nil
	default:
		return nil, false, fmt.Errorf("parse sitemap: unexpected root element <%s>", doc.XMLName.Local)
	}
}

func collectLocs(in []sitemapLoc) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		if loc := strings.TrimSpace(l.Loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

// sitemapURLs fetches the given sitemaps and returns the page URLs they list.
// A sitemap index is followed one level deep. Errors of single documents are
// returned alongside whatever could be read.
func (f fetcher) sitemapURLs(ctx context.Context, sources []string) ([]string, []error) {
	var (
		urls []string
		errs []error
	)
	for _, src := range sources {
		locs, index, err := f.sitemap(ctx, src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !index {
			urls = append(urls, locs...)
			continue
		}
		for i, child := range locs {
			if i == maxChildSitemaps {
				break
			}
			childLocs, childIndex, err := f.sitemap(ctx, child)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if childIndex {
				errs = append(errs, fmt.Errorf("sitemap %s: nested sitemap index ignored", child))
				continue
			}
			urls = append(urls, childLocs...)
		}
	}
	return urls, errs
}

func (f fetcher) sitemap(ctx context.Context, src string) ([]string, bool, error) {
	data, err := f.get(ctx, src, maxSitemapBytes)
	if err != nil {
		return nil, false, fmt.Errorf("sitemap: %w", err)
	}
	locs, index, err := ParseSitemap(data)
	if err != nil {
		return nil, false, fmt.Errorf("sitemap %s: %w", src, err)
	}
	return locs, index, nil
}
