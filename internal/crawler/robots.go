package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	robotsTxtPath = "/robots.txt"

	// maxRobotsBodyBytes limits the size of robots.txt responses we read.
	maxRobotsBodyBytes = 512 * 1024
)

// RobotsRules are the robots.txt rules of the seed host for one user agent.
// The zero value and nil allow everything.
type RobotsRules struct {
	data  *robotstxt.RobotsData
	group *robotstxt.Group
}

// ParseRobots parses a robots.txt body for the given user agent.
func ParseRobots(body []byte, userAgent string) (*RobotsRules, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return &RobotsRules{}, fmt.Errorf("parse robots.txt: %w", err)
	}
	return &RobotsRules{data: data, group: data.FindGroup(userAgent)}, nil
}

// FetchRobots downloads and parses robots.txt of seed's origin.
//
// It never fails the crawl: on a network error, a non-2xx answer or a parse
// error it returns rules that allow everything together with the error, so
// the caller can record it. A missing robots.txt (404, 410) is not an error.
func FetchRobots(ctx context.Context, client *http.Client, seed *url.URL, userAgent string) (*RobotsRules, error) {
	robotsURL := (&url.URL{Scheme: seed.Scheme, Host: seed.Host, Path: robotsTxtPath}).String()
	body, err := fetcher{client: client, userAgent: userAgent}.get(ctx, robotsURL, maxRobotsBodyBytes)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.status == http.StatusNotFound || se.status == http.StatusGone) {
			return &RobotsRules{}, nil
		}
		return &RobotsRules{}, fmt.Errorf("robots.txt: %w", err)
	}
	return ParseRobots(body, userAgent)
}

// Allowed reports whether u may be crawled.
func (r *RobotsRules) Allowed(u *url.URL) bool {
	if r == nil || r.group == nil {
		return true
	}
	return r.group.Test(u.RequestURI())
}

// CrawlDelay returns the Crawl-delay declared for the user agent, or 0.
func (r *RobotsRules) CrawlDelay() time.Duration {
	if r == nil || r.group == nil {
		return 0
	}
	return r.group.CrawlDelay
}

// Sitemaps returns the sitemap URLs advertised by robots.txt.
func (r *RobotsRules) Sitemaps() []string {
	if r == nil || r.data == nil {
		return nil
	}
	return append([]string(nil), r.data.Sitemaps...)
}
