package crawler

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// normalizer canonicalizes URLs for the visited set.
type normalizer struct {
	// stripQuery drops the query string, so ?page=2 and ?page=3 are one page.
	stripQuery bool

	// hashRoutes keeps "#/..." fragments used by hash-routed single page apps.
	hashRoutes bool
}

// normalize returns the canonical form of an absolute http(s) URL.
//
// The fragment is dropped (unless it is a hash route and hashRoutes is set),
// scheme and host are lowercased, default ports are removed and an empty
// path becomes "/".
func (n normalizer) normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return n.normalizeURL(u)
}

// NormalizeStartURL returns the form in which a crawl with default URL
// settings records raw as its start URL.
func NormalizeStartURL(raw string) (string, error) {
	return normalizer{}.normalize(raw)
}

func (n normalizer) normalizeURL(in *url.URL) (string, error) {
	u := *in
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", errUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidSeed, in.String())
	}

	u.Host = canonicalHost(u.Scheme, u.Host)
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	if n.stripQuery {
		u.RawQuery = ""
		u.ForceQuery = false
	}

	fragment := ""
	if n.hashRoutes && strings.HasPrefix(u.Fragment, "/") {
		fragment = u.Fragment
	}
	u.Fragment = fragment
	u.RawFragment = ""

	return u.String(), nil
}

// canonicalHost lowercases host and removes the scheme's default port.
func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}

// effectivePort returns the explicit port or the scheme's default.
func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	if strings.EqualFold(u.Scheme, "https") {
		return "443"
	}
	return "80"
}

// resolve turns href into an absolute URL relative to base. Links the
// crawler never follows (javascript:, mailto:, tel:, data:, bare "#")
// yield nil.
func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return nil
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:", "blob:"} {
		if strings.HasPrefix(lower, prefix) {
			return nil
		}
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	return u
}

// pathFilter applies the configured ignore and follow glob patterns to URL paths.
type pathFilter struct {
	ignore []string
	follow []string
}

// allows reports whether the URL passes the filter. Ignore patterns win;
// when follow patterns are set the path must match one of them.
func (f pathFilter) allows(u *url.URL) bool {
	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, pattern := range f.ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, pattern := range f.follow {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern matches a URL path against a glob pattern.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches the extension anywhere
//   - other patterns use filepath.Match on the full path, and on the last
//     segment when the pattern has no slash
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}
	return false
}
