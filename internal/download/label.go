package download

import (
	"net/url"
	"path"
	"strings"
)

// legacyTypes are binary office formats that cannot be checked automatically.
var legacyTypes = map[string]bool{
	"doc": true,
	"ppt": true,
	"xls": true,
}

// Extension returns the lowercased file extension of the URL path without
// the dot, e.g. "pdf".
func Extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
}

// IsLegacy reports whether the URL points to a legacy binary office format.
func IsLegacy(rawURL string) bool {
	return legacyTypes[Extension(rawURL)]
}

// Label returns a human readable name for a document link: the link text,
// or the file name when the link has no text, followed by the document type
// unless the name already mentions it, e.g. "Annual report (PDF)".
func Label(rawURL, linkText string) string {
	name := strings.Join(strings.Fields(linkText), " ")
	if name == "" {
		name = fileName(rawURL)
	}
	if name == "" {
		return rawURL
	}

	ext := Extension(rawURL)
	if ext == "" || strings.Contains(strings.ToLower(name), ext) {
		return name
	}
	return name + " (" + strings.ToUpper(ext) + ")"
}

func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}
