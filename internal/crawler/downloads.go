package crawler

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

// downloadSet diverts document links away from the page frontier.
//
// Document links are never navigated. They are recorded as pending download
// entries when downloads are enabled, deduplicated by URL and capped per
// page and in total. A navigated URL answering with a document content type
// is diverted the same way.
type downloadSet struct {
	enabled      bool
	types        map[string]bool
	contentTypes map[string]bool
	maxPerPage   int
	maxTotal     int

	seen    map[string]bool
	entries []model.DownloadEntry
}

func newDownloadSet(cfg config.Downloads) *downloadSet {
	types := cfg.Types
	if len(types) == 0 {
		types = config.DefaultDownloadTypes()
	}
	contentTypes := cfg.ContentTypes
	if len(contentTypes) == 0 {
		contentTypes = config.DefaultDownloadContentTypes()
	}
	d := &downloadSet{
		enabled:      cfg.Enabled,
		types:        make(map[string]bool, len(types)),
		contentTypes: make(map[string]bool, len(contentTypes)),
		maxPerPage:   cfg.MaxPerPage,
		maxTotal:     cfg.MaxTotal,
		seen:         make(map[string]bool),
	}
	if d.maxPerPage <= 0 {
		d.maxPerPage = config.DefaultDownloadMaxPerPage
	}
	if d.maxTotal <= 0 {
		d.maxTotal = config.DefaultDownloadMaxTotal
	}
	for _, t := range types {
		d.types[strings.ToLower(strings.TrimPrefix(t, "."))] = true
	}
	for _, t := range contentTypes {
		d.contentTypes[strings.ToLower(t)] = true
	}
	return d
}

// isDocumentType reports whether a response content type, parameters
// ignored, is one of the document content types.
func (d *downloadSet) isDocumentType(contentType string) bool {
	return d.contentTypes[mediaType(contentType)]
}

// mediaType returns the lower-cased content type without parameters.
func mediaType(contentType string) string {
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		return parsed
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// isDocument reports whether the URL path ends in a document extension.
func (d *downloadSet) isDocument(u *url.URL) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	return ext != "" && d.types[ext]
}

// add records document links found on pageURL and returns how many new
// entries were added. Links already recorded from another page do not count
// towards the per-page cap.
func (d *downloadSet) add(pageURL string, docs []Link) int {
	if !d.enabled {
		return 0
	}
	added := 0
	for _, l := range docs {
		if len(d.entries) >= d.maxTotal || added >= d.maxPerPage {
			break
		}
		if d.seen[l.URL] {
			continue
		}
		d.seen[l.URL] = true
		d.entries = append(d.entries, model.DownloadEntry{
			URL:     l.URL,
			PageURL: pageURL,
			Label:   l.Text,
			Status:  model.DownloadPending,
		})
		added++
	}
	return added
}
