package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
)

// Context is what an analyzer sees while it runs on one page.
// A fresh Context is created for every analyzer invocation.
type Context struct {
	// Page is the loaded page. Analyzers may interact with it, e.g. press Tab.
	Page browser.Page

	// URL is the final URL of the page after redirects.
	URL string

	// Depth is the crawl depth of the page.
	Depth int

	// Logger is scoped to the running module and page.
	Logger *slog.Logger

	// Options are the per-module options from the configuration.
	Options config.Options

	module    string
	prior     map[string]*model.AnalyzerResult
	artifacts *ArtifactStore
}

// Module returns the slug of the running analyzer.
func (c *Context) Module() string {
	return c.module
}

// Prior returns the result of an analyzer that already ran on this page.
func (c *Context) Prior(slug string) (*model.AnalyzerResult, bool) {
	r, ok := c.prior[slug]
	return r, ok
}

// ArtifactsEnabled reports whether saved artifacts are persisted.
func (c *Context) ArtifactsEnabled() bool {
	return c.artifacts.Root() != ""
}

// SaveArtifact writes v as indented JSON and returns the written path.
// When artifact storage is disabled it returns an empty path and no error.
func (c *Context) SaveArtifact(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode artifact %s: %w", name, err)
	}
	return c.SaveBlob(name, data)
}

// SaveBlob writes raw bytes, e.g. a PNG screenshot.
func (c *Context) SaveBlob(name string, data []byte) (string, error) {
	return c.artifacts.write(c.module, c.URL, name, data)
}

// ArtifactStore writes analyzer artifacts below a root directory using the
// layout <root>/<module>/<page-key>/<name>.
type ArtifactStore struct {
	root string
}

// NewArtifactStore creates a store rooted at dir. An empty dir disables storage.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{root: dir}
}

// Root returns the root directory.
func (s *ArtifactStore) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

func (s *ArtifactStore) write(module, pageURL, name string, data []byte) (string, error) {
	if s == nil || s.root == "" {
		return "", nil
	}
	dir := filepath.Join(s.root, module, PageKey(pageURL))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	return path, nil
}

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// PageKey returns a stable, filesystem-safe directory name for a page URL.
// A short hash keeps keys unique when sanitized paths collide.
func PageKey(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	suffix := hex.EncodeToString(sum[:4])

	label := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		label = u.Host + u.Path
	}
	label = strings.Trim(unsafePathChars.ReplaceAllString(label, "_"), "_.")
	if len(label) > 80 {
		label = label[:80]
	}
	if label == "" {
		return suffix
	}
	return label + "-" + suffix
}
