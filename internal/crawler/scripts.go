package crawler

import (
	"embed"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
)

//go:embed scripts/*.js
var scriptFS embed.FS

// Script names double as handler keys for browsertest fakes.
const (
	ScriptRouteHook    = "route_hook"
	ScriptRouteRead    = "route_read"
	ScriptDocumentHTML = "crawl_document_html"
	ScriptConsent      = "consent"
	ScriptInteractions = "interactions"
)

var (
	routeHookScript    = loadScript(ScriptRouteHook, "route_hook")
	routeReadScript    = loadScript(ScriptRouteRead, "route_read")
	documentHTMLScript = loadScript(ScriptDocumentHTML, "document_html")
	consentScript      = loadScript(ScriptConsent, "consent")
	interactionsScript = loadScript(ScriptInteractions, "interactions")
)

func loadScript(name, file string) browser.Script {
	body, err := scriptFS.ReadFile("scripts/" + file + ".js")
	if err != nil {
		panic(err)
	}
	return browser.NewScript(name, strings.TrimSuffix(strings.TrimSpace(string(body)), ";"))
}

// documentSnapshot is the answer of the document_html script.
type documentSnapshot struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// consentResult is the answer of the consent script.
type consentResult struct {
	Clicked bool   `json:"clicked"`
	Label   string `json:"label"`
}
