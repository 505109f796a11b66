package analyzer

import (
	"embed"
	"strings"

	"github.com/nao1215/a11yscan/internal/browser"
)

//go:embed scripts/*.js
var scriptFS embed.FS

// Script names double as handler keys for browsertest fakes.
const (
	scriptContrast         = "contrast"
	scriptFocusReset       = "focus_reset"
	scriptFocusState       = "focus_state"
	scriptFocusables       = "focusables"
	scriptActiveElement    = "active_element"
	scriptLandmarks        = "landmarks"
	scriptLinks            = "links"
	scriptForms            = "forms"
	scriptHeadings         = "headings"
	scriptSkipLinks        = "skiplinks"
	scriptSkipLinkActivate = "skiplink_activate"
	scriptImages           = "images"
	scriptDocumentHTML     = "document_html"
	scriptAxeInject        = "axe_inject"
	scriptAxeRun           = "axe_run"
)

var (
	contrastScript         = loadScript(scriptContrast)
	focusResetScript       = loadScript(scriptFocusReset)
	focusStateScript       = loadScript(scriptFocusState)
	focusablesScript       = loadScript(scriptFocusables)
	activeElementScript    = loadScript(scriptActiveElement)
	landmarksScript        = loadScript(scriptLandmarks)
	linksScript            = loadScript(scriptLinks)
	formsScript            = loadScript(scriptForms)
	headingsScript         = loadScript(scriptHeadings)
	skipLinksScript        = loadScript(scriptSkipLinks)
	skipLinkActivateScript = loadScript(scriptSkipLinkActivate)
	imagesScript           = loadScript(scriptImages)
	documentHTMLScript     = loadScript(scriptDocumentHTML)
	axeInjectScript        = loadScript(scriptAxeInject)
	axeRunScript           = loadScript(scriptAxeRun)
)

// loadScript wraps scripts/<name>.js together with the shared helpers into a
// single function expression. The files are embedded, so a missing file is a
// build defect and panics at init.
func loadScript(name string) browser.Script {
	helpers, err := scriptFS.ReadFile("scripts/helpers.js")
	if err != nil {
		panic(err)
	}
	body, err := scriptFS.ReadFile("scripts/" + name + ".js")
	if err != nil {
		panic(err)
	}
	fn := strings.TrimSuffix(strings.TrimSpace(string(body)), ";")

	var b strings.Builder
	b.WriteString("(function () {\n")
	b.Write(helpers)
	b.WriteString("\nreturn ")
	b.WriteString(fn)
	b.WriteString(";\n})()")
	return browser.NewScript(name, b.String())
}
