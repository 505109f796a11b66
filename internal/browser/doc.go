// Package browser defines the browser automation boundary used by the crawl
// engine and the analyzers, and implements it on top of chromedp.
//
// In-page work is expressed as typed calls: a named JavaScript function
// expression plus JSON-encoded arguments, whose JSON result is decoded into
// a Go value. No Go closures cross the automation boundary.
//
//	var out []headingNode
//	err := page.Evaluate(ctx, headingsScript.Invoke(), &out)
//
// The browsertest subpackage provides a scripted Page for unit tests.
package browser
