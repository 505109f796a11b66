// Package main provides the entry point for the a11yscan CLI.
//
// a11yscan crawls a website with a headless browser, runs accessibility
// analyzers on every rendered page and maps the findings to WCAG 2.1,
// BITV 2.0 and EN 301 549.
//
// Usage:
//
//	a11yscan scan <url>
//	a11yscan compare <url>
//	a11yscan norms audit <scan.json>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
