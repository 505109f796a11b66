// Package scan runs a complete accessibility scan of one site.
//
// A Runner drives the crawl engine with a single browser page, runs the
// analyzer pipeline on every page the engine loads, probes the documents
// the crawl discovered and then maps findings to WCAG, BITV and
// EN 301 549 references before computing the score.
//
// The result is a model.ScanResult whose summary is frozen.
package scan
