// Package download checks the documents a crawl discovered.
//
// Documents are not analyzed for accessibility here. The Prober only asks
// the server about each file with a HEAD request, checks content type and
// size, and flags legacy binary office formats for manual review, so the
// report can list every document with a status a human can act on.
package download
