// Package crawler walks a website through a real browser page and hands
// every loaded page to the analyzer pipeline.
//
// # Traversal
//
// The Engine keeps a breadth-first frontier of normalized URLs. A URL enters
// the frontier once: when it is in scope, within the depth limit, passes the
// configured path filters and is not dropped by robots.txt. The crawl ends
// when the frontier is empty or MaxPages pages were visited.
//
// # Robots
//
//   - respect: disallowed URLs are never visited
//   - audit: disallowed URLs are visited in simulate mode (links are
//     extracted, analyzers do not run) and counted
//   - ignore: robots.txt is not fetched
//
// # Discovery
//
// Links are read from the rendered DOM, optionally together with iframe
// URLs and client-side routes recorded by a history hook. Document links
// (pdf, docx, ...) are diverted to a download list and never navigated.
//
// # Usage
//
//	engine := crawler.New(page, cfg.Crawl, crawler.WithLogger(logger))
//	result, err := engine.Run(ctx, "https://example.com", handler)
package crawler
