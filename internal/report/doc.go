// Package report renders scan results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: The plain ScanResult, as stored in scan.json
//   - FullJSONWriter: The result wrapped with version and rule counts
//   - MarkdownWriter: A shareable summary with norm references per rule
//
// Design decision: We separate report writing from the result types
// (which are in the model package) so new output formats do not touch
// the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
