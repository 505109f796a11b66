// Package model defines the core data structures used throughout a11yscan.
//
// This package contains the following main types:
//   - Finding: a single accessibility issue with severity and norm references
//   - AnalyzerResult: the output of one analyzer on one page
//   - PageResult: the outcome of visiting one URL
//   - ScanSummary and ScanResult: the aggregated outcome of a scan
//   - Failure: a structured record of an isolated failure
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, pipeline, analyzers, norm mapping and report
// writers all share these types.
package model
