package model

import "time"

// FailureKind classifies a recorded failure.
type FailureKind string

const (
	// FailureNavigation is a timeout, network, DNS or HTTP error while loading a page.
	FailureNavigation FailureKind = "navigation"
	// FailureAnalyzer is an error or panic inside one analyzer on one page.
	FailureAnalyzer FailureKind = "analyzer"
	// FailureEvaluation is an in-page script error outside of analyzers.
	FailureEvaluation FailureKind = "evaluation"
	// FailureRobots is a robots.txt fetch or parse problem. The crawl falls back to allow-all.
	FailureRobots FailureKind = "robots"
	// FailureSitemap is a sitemap fetch or parse problem.
	FailureSitemap FailureKind = "sitemap"
	// FailureDownload is a document probe problem. The entry is kept as skipped.
	FailureDownload FailureKind = "download"
	// FailureArtifact is an artifact that could not be written.
	FailureArtifact FailureKind = "artifact"
)

// Failure is a structured record of something that went wrong during a scan.
// Failures never abort the scan; they are collected for inspection.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	URL     string      `json:"url,omitempty"`
	Module  string      `json:"module,omitempty"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// NewFailure creates a failure record stamped with the current time.
func NewFailure(kind FailureKind, url string, err error) Failure {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Failure{
		Kind:    kind,
		URL:     url,
		Message: msg,
		At:      time.Now(),
	}
}
