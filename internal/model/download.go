package model

// DownloadStatus is the state of a discovered document.
type DownloadStatus string

const (
	// DownloadPending documents were discovered but not probed yet.
	DownloadPending DownloadStatus = "pending"
	// DownloadProbed documents answered the probe and are within limits.
	DownloadProbed DownloadStatus = "probed"
	// DownloadSkipped documents could not be fetched or exceed limits.
	DownloadSkipped DownloadStatus = "skipped"
	// DownloadManualReview documents need a human check, e.g. legacy binary office formats.
	DownloadManualReview DownloadStatus = "manual-review"
)

// DownloadEntry is a document link found during the crawl.
type DownloadEntry struct {
	URL         string         `json:"url"`
	PageURL     string         `json:"pageUrl"`
	Label       string         `json:"label"`
	ContentType string         `json:"contentType,omitempty"`
	SizeBytes   int64          `json:"sizeBytes,omitempty"`
	Status      DownloadStatus `json:"status"`
	Note        string         `json:"note,omitempty"`
}

// NeedsManualReview reports whether the entry counts as incomplete.
func (d DownloadEntry) NeedsManualReview() bool {
	return d.Status == DownloadManualReview
}
