package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// statusError is a non-2xx answer to a plain HTTP fetch.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.url, e.status)
}

// fetcher performs the few plain HTTP requests made outside the browser:
// robots.txt and sitemaps.
type fetcher struct {
	client    *http.Client
	userAgent string
}

// get fetches rawURL and reads at most limit bytes of the body.
// Non-2xx responses return a *statusError.
func (f fetcher) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req) //nolint:gosec // URL derived from the crawl seed
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{url: rawURL, status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}
