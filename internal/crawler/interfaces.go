package crawler

import (
	"context"
	"net/url"
	"time"
)

// Downloader fetches the body of a page. Implementations must return promptly
// once ctx is cancelled.
type Downloader interface {
	Download(ctx context.Context, target *url.URL) (string, error)
}

// LinkExtractor returns the raw href values found in an HTML document.
type LinkExtractor func(html string) []string

// VisitStore records discovered URLs. Record must be atomic: among concurrent
// callers for the same URL exactly one observes first == true.
type VisitStore interface {
	Record(u *url.URL) (first bool, err error)
	UniqueURLsForDomain(domain *url.URL) ([]*url.URL, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
