package bulgu

import "context"

// FrontierURL is a base URL discovered during crawling but not yet validated
// as reachable. A normalized base URL lives in exactly one of the frontier
// and the host table at any time: the resolver moves entries to the host
// table on success and deletes them on failure.
type FrontierURL struct {
	URL string `json:"url"`
}

// FrontierService manages the URL frontier queue.
type FrontierService interface {
	// SafeAddURL inserts the URL only if it is not already queued.
	// Returns true if a row was inserted. Empty URLs are ignored.
	SafeAddURL(ctx context.Context, url string) (bool, error)

	// FindURL returns the frontier entry for url.
	// Returns ENOTFOUND if no such entry exists.
	FindURL(ctx context.Context, url string) (*FrontierURL, error)

	// FindURLs returns up to limit frontier entries.
	FindURLs(ctx context.Context, limit int) ([]*FrontierURL, error)

	// DeleteURL removes the entry for url. Deleting a missing entry is not
	// an error.
	DeleteURL(ctx context.Context, url string) error

	// CountURLs returns the number of queued URLs.
	CountURLs(ctx context.Context) (int, error)
}
