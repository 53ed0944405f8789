package bulgu

import (
	"context"
	"time"
)

// Page represents a crawled (or discovered but not yet crawled) web page.
// A seed row has every nullable field empty and LastCrawled nil; the page
// crawler populates the full record on first successful fetch.
type Page struct {
	URL         string     `json:"url"`
	StatusCode  int        `json:"statusCode,omitempty"`
	Title       string     `json:"title,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
	Description string     `json:"description,omitempty"`
	Body        []byte     `json:"-"`
	Favicon     []byte     `json:"-"`
	RobotsTxt   []byte     `json:"-"`
	Sitemap     []byte     `json:"-"`
	LastCrawled *time.Time `json:"lastCrawled,omitempty"`
}

// Validate returns an error if the page cannot be stored.
func (p *Page) Validate() error {
	if p.URL == "" {
		return Errorf(EINVALID, "page URL required")
	}
	return nil
}

// Crawled reports whether the page has been fetched at least once.
func (p *Page) Crawled() bool { return p.LastCrawled != nil }

// PageService manages page rows.
type PageService interface {
	// AddPage inserts a page row. Used for seed rows discovered from
	// internal links.
	AddPage(ctx context.Context, page *Page) error

	// UpsertPage inserts the page or replaces the row with the same URL.
	UpsertPage(ctx context.Context, page *Page) error

	// FindPageByURL returns the page keyed by URL.
	// Returns ENOTFOUND if no such row exists.
	FindPageByURL(ctx context.Context, url string) (*Page, error)

	// FindUnscannedPages returns up to limit pages with no LastCrawled
	// timestamp, in random order.
	FindUnscannedPages(ctx context.Context, limit int) ([]*Page, error)

	// FindCrawledPages returns every page with a non-null body.
	FindCrawledPages(ctx context.Context) ([]*Page, error)

	// CountPages returns the number of page rows.
	CountPages(ctx context.Context) (int, error)

	// CountUnscannedPages returns the number of pages not yet crawled.
	CountUnscannedPages(ctx context.Context) (int, error)
}
