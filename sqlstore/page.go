package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/bulgusearch/bulgu"
)

// Compile-time interface verification.
var _ bulgu.PageService = (*PageService)(nil)

// PageService implements bulgu.PageService on a session.
type PageService struct {
	s *Session
}

// NewPageService creates a PageService bound to a session.
func NewPageService(s *Session) *PageService {
	return &PageService{s: s}
}

// AddPage inserts a page row. Seed rows inserted for discovered internal
// links race with concurrent discoveries of the same URL, so conflicts on
// the primary key are ignored.
func (svc *PageService) AddPage(ctx context.Context, page *bulgu.Page) error {
	if err := page.Validate(); err != nil {
		return err
	}
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, svc.s.db.Rebind(`
		INSERT INTO pages (page_url, status_code, title, keywords, description,
			body, favicon, robotstxt, sitemap, last_crawled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (page_url) DO NOTHING
	`), page.URL, page.StatusCode, page.Title, joinKeywords(page.Keywords), page.Description,
		page.Body, page.Favicon, page.RobotsTxt, page.Sitemap, formatTime(page.LastCrawled))
	return err
}

// UpsertPage inserts the page or replaces the row with the same URL.
func (svc *PageService) UpsertPage(ctx context.Context, page *bulgu.Page) error {
	if err := page.Validate(); err != nil {
		return err
	}
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, svc.s.db.Rebind(`
		INSERT INTO pages (page_url, status_code, title, keywords, description,
			body, favicon, robotstxt, sitemap, last_crawled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (page_url) DO UPDATE SET
			status_code = excluded.status_code,
			title = excluded.title,
			keywords = excluded.keywords,
			description = excluded.description,
			body = excluded.body,
			favicon = excluded.favicon,
			robotstxt = excluded.robotstxt,
			sitemap = excluded.sitemap,
			last_crawled = excluded.last_crawled
	`), page.URL, page.StatusCode, page.Title, joinKeywords(page.Keywords), page.Description,
		page.Body, page.Favicon, page.RobotsTxt, page.Sitemap, formatTime(page.LastCrawled))
	return err
}

// FindPageByURL returns the page keyed by URL.
func (svc *PageService) FindPageByURL(ctx context.Context, url string) (*bulgu.Page, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	row := conn.QueryRowContext(ctx, svc.s.db.Rebind(`
		SELECT page_url, status_code, title, keywords, description,
			body, favicon, robotstxt, sitemap, last_crawled
		FROM pages WHERE page_url = ?
	`), url)
	page, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, bulgu.Errorf(bulgu.ENOTFOUND, "page not found")
	}
	return page, err
}

// FindUnscannedPages returns up to limit pages never crawled, in random
// order.
func (svc *PageService) FindUnscannedPages(ctx context.Context, limit int) ([]*bulgu.Page, error) {
	return svc.queryPages(ctx, `
		SELECT page_url, status_code, title, keywords, description,
			body, favicon, robotstxt, sitemap, last_crawled
		FROM pages WHERE last_crawled IS NULL
		ORDER BY RANDOM() LIMIT ?
	`, limit)
}

// FindCrawledPages returns every page with a non-null body, the indexer's
// input set.
func (svc *PageService) FindCrawledPages(ctx context.Context) ([]*bulgu.Page, error) {
	return svc.queryPages(ctx, `
		SELECT page_url, status_code, title, keywords, description,
			body, favicon, robotstxt, sitemap, last_crawled
		FROM pages WHERE body IS NOT NULL
	`)
}

// CountPages returns the number of page rows.
func (svc *PageService) CountPages(ctx context.Context) (int, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountUnscannedPages returns the number of pages not yet crawled.
func (svc *PageService) CountUnscannedPages(ctx context.Context) (int, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE last_crawled IS NULL`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (svc *PageService) queryPages(ctx context.Context, query string, args ...any) ([]*bulgu.Page, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, svc.s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*bulgu.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

func scanPage(row rowScanner) (*bulgu.Page, error) {
	var page bulgu.Page
	var keywords string
	var lastCrawled sql.NullString
	if err := row.Scan(&page.URL, &page.StatusCode, &page.Title, &keywords, &page.Description,
		&page.Body, &page.Favicon, &page.RobotsTxt, &page.Sitemap, &lastCrawled); err != nil {
		return nil, err
	}
	page.Keywords = splitKeywords(keywords)
	t, err := parseTime(lastCrawled)
	if err != nil {
		return nil, err
	}
	page.LastCrawled = t
	return &page, nil
}

func joinKeywords(keywords []string) string {
	return strings.Join(keywords, ",")
}

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
