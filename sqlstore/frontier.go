package sqlstore

import (
	"context"
	"database/sql"

	"github.com/bulgusearch/bulgu"
)

// Compile-time interface verification.
var _ bulgu.FrontierService = (*FrontierService)(nil)

// FrontierService implements bulgu.FrontierService on a session.
type FrontierService struct {
	s *Session
}

// NewFrontierService creates a FrontierService bound to a session.
func NewFrontierService(s *Session) *FrontierService {
	return &FrontierService{s: s}
}

// SafeAddURL inserts the URL only if it is not already queued.
func (svc *FrontierService) SafeAddURL(ctx context.Context, url string) (bool, error) {
	if url == "" {
		return false, nil
	}
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return false, err
	}
	res, err := conn.ExecContext(ctx, svc.s.db.Rebind(`
		INSERT INTO url_frontier (url) VALUES (?)
		ON CONFLICT (url) DO NOTHING
	`), url)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindURL returns the frontier entry for url.
func (svc *FrontierService) FindURL(ctx context.Context, url string) (*bulgu.FrontierURL, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	var entry bulgu.FrontierURL
	err = conn.QueryRowContext(ctx, svc.s.db.Rebind(`
		SELECT url FROM url_frontier WHERE url = ?
	`), url).Scan(&entry.URL)
	if err == sql.ErrNoRows {
		return nil, bulgu.Errorf(bulgu.ENOTFOUND, "frontier URL not found")
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindURLs returns up to limit frontier entries in insertion order.
func (svc *FrontierService) FindURLs(ctx context.Context, limit int) ([]*bulgu.FrontierURL, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, svc.s.db.Rebind(`
		SELECT url FROM url_frontier LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*bulgu.FrontierURL
	for rows.Next() {
		var entry bulgu.FrontierURL
		if err := rows.Scan(&entry.URL); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// DeleteURL removes the entry for url.
func (svc *FrontierService) DeleteURL(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, svc.s.db.Rebind(`
		DELETE FROM url_frontier WHERE url = ?
	`), url)
	return err
}

// CountURLs returns the number of queued URLs.
func (svc *FrontierService) CountURLs(ctx context.Context) (int, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM url_frontier`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
