package sqlstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/bulgusearch/bulgu"
)

// Compile-time interface verification.
var _ bulgu.BacklinkService = (*BacklinkService)(nil)

// BacklinkService implements bulgu.BacklinkService on a session.
type BacklinkService struct {
	s *Session
}

// NewBacklinkService creates a BacklinkService bound to a session.
func NewBacklinkService(s *Session) *BacklinkService {
	return &BacklinkService{s: s}
}

// AddBacklink inserts a backlink row, assigning its ID.
func (svc *BacklinkService) AddBacklink(ctx context.Context, link *bulgu.Backlink) error {
	if err := link.Validate(); err != nil {
		return err
	}
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	link.ID = uuid.New().String()
	_, err = conn.ExecContext(ctx, svc.s.db.Rebind(`
		INSERT INTO backlinks (id, source_url, target_url, anchor_text)
		VALUES (?, ?, ?, ?)
	`), link.ID, link.SourceURL, link.TargetURL, link.AnchorText)
	return err
}

// FindBacklinks returns all backlink rows.
func (svc *BacklinkService) FindBacklinks(ctx context.Context) ([]*bulgu.Backlink, error) {
	return svc.queryBacklinks(ctx, `
		SELECT id, source_url, target_url, anchor_text FROM backlinks
	`)
}

// FindBacklinksByTarget returns backlinks pointing at targetURL.
func (svc *BacklinkService) FindBacklinksByTarget(ctx context.Context, targetURL string) ([]*bulgu.Backlink, error) {
	return svc.queryBacklinks(ctx, `
		SELECT id, source_url, target_url, anchor_text
		FROM backlinks WHERE target_url = ?
	`, targetURL)
}

// DeleteBacklinks removes every backlink from sourceURL to targetURL.
func (svc *BacklinkService) DeleteBacklinks(ctx context.Context, sourceURL, targetURL string) error {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, svc.s.db.Rebind(`
		DELETE FROM backlinks WHERE source_url = ? AND target_url = ?
	`), sourceURL, targetURL)
	return err
}

// CountBacklinks returns the number of backlink rows.
func (svc *BacklinkService) CountBacklinks(ctx context.Context) (int, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM backlinks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (svc *BacklinkService) queryBacklinks(ctx context.Context, query string, args ...any) ([]*bulgu.Backlink, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, svc.s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*bulgu.Backlink
	for rows.Next() {
		var link bulgu.Backlink
		if err := rows.Scan(&link.ID, &link.SourceURL, &link.TargetURL, &link.AnchorText); err != nil {
			return nil, err
		}
		links = append(links, &link)
	}
	return links, rows.Err()
}
