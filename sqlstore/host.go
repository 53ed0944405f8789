package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/bulgusearch/bulgu"
)

// Compile-time interface verification.
var _ bulgu.HostService = (*HostService)(nil)

// HostService implements bulgu.HostService on a session.
type HostService struct {
	s *Session
}

// NewHostService creates a HostService bound to a session.
func NewHostService(s *Session) *HostService {
	return &HostService{s: s}
}

// UpsertHost inserts the host or replaces the row with the same domain.
// Score is carried over on conflict so the analyzer's writes survive
// re-crawls.
func (svc *HostService) UpsertHost(ctx context.Context, host *bulgu.Host) error {
	if err := host.Validate(); err != nil {
		return err
	}
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, svc.s.db.Rebind(`
		INSERT INTO hosts (domain, ip, port, status, score, last_crawled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain) DO UPDATE SET
			ip = excluded.ip,
			port = excluded.port,
			status = excluded.status,
			last_crawled = excluded.last_crawled
	`), host.Domain, host.IP, host.Port, host.Status, host.Score, formatTime(host.LastCrawled))
	return err
}

// SafeAddHost inserts the host only if no row with the same domain exists.
func (svc *HostService) SafeAddHost(ctx context.Context, host *bulgu.Host) (bool, error) {
	if err := host.Validate(); err != nil {
		return false, err
	}
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return false, err
	}
	res, err := conn.ExecContext(ctx, svc.s.db.Rebind(`
		INSERT INTO hosts (domain, ip, port, status, score, last_crawled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain) DO NOTHING
	`), host.Domain, host.IP, host.Port, host.Status, host.Score, formatTime(host.LastCrawled))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindHostByDomain returns the host keyed by domain.
func (svc *HostService) FindHostByDomain(ctx context.Context, domain string) (*bulgu.Host, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	row := conn.QueryRowContext(ctx, svc.s.db.Rebind(`
		SELECT domain, ip, port, status, score, last_crawled
		FROM hosts WHERE domain = ?
	`), domain)
	host, err := scanHost(row)
	if err == sql.ErrNoRows {
		return nil, bulgu.Errorf(bulgu.ENOTFOUND, "host not found")
	}
	return host, err
}

// FindHosts returns all host rows.
func (svc *HostService) FindHosts(ctx context.Context) ([]*bulgu.Host, error) {
	return svc.queryHosts(ctx, `
		SELECT domain, ip, port, status, score, last_crawled FROM hosts
	`)
}

// FindUnscannedHosts returns up to limit hosts never crawled, in random
// order so stale or unreachable endpoints don't monopolize the batches.
func (svc *HostService) FindUnscannedHosts(ctx context.Context, limit int) ([]*bulgu.Host, error) {
	return svc.queryHosts(ctx, `
		SELECT domain, ip, port, status, score, last_crawled
		FROM hosts WHERE last_crawled IS NULL
		ORDER BY RANDOM() LIMIT ?
	`, limit)
}

// MarkHostCrawled stamps LastCrawled on the row keyed by domain.
func (svc *HostService) MarkHostCrawled(ctx context.Context, domain string, at time.Time) error {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, svc.s.db.Rebind(`
		UPDATE hosts SET last_crawled = ? WHERE domain = ?
	`), at.UTC().Format(time.RFC3339), domain)
	return err
}

// ZeroScores resets every host score to 0.
func (svc *HostService) ZeroScores(ctx context.Context) error {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, `UPDATE hosts SET score = 0`)
	return err
}

// IncrementScore adds delta to the score of the row keyed by domain.
func (svc *HostService) IncrementScore(ctx context.Context, domain string, delta float64) error {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	res, err := conn.ExecContext(ctx, svc.s.db.Rebind(`
		UPDATE hosts SET score = score + ? WHERE domain = ?
	`), delta, domain)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return bulgu.Errorf(bulgu.ENOTFOUND, "host not found")
	}
	return nil
}

// RemoveDuplicateHosts keeps one row per domain and deletes the rest. The
// domain column is the primary key so this is normally a no-op, but the
// analyzer runs it defensively before rewriting scores.
func (svc *HostService) RemoveDuplicateHosts(ctx context.Context) error {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	if svc.s.db.Driver() == DriverPostgres {
		_, err = conn.ExecContext(ctx, `
			DELETE FROM hosts a USING hosts b
			WHERE a.ctid < b.ctid AND a.domain = b.domain
		`)
		return err
	}
	_, err = conn.ExecContext(ctx, `
		DELETE FROM hosts WHERE rowid NOT IN (
			SELECT MAX(rowid) FROM hosts GROUP BY domain
		)
	`)
	return err
}

// CountHosts returns the number of host rows.
func (svc *HostService) CountHosts(ctx context.Context) (int, error) {
	return svc.count(ctx, `SELECT COUNT(*) FROM hosts`)
}

// CountUnscannedHosts returns the number of hosts not yet crawled.
func (svc *HostService) CountUnscannedHosts(ctx context.Context) (int, error) {
	return svc.count(ctx, `SELECT COUNT(*) FROM hosts WHERE last_crawled IS NULL`)
}

func (svc *HostService) count(ctx context.Context, query string) (int, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (svc *HostService) queryHosts(ctx context.Context, query string, args ...any) ([]*bulgu.Host, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, svc.s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hosts []*bulgu.Host
	for rows.Next() {
		host, err := scanHost(rows)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHost(row rowScanner) (*bulgu.Host, error) {
	var host bulgu.Host
	var lastCrawled sql.NullString
	if err := row.Scan(&host.Domain, &host.IP, &host.Port, &host.Status, &host.Score, &lastCrawled); err != nil {
		return nil, err
	}
	t, err := parseTime(lastCrawled)
	if err != nil {
		return nil, err
	}
	host.LastCrawled = t
	return &host, nil
}

// formatTime renders an optional timestamp as nullable RFC3339 text.
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime reads a nullable RFC3339 column.
func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
