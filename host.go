package bulgu

import (
	"context"
	"time"
)

// Host represents a reachable HTTP endpoint keyed by its base URL
// ("scheme://netloc"). Rows are created by the IP scanner and the
// URL-frontier resolver; the page crawler stamps LastCrawled and the
// backlink analyzer rewrites Score.
type Host struct {
	Domain      string     `json:"domain"`
	IP          string     `json:"ip,omitempty"`
	Port        int        `json:"port,omitempty"`
	Status      int        `json:"status"`
	Score       float64    `json:"score"`
	LastCrawled *time.Time `json:"lastCrawled,omitempty"`
}

// Validate returns an error if the host row cannot be stored.
func (h *Host) Validate() error {
	if h.Domain == "" {
		return Errorf(EINVALID, "host domain required")
	}
	return nil
}

// HostService manages host (IP/domain) rows.
type HostService interface {
	// UpsertHost inserts the host or replaces the row with the same domain.
	UpsertHost(ctx context.Context, host *Host) error

	// SafeAddHost inserts the host only if no row with the same domain
	// exists. Returns true if a row was inserted.
	SafeAddHost(ctx context.Context, host *Host) (bool, error)

	// FindHostByDomain returns the host keyed by domain.
	// Returns ENOTFOUND if no such row exists.
	FindHostByDomain(ctx context.Context, domain string) (*Host, error)

	// FindHosts returns all host rows.
	FindHosts(ctx context.Context) ([]*Host, error)

	// FindUnscannedHosts returns up to limit hosts with no LastCrawled
	// timestamp, in random order.
	FindUnscannedHosts(ctx context.Context, limit int) ([]*Host, error)

	// MarkHostCrawled stamps LastCrawled on the row keyed by domain.
	MarkHostCrawled(ctx context.Context, domain string, at time.Time) error

	// ZeroScores resets every host score to 0.
	ZeroScores(ctx context.Context) error

	// IncrementScore adds delta to the score of the row keyed by domain.
	// Returns ENOTFOUND if no such row exists.
	IncrementScore(ctx context.Context, domain string, delta float64) error

	// RemoveDuplicateHosts keeps one row per domain and deletes the rest.
	RemoveDuplicateHosts(ctx context.Context) error

	// CountHosts returns the number of host rows.
	CountHosts(ctx context.Context) (int, error)

	// CountUnscannedHosts returns the number of hosts not yet crawled.
	CountUnscannedHosts(ctx context.Context) (int, error)
}
