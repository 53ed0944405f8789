package bulgu

import "context"

// Backlink is a directed edge from one URL to another with the anchor text
// of the <a> element it was observed in. Same-domain pairs are stored but
// filtered out at analysis time, not at insertion.
type Backlink struct {
	ID         string `json:"id"`
	SourceURL  string `json:"sourceUrl"`
	TargetURL  string `json:"targetUrl"`
	AnchorText string `json:"anchorText,omitempty"`
}

// Validate returns an error if the backlink cannot be stored.
func (b *Backlink) Validate() error {
	if b.SourceURL == "" {
		return Errorf(EINVALID, "backlink source URL required")
	}
	if b.TargetURL == "" {
		return Errorf(EINVALID, "backlink target URL required")
	}
	return nil
}

// BacklinkService manages backlink rows.
type BacklinkService interface {
	// AddBacklink inserts a backlink, assigning its ID.
	AddBacklink(ctx context.Context, link *Backlink) error

	// FindBacklinks returns all backlink rows.
	FindBacklinks(ctx context.Context) ([]*Backlink, error)

	// FindBacklinksByTarget returns backlinks pointing at targetURL.
	FindBacklinksByTarget(ctx context.Context, targetURL string) ([]*Backlink, error)

	// DeleteBacklinks removes every backlink from sourceURL to targetURL.
	// The page crawler calls this before re-inserting the links observed in
	// a fresh crawl so replays stay idempotent.
	DeleteBacklinks(ctx context.Context, sourceURL, targetURL string) error

	// CountBacklinks returns the number of backlink rows.
	CountBacklinks(ctx context.Context) (int, error)
}
