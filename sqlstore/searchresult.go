package sqlstore

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/bulgusearch/bulgu"
)

// Compile-time interface verification.
var _ bulgu.SearchResultService = (*SearchResultService)(nil)

// SearchResultService implements bulgu.SearchResultService on a session.
type SearchResultService struct {
	s *Session
}

// NewSearchResultService creates a SearchResultService bound to a session.
func NewSearchResultService(s *Session) *SearchResultService {
	return &SearchResultService{s: s}
}

// UpsertSearchResult inserts the cache row or replaces the payload of the
// row with the same query. The ID of an existing row is preserved.
func (svc *SearchResultService) UpsertSearchResult(ctx context.Context, result *bulgu.SearchResult) error {
	if err := result.Validate(); err != nil {
		return err
	}
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	_, err = conn.ExecContext(ctx, svc.s.db.Rebind(`
		INSERT INTO search_results (id, query, results)
		VALUES (?, ?, ?)
		ON CONFLICT (query) DO UPDATE SET
			results = excluded.results
	`), result.ID, result.Query, result.Results)
	return err
}

// FindSearchResultByQuery returns the cached row for a query.
func (svc *SearchResultService) FindSearchResultByQuery(ctx context.Context, query string) (*bulgu.SearchResult, error) {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	var result bulgu.SearchResult
	err = conn.QueryRowContext(ctx, svc.s.db.Rebind(`
		SELECT id, query, results FROM search_results WHERE query = ?
	`), query).Scan(&result.ID, &result.Query, &result.Results)
	if err == sql.ErrNoRows {
		return nil, bulgu.Errorf(bulgu.ENOTFOUND, "search result not found")
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteAllSearchResults wipes the persisted query cache.
func (svc *SearchResultService) DeleteAllSearchResults(ctx context.Context) error {
	conn, err := svc.s.Conn(ctx)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, `DELETE FROM search_results`)
	return err
}
