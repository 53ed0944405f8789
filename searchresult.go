package bulgu

import "context"

// SearchResult caches the serialized ranking output for a preprocessed
// query. Results are stored as canonical JSON, never a host-language
// serialization format.
type SearchResult struct {
	ID      string `json:"id"`
	Query   string `json:"query"`
	Results []byte `json:"results"`
}

// Validate returns an error if the cache row cannot be stored.
func (r *SearchResult) Validate() error {
	if r.Query == "" {
		return Errorf(EINVALID, "search result query required")
	}
	if len(r.Results) == 0 {
		return Errorf(EINVALID, "search result payload required")
	}
	return nil
}

// SearchResultService manages the persisted query cache.
type SearchResultService interface {
	// UpsertSearchResult inserts the row or replaces the one with the same
	// query.
	UpsertSearchResult(ctx context.Context, result *SearchResult) error

	// FindSearchResultByQuery returns the cached row for a query.
	// Returns ENOTFOUND on a cache miss.
	FindSearchResultByQuery(ctx context.Context, query string) (*SearchResult, error)

	// DeleteAllSearchResults wipes the cache.
	DeleteAllSearchResults(ctx context.Context) error
}
