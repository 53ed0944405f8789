package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/bulgusearch/bulgu"
)

// Hot-cache retention for answered queries.
const (
	DefaultCacheTTL     = 5 * time.Minute
	DefaultCacheCleanup = 10 * time.Minute
)

// cachedAnswer is the serialized form of a ranking result, stored as JSON in
// both cache layers.
type cachedAnswer struct {
	Results []bulgu.RankedPage `json:"results"`
	Total   int                `json:"total"`
}

// Searcher answers raw query strings. It consults an in-process TTL cache,
// then the persisted SearchResult table, and only then ranks; cached answers
// are refreshed in the background after being served.
type Searcher struct {
	ranker  bulgu.Ranker
	results bulgu.SearchResultService
	session bulgu.Session
	logger  *slog.Logger

	hot *gocache.Cache

	mu      sync.Mutex // serializes store access with background refreshes
	refresh sync.WaitGroup
}

var _ bulgu.Searcher = (*Searcher)(nil)

// NewSearcher returns a Searcher over the given ranker and result cache.
func NewSearcher(ranker bulgu.Ranker, results bulgu.SearchResultService, session bulgu.Session, logger *slog.Logger) *Searcher {
	return &Searcher{
		ranker:  ranker,
		results: results,
		session: session,
		logger:  logger,
		hot:     gocache.New(DefaultCacheTTL, DefaultCacheCleanup),
	}
}

// Search answers a raw query string. The query is normalized word by word
// before lookup, so "Çay" and "cay" share one cache entry.
// Returns EINVALID when no word of the query survives normalization.
func (s *Searcher) Search(ctx context.Context, rawQuery string, topK int) ([]bulgu.RankedPage, int, error) {
	words := normalizeQuery(strings.Fields(rawQuery))
	if len(words) == 0 {
		return nil, 0, bulgu.Errorf(bulgu.EINVALID, "query %q has no searchable words", rawQuery)
	}
	query := strings.Join(words, " ")
	key := cacheKey(query)

	if cached, ok := s.hot.Get(key); ok {
		answer := cached.(*cachedAnswer)
		s.refreshLater(query, key, topK)
		return truncate(answer.Results, topK), answer.Total, nil
	}

	if answer := s.lookupStored(ctx, query); answer != nil {
		s.hot.SetDefault(key, answer)
		s.refreshLater(query, key, topK)
		return truncate(answer.Results, topK), answer.Total, nil
	}

	results, total, err := s.rank(ctx, words, topK)
	if err != nil {
		return nil, 0, err
	}
	s.store(ctx, query, key, &cachedAnswer{Results: results, Total: total})
	return results, total, nil
}

// rank runs the ranker under the store mutex; the shared session is not safe
// for concurrent queries from background refreshes.
func (s *Searcher) rank(ctx context.Context, words []string, topK int) ([]bulgu.RankedPage, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ranker.Rank(ctx, words, topK)
}

// WaitRefresh blocks until every in-flight background refresh has finished.
func (s *Searcher) WaitRefresh() {
	s.refresh.Wait()
}

// lookupStored reads the persisted cache row for query, or nil on a miss or
// an undecodable payload.
func (s *Searcher) lookupStored(ctx context.Context, query string) *cachedAnswer {
	s.mu.Lock()
	row, err := s.results.FindSearchResultByQuery(ctx, query)
	s.mu.Unlock()
	if err != nil {
		if bulgu.ErrorCode(err) != bulgu.ENOTFOUND {
			s.logger.Warn("search cache lookup failed", "query", query, "err", err)
		}
		return nil
	}
	var answer cachedAnswer
	if err := json.Unmarshal(row.Results, &answer); err != nil {
		s.logger.Warn("discarding undecodable search cache row", "query", query, "err", err)
		return nil
	}
	return &answer
}

// store writes the answer to both cache layers. Persistence failures are
// logged, not returned; the caller already has the answer.
func (s *Searcher) store(ctx context.Context, query, key string, answer *cachedAnswer) {
	s.hot.SetDefault(key, answer)

	payload, err := json.Marshal(answer)
	if err != nil {
		s.logger.Warn("search result not serializable", "query", query, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.results.UpsertSearchResult(ctx, &bulgu.SearchResult{Query: query, Results: payload}); err != nil {
		s.logger.Warn("search cache write failed", "query", query, "err", err)
		return
	}
	if err := s.session.Commit(ctx); err != nil {
		s.logger.Warn("search cache commit failed", "query", query, "err", err)
	}
}

// refreshLater re-ranks the query in the background and replaces both cache
// layers, so a served cache hit converges on the current corpus.
func (s *Searcher) refreshLater(query, key string, topK int) {
	s.refresh.Add(1)
	go func() {
		defer s.refresh.Done()
		ctx := context.Background()
		results, total, err := s.rank(ctx, strings.Fields(query), topK)
		if err != nil {
			s.logger.Warn("background refresh failed", "query", query, "err", err)
			return
		}
		s.store(ctx, query, key, &cachedAnswer{Results: results, Total: total})
	}()
}

func truncate(results []bulgu.RankedPage, topK int) []bulgu.RankedPage {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}

func cacheKey(query string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(query))
}
