package rank_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulgusearch/bulgu"
	"github.com/bulgusearch/bulgu/goquery"
	"github.com/bulgusearch/bulgu/index"
	"github.com/bulgusearch/bulgu/rank"
	"github.com/bulgusearch/bulgu/sqlstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type rankFixture struct {
	session   *sqlstore.Session
	hosts     *sqlstore.HostService
	pages     *sqlstore.PageService
	entries   *sqlstore.IndexService
	backlinks *sqlstore.BacklinkService
	indexer   *index.Indexer
	analyzer  *rank.Analyzer
	ranker    *rank.Ranker
}

func newRankFixture(t *testing.T) *rankFixture {
	t.Helper()

	db := sqlstore.NewDB(sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })

	session := db.NewSession()
	f := &rankFixture{
		session:   session,
		hosts:     sqlstore.NewHostService(session),
		pages:     sqlstore.NewPageService(session),
		entries:   sqlstore.NewIndexService(session),
		backlinks: sqlstore.NewBacklinkService(session),
	}
	f.indexer = &index.Indexer{
		Pages:     f.pages,
		Index:     f.entries,
		Session:   session,
		Extractor: goquery.NewExtractor(100000),
		Logger:    discardLogger(),
	}
	f.analyzer = &rank.Analyzer{
		Hosts:     f.hosts,
		Backlinks: f.backlinks,
		Session:   session,
		Logger:    discardLogger(),
	}
	f.ranker = rank.NewRanker(f.entries, f.pages, f.hosts)
	return f
}

// seedPage stores a crawled page; call index() once after all seeds.
func (f *rankFixture) seedPage(t *testing.T, url, body string) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.pages.UpsertPage(context.Background(), &bulgu.Page{
		URL:         url,
		StatusCode:  200,
		Body:        []byte(body),
		LastCrawled: &now,
	}))
}

func (f *rankFixture) index(t *testing.T) {
	t.Helper()
	_, err := f.indexer.Run(context.Background())
	require.NoError(t, err)
}

func urlsOf(pages []bulgu.RankedPage) []string {
	urls := make([]string, len(pages))
	for i, p := range pages {
		urls[i] = p.Document.URL
	}
	return urls
}

func TestRanker_Rank(t *testing.T) {
	t.Parallel()

	t.Run("single candidate is pinned and returned", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ctx := context.Background()
		f.seedPage(t, "http://a.example/p", `<p>foo foo bar</p>`)
		f.index(t)

		ranked, total, err := f.ranker.Rank(ctx, []string{"foo"}, 10)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, 1, total)
		assert.Equal(t, "http://a.example/p", ranked[0].Document.URL)
		assert.False(t, math.IsNaN(ranked[0].Score))
		assert.False(t, math.IsInf(ranked[0].Score, 0))
	})

	t.Run("highest first-word frequency is pinned to position 0", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ctx := context.Background()
		f.seedPage(t, "http://a.example/p1", `<p>foo bar</p>`)
		f.seedPage(t, "http://a.example/p2", `<p>foo foo bar</p>`)
		f.index(t)

		ranked, total, err := f.ranker.Rank(ctx, []string{"foo"}, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, []string{"http://a.example/p2", "http://a.example/p1"}, urlsOf(ranked))
	})

	t.Run("domain authority does not displace the pinned document", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ctx := context.Background()
		f.seedPage(t, "http://a.example/p1", `<p>foo bar</p>`)
		f.seedPage(t, "http://a.example/p2", `<p>foo foo bar</p>`)
		f.index(t)

		require.NoError(t, f.hosts.UpsertHost(ctx, &bulgu.Host{Domain: "http://a.example", IP: "1.2.3.4"}))
		require.NoError(t, f.backlinks.AddBacklink(ctx, &bulgu.Backlink{
			SourceURL: "http://b.example/x", TargetURL: "http://a.example",
		}))
		require.NoError(t, f.analyzer.Run(ctx))

		host, err := f.hosts.FindHostByDomain(ctx, "http://a.example")
		require.NoError(t, err)
		assert.Equal(t, 1.0, host.Score)

		ranked, _, err := f.ranker.Rank(ctx, []string{"foo"}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"http://a.example/p2", "http://a.example/p1"}, urlsOf(ranked))
	})

	t.Run("proximity orders otherwise equal documents", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ctx := context.Background()
		f.seedPage(t, "http://a.example/p1", `<p>foo bar</p>`)
		f.seedPage(t, "http://a.example/p2", `<p>foo something bar</p>`)
		f.seedPage(t, "http://a.example/p3", `<p>foo very very far bar</p>`)
		f.index(t)

		ranked, total, err := f.ranker.Rank(ctx, []string{"foo", "bar"}, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Equal(t, []string{
			"http://a.example/p1",
			"http://a.example/p2",
			"http://a.example/p3",
		}, urlsOf(ranked))
	})

	t.Run("pinned document keeps its raw TF-IDF score", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ctx := context.Background()
		f.seedPage(t, "http://a.example/p1", `<p>bar baz</p>`)
		f.seedPage(t, "http://a.example/p2", `<p>bar</p>`)
		f.index(t)

		ranked, _, err := f.ranker.Rank(ctx, []string{"bar", "baz"}, 10)
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		// df(bar)=2 contributes nothing, df(baz)=1 contributes log10(2).
		assert.Equal(t, "http://a.example/p1", ranked[0].Document.URL)
		assert.InDelta(t, math.Log10(2), ranked[0].Score, 1e-9)
	})

	t.Run("attaches page metadata", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ctx := context.Background()
		f.seedPage(t, "http://a.example/p", `<p>foo</p>`)
		f.index(t)

		page, err := f.pages.FindPageByURL(ctx, "http://a.example/p")
		require.NoError(t, err)
		page.Title = "Başlık"
		page.Description = "Açıklama"
		require.NoError(t, f.pages.UpsertPage(ctx, page))

		ranked, _, err := f.ranker.Rank(ctx, []string{"foo"}, 10)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, "Başlık", ranked[0].Document.Title)
		assert.Equal(t, "Açıklama", ranked[0].Document.Description)
	})

	t.Run("query words normalize like indexed words", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ctx := context.Background()
		f.seedPage(t, "http://a.example/p", `<p>Çay keyfi</p>`)
		f.index(t)

		ranked, _, err := f.ranker.Rank(ctx, []string{"ÇAY"}, 10)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, 1, ranked[0].Document.WordFrequencies[0].Frequency)
		assert.Equal(t, "cay", ranked[0].Document.WordFrequencies[0].Word)
	})

	t.Run("identical queries produce identical rankings", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ctx := context.Background()
		f.seedPage(t, "http://a.example/p1", `<p>foo bar baz</p>`)
		f.seedPage(t, "http://a.example/p2", `<p>bar foo</p>`)
		f.seedPage(t, "http://a.example/p3", `<p>baz foo foo</p>`)
		f.index(t)

		first, firstTotal, err := f.ranker.Rank(ctx, []string{"foo", "baz"}, 10)
		require.NoError(t, err)
		second, secondTotal, err := f.ranker.Rank(ctx, []string{"foo", "baz"}, 10)
		require.NoError(t, err)

		assert.Equal(t, firstTotal, secondTotal)
		assert.Equal(t, first, second)
	})

	t.Run("truncates to topK but reports the full count", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ctx := context.Background()
		f.seedPage(t, "http://a.example/p1", `<p>foo</p>`)
		f.seedPage(t, "http://a.example/p2", `<p>foo</p>`)
		f.seedPage(t, "http://a.example/p3", `<p>foo</p>`)
		f.index(t)

		ranked, total, err := f.ranker.Rank(ctx, []string{"foo"}, 2)
		require.NoError(t, err)
		assert.Len(t, ranked, 2)
		assert.Equal(t, 3, total)
	})

	t.Run("no matches returns an empty result", func(t *testing.T) {
		t.Parallel()

		f := newRankFixture(t)
		ranked, total, err := f.ranker.Rank(context.Background(), []string{"yok"}, 10)
		require.NoError(t, err)
		assert.Empty(t, ranked)
		assert.Zero(t, total)
	})
}
