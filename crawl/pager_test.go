package crawl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulgusearch/bulgu"
	"github.com/bulgusearch/bulgu/bloom"
	"github.com/bulgusearch/bulgu/crawl"
	"github.com/bulgusearch/bulgu/goquery"
	"github.com/bulgusearch/bulgu/mock"
	"github.com/bulgusearch/bulgu/sqlstore"
)

// pagerFixture wires a PageCrawler onto an in-memory store with a canned
// fetcher.
type pagerFixture struct {
	crawler   *crawl.PageCrawler
	hosts     *sqlstore.HostService
	pages     *sqlstore.PageService
	frontier  *sqlstore.FrontierService
	backlinks *sqlstore.BacklinkService
}

func newPagerFixture(t *testing.T, responses map[string]string) *pagerFixture {
	t.Helper()

	_, session := setupTestDB(t)
	f := &pagerFixture{
		hosts:     sqlstore.NewHostService(session),
		pages:     sqlstore.NewPageService(session),
		frontier:  sqlstore.NewFrontierService(session),
		backlinks: sqlstore.NewBacklinkService(session),
	}
	f.crawler = &crawl.PageCrawler{
		Hosts:     f.hosts,
		Pages:     f.pages,
		Frontier:  f.frontier,
		Backlinks: f.backlinks,
		Session:   session,
		Fetcher: &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) (*bulgu.UniformResponse, error) {
				body, ok := responses[url]
				if !ok {
					return nil, bulgu.Errorf(bulgu.EUNAVAILABLE, "unreachable")
				}
				resp := okResponse(url)
				resp.Body = body
				resp.ContentBytes = []byte(body)
				return resp, nil
			},
		},
		Assets: &mock.AssetFetcher{
			FaviconFn: func(ctx context.Context, pageURL, hint string) []byte {
				return []byte("icon")
			},
		},
		Validator:  &mock.Validator{},
		Extractor:  goquery.NewExtractor(100000),
		Limiter:    crawl.NewDomainLimiter(1000),
		Seen:       bloom.NewGuard(1000, 0.01),
		Limit:      10,
		MaxWorkers: 2,
		Logger:     discardLogger(),
	}
	return f
}

func TestPageCrawler_RunBatch(t *testing.T) {
	t.Parallel()

	t.Run("crawls a host row and stamps it", func(t *testing.T) {
		t.Parallel()

		body := `<html><head><title>Haberler</title>
			<meta name="description" content="Güncel"></head>
			<body><p>içerik</p></body></html>`
		f := newPagerFixture(t, map[string]string{"http://haber.com.tr": body})
		ctx := context.Background()

		require.NoError(t, f.crawler.Hosts.UpsertHost(ctx, &bulgu.Host{
			Domain: "http://haber.com.tr", IP: "1.2.3.4", Port: 80,
		}))

		n, err := f.crawler.RunBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		page, err := f.pages.FindPageByURL(ctx, "http://haber.com.tr")
		require.NoError(t, err)
		assert.Equal(t, "Haberler", page.Title)
		assert.Equal(t, "Güncel", page.Description)
		assert.Equal(t, []byte(body), page.Body)
		assert.Equal(t, []byte("icon"), page.Favicon)
		assert.True(t, page.Crawled())

		host, err := f.hosts.FindHostByDomain(ctx, "http://haber.com.tr")
		require.NoError(t, err)
		assert.NotNil(t, host.LastCrawled)
	})

	t.Run("seeds internal links and queues external ones", func(t *testing.T) {
		t.Parallel()

		body := `<html><body>
			<a href="/ekonomi">Ekonomi</a>
			<a href="http://baska.com.tr/yazi">Başka</a>
		</body></html>`
		f := newPagerFixture(t, map[string]string{"http://haber.com.tr": body})
		ctx := context.Background()

		require.NoError(t, f.crawler.Hosts.UpsertHost(ctx, &bulgu.Host{
			Domain: "http://haber.com.tr", IP: "1.2.3.4", Port: 80,
		}))

		_, err := f.crawler.RunBatch(ctx)
		require.NoError(t, err)

		// Internal link became an uncrawled seed page.
		seed, err := f.pages.FindPageByURL(ctx, "http://haber.com.tr/ekonomi")
		require.NoError(t, err)
		assert.False(t, seed.Crawled())

		// External link to an unknown host entered the frontier and left a
		// backlink.
		_, err = f.frontier.FindURL(ctx, "http://baska.com.tr/yazi")
		require.NoError(t, err)

		links, err := f.backlinks.FindBacklinksByTarget(ctx, "http://baska.com.tr/yazi")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "http://haber.com.tr", links[0].SourceURL)
		assert.Equal(t, "Başka", links[0].AnchorText)
	})

	t.Run("known external hosts get backlinks but no frontier entry", func(t *testing.T) {
		t.Parallel()

		body := `<a href="http://bilinen.com.tr/yazi">Bilinen</a>`
		f := newPagerFixture(t, map[string]string{"http://haber.com.tr": body})
		ctx := context.Background()

		require.NoError(t, f.crawler.Hosts.UpsertHost(ctx, &bulgu.Host{
			Domain: "http://haber.com.tr", IP: "1.2.3.4", Port: 80,
		}))
		now := testTime()
		require.NoError(t, f.crawler.Hosts.UpsertHost(ctx, &bulgu.Host{
			Domain: "http://bilinen.com.tr", IP: "5.6.7.8", Port: 80, LastCrawled: &now,
		}))

		_, err := f.crawler.RunBatch(ctx)
		require.NoError(t, err)

		urls, err := f.frontier.CountURLs(ctx)
		require.NoError(t, err)
		assert.Zero(t, urls)

		links, err := f.backlinks.FindBacklinksByTarget(ctx, "http://bilinen.com.tr/yazi")
		require.NoError(t, err)
		assert.Len(t, links, 1)
	})

	t.Run("replaying a crawl does not duplicate backlinks", func(t *testing.T) {
		t.Parallel()

		body := `<a href="http://baska.com.tr/yazi">Başka</a>`
		f := newPagerFixture(t, map[string]string{"http://haber.com.tr": body})
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			require.NoError(t, f.crawler.Hosts.UpsertHost(ctx, &bulgu.Host{
				Domain: "http://haber.com.tr", IP: "1.2.3.4", Port: 80,
			}))
			_, err := f.crawler.RunBatch(ctx)
			require.NoError(t, err)
		}

		links, err := f.backlinks.FindBacklinksByTarget(ctx, "http://baska.com.tr/yazi")
		require.NoError(t, err)
		assert.Len(t, links, 1)
	})

	t.Run("returns zero when nothing is waiting", func(t *testing.T) {
		t.Parallel()

		f := newPagerFixture(t, nil)
		n, err := f.crawler.RunBatch(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
