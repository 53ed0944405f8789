package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bulgusearch/bulgu"
	"github.com/bulgusearch/bulgu/bloom"
	"github.com/bulgusearch/bulgu/crawl"
	"github.com/bulgusearch/bulgu/dns"
	"github.com/bulgusearch/bulgu/goquery"
	bulguhttp "github.com/bulgusearch/bulgu/http"
	bulguslog "github.com/bulgusearch/bulgu/slog"
	"github.com/bulgusearch/bulgu/sqlstore"
)

// Page-crawl batch size and the expected URL population for the seen-guard.
const (
	pageBatchSize = 100
	seenGuardSize = 1_000_000
	seenGuardFP   = 0.01
	politenessRPS = 1.0
)

// RunCmd starts the selected crawl stages and blocks until interrupted.
type RunCmd struct {
	IP   bool `help:"Run the IP-space scanner"`
	URL  bool `help:"Run the URL-frontier resolver"`
	Page bool `help:"Run the page crawler"`
	All  bool `help:"Run every stage"`
}

// Run executes the run command. Each stage owns a session; SIGINT cancels
// the shared context and every stage finishes its in-flight batch, commits
// and exits.
func (c *RunCmd) Run(deps *Dependencies) error {
	if c.All {
		c.IP, c.URL, c.Page = true, true, true
	}
	if !c.IP && !c.URL && !c.Page {
		return fmt.Errorf("specify a stage: --ip, --url, --page or --all")
	}

	g, ctx := errgroup.WithContext(deps.Ctx)

	if c.IP {
		scanner, err := newScanner(deps)
		if err != nil {
			return err
		}
		g.Go(func() error { return scanner.Run(ctx) })
	}
	if c.URL {
		resolver := newFrontierResolver(deps)
		g.Go(func() error {
			return crawl.Loop(ctx, "url-frontier", resolver.RunBatch, deps.Logger)
		})
	}
	if c.Page {
		pager := newPageCrawler(deps)
		g.Go(func() error {
			return crawl.Loop(ctx, "page-crawl", pager.RunBatch, deps.Logger)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newScanner(deps *Dependencies) (*crawl.Scanner, error) {
	chunks, err := crawl.NewChunkGenerator(deps.Config.Crawler, deps.Config.System, deps.Config.Storage.ReservedCachePath)
	if err != nil {
		return nil, err
	}

	session := deps.DB.NewSession()
	return &crawl.Scanner{
		Hosts:       sqlstore.NewHostService(session),
		Session:     session,
		Fetcher:     newFetcher(deps),
		Validator:   newValidator(),
		Resolver:    dns.NewResolver(),
		Chunks:      chunks,
		Ports:       deps.Config.Crawler.Ports,
		Parallelism: deps.Config.Crawler.Parallelism,
		MaxWorkers:  deps.Config.Crawler.MaxWorkers.IPSearch,
		Logger:      deps.Logger,
	}, nil
}

func newFrontierResolver(deps *Dependencies) *crawl.FrontierResolver {
	session := deps.DB.NewSession()
	return &crawl.FrontierResolver{
		Hosts:      sqlstore.NewHostService(session),
		Frontier:   sqlstore.NewFrontierService(session),
		Session:    session,
		Fetcher:    newFetcher(deps),
		Validator:  newValidator(),
		Resolver:   dns.NewResolver(),
		Limit:      crawl.DefaultFrontierBatch,
		MaxWorkers: deps.Config.Crawler.MaxWorkers.URLFrontier,
		Logger:     deps.Logger,
	}
}

func newPageCrawler(deps *Dependencies) *crawl.PageCrawler {
	session := deps.DB.NewSession()
	fetcher := newFetcher(deps)
	return &crawl.PageCrawler{
		Hosts:      sqlstore.NewHostService(session),
		Pages:      sqlstore.NewPageService(session),
		Frontier:   sqlstore.NewFrontierService(session),
		Backlinks:  sqlstore.NewBacklinkService(session),
		Session:    session,
		Fetcher:    fetcher,
		Assets:     bulguhttp.NewAssetFetcher(fetcher),
		Validator:  newValidator(),
		Extractor:  newExtractor(deps),
		Limiter:    crawl.NewDomainLimiter(politenessRPS),
		Seen:       bloom.NewGuard(seenGuardSize, seenGuardFP),
		Limit:      pageBatchSize,
		MaxWorkers: deps.Config.Crawler.MaxWorkers.PageSearch,
		Logger:     deps.Logger,
	}
}

func newValidator() *goquery.Validator {
	return goquery.NewValidator()
}

func newExtractor(deps *Dependencies) *goquery.Extractor {
	return goquery.NewExtractor(deps.Config.Crawler.MaxDocumentLength)
}

func newFetcher(deps *Dependencies) bulgu.Fetcher {
	fetcher := bulguhttp.NewFetcher(
		bulguhttp.WithTimeout(time.Duration(deps.Config.Crawler.ReqTimeout)*time.Second),
		bulguhttp.WithUserAgent(deps.Config.Crawler.UserAgent),
	)
	return bulguslog.NewLoggingFetcher(fetcher, deps.Logger)
}
