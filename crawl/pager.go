package crawl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bulgusearch/bulgu"
	"github.com/bulgusearch/bulgu/bloom"
)

// PageCrawler downloads the pages behind discovered hosts and seed page
// rows, stores their content and assets, and feeds the link graph: internal
// links become seed pages, external links become frontier entries and
// backlinks.
type PageCrawler struct {
	Hosts     bulgu.HostService
	Pages     bulgu.PageService
	Frontier  bulgu.FrontierService
	Backlinks bulgu.BacklinkService
	Session   bulgu.Session
	Fetcher   bulgu.Fetcher
	Assets    bulgu.AssetFetcher
	Validator bulgu.Validator
	Extractor bulgu.Extractor
	Limiter   bulgu.DomainLimiter
	Seen      *bloom.Guard

	Limit      int
	MaxWorkers int
	Logger     *slog.Logger

	mu sync.Mutex // serializes writes through the stage session
}

// crawlTask is one unit of page-crawl work: a URL plus the host row to
// stamp once the page lands, when the task came from the host table.
type crawlTask struct {
	url        string
	hostDomain string
}

// RunBatch selects a batch of uncrawled hosts and pages, crawls them, and
// commits. It returns the number of tasks taken; zero means there was
// nothing to do.
func (p *PageCrawler) RunBatch(ctx context.Context) (int, error) {
	tasks, err := p.selectBatch(ctx)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.MaxWorkers)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			p.crawlOne(gctx, task)
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	err = p.Session.Commit(ctx)
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}
	p.Logger.Info("page batch crawled", "tasks", len(tasks))
	return len(tasks), nil
}

// selectBatch splits the batch budget between uncrawled hosts and uncrawled
// pages in proportion to how many of each are waiting. When the proportion
// would starve a side that still has rows, that side is reserved one slot.
func (p *PageCrawler) selectBatch(ctx context.Context) ([]crawlTask, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hosts, err := p.Hosts.FindUnscannedHosts(ctx, p.Limit)
	if err != nil {
		return nil, err
	}
	pages, err := p.Pages.FindUnscannedPages(ctx, p.Limit)
	if err != nil {
		return nil, err
	}

	nHosts, nPages := len(hosts), len(pages)
	if nHosts+nPages == 0 {
		return nil, nil
	}

	hostLimit := p.Limit * nHosts / (nHosts + nPages)
	pageLimit := p.Limit - hostLimit
	if hostLimit == 0 && nHosts > 0 {
		hostLimit, pageLimit = 1, p.Limit-1
	}
	if pageLimit == 0 && nPages > 0 {
		pageLimit, hostLimit = 1, p.Limit-1
	}
	if hostLimit > nHosts {
		hostLimit = nHosts
	}
	if pageLimit > nPages {
		pageLimit = nPages
	}

	tasks := make([]crawlTask, 0, hostLimit+pageLimit)
	for _, host := range hosts[:hostLimit] {
		url := host.Domain
		if url == "" {
			url = host.IP
		}
		tasks = append(tasks, crawlTask{url: url, hostDomain: host.Domain})
	}
	for _, page := range pages[:pageLimit] {
		tasks = append(tasks, crawlTask{url: page.URL})
	}
	return tasks, nil
}

// crawlOne fetches, validates and stores one page. Failures skip the task;
// the row stays uncrawled and a later batch retries it.
func (p *PageCrawler) crawlOne(ctx context.Context, task crawlTask) {
	if err := p.Limiter.Wait(ctx, bulgu.Hostname(task.url)); err != nil {
		return
	}

	resp, err := p.Fetcher.Fetch(ctx, task.url)
	if err != nil {
		p.Logger.Debug("page fetch failed", "url", task.url, "err", err)
		return
	}
	if failures := p.Validator.Validate(resp); len(failures) > 0 {
		p.Logger.Debug("page rejected", "url", task.url, "failures", failureNames(failures))
		return
	}

	meta := p.Extractor.Meta(resp)
	hint := p.Extractor.FaviconHint(resp)
	now := time.Now()

	page := &bulgu.Page{
		URL:         task.url,
		StatusCode:  resp.StatusCode,
		Title:       meta.Title,
		Keywords:    meta.Keywords,
		Description: meta.Description,
		Body:        resp.ContentBytes,
		Favicon:     p.Assets.Favicon(ctx, task.url, hint),
		RobotsTxt:   p.Assets.RobotsTxt(ctx, task.url),
		Sitemap:     p.Assets.Sitemap(ctx, task.url),
		LastCrawled: &now,
	}

	p.mu.Lock()
	if err := p.Pages.UpsertPage(ctx, page); err != nil {
		p.mu.Unlock()
		p.Logger.Warn("page upsert failed", "url", task.url, "err", err)
		return
	}
	if task.hostDomain != "" {
		if err := p.Hosts.MarkHostCrawled(ctx, task.hostDomain, now); err != nil {
			p.Logger.Warn("host stamp failed", "domain", task.hostDomain, "err", err)
		}
	}
	p.mu.Unlock()

	p.processLinks(ctx, task.url, p.Extractor.Links(resp))
}

// processLinks turns the page's links into seed pages, frontier entries and
// backlink rows. Backlinks for a (source, target) pair observed in this
// crawl are deleted before re-insertion so replaying a page is idempotent.
func (p *PageCrawler) processLinks(ctx context.Context, pageURL string, links []bulgu.Link) {
	clearedPairs := make(map[string]bool)

	for _, link := range links {
		switch link.Type {
		case bulgu.LinkInternal:
			full := link.FullURL()
			if full == "" || p.Seen.SeenOrMark(full) {
				continue
			}
			p.mu.Lock()
			if err := p.Pages.AddPage(ctx, &bulgu.Page{URL: full}); err != nil {
				p.Logger.Warn("seed page insert failed", "url", full, "err", err)
			}
			p.mu.Unlock()

		case bulgu.LinkExternal:
			full := link.FullURL()
			base, err := bulgu.BaseURL(full)
			if err != nil {
				continue
			}

			p.mu.Lock()
			if _, err := p.Hosts.FindHostByDomain(ctx, base); bulgu.ErrorCode(err) == bulgu.ENOTFOUND {
				if _, err := p.Frontier.SafeAddURL(ctx, full); err != nil {
					p.Logger.Warn("frontier insert failed", "url", full, "err", err)
				}
			}
			if !clearedPairs[full] {
				clearedPairs[full] = true
				if err := p.Backlinks.DeleteBacklinks(ctx, pageURL, full); err != nil {
					p.Logger.Warn("backlink clear failed", "target", full, "err", err)
				}
			}
			if err := p.Backlinks.AddBacklink(ctx, &bulgu.Backlink{
				SourceURL:  pageURL,
				TargetURL:  full,
				AnchorText: link.AnchorText,
			}); err != nil {
				p.Logger.Warn("backlink insert failed", "target", full, "err", err)
			}
			p.mu.Unlock()
		}
	}
}
