package crawl

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bulgusearch/bulgu"
)

// DefaultFrontierBatch is the number of frontier entries one resolver pass
// takes on.
const DefaultFrontierBatch = 500

// FrontierResolver drains the URL frontier: each queued URL is resolved,
// fetched and validated, and on success becomes a host row. The frontier
// entry is removed whatever the outcome, so a consistently failing URL
// cannot clog the queue.
type FrontierResolver struct {
	Hosts     bulgu.HostService
	Frontier  bulgu.FrontierService
	Session   bulgu.Session
	Fetcher   bulgu.Fetcher
	Validator bulgu.Validator
	Resolver  bulgu.Resolver

	Limit      int
	MaxWorkers int
	Logger     *slog.Logger

	mu sync.Mutex // serializes writes through the stage session
}

// RunBatch processes up to Limit frontier entries and commits. It returns
// the number of entries taken, zero meaning the frontier was empty.
func (r *FrontierResolver) RunBatch(ctx context.Context) (int, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultFrontierBatch
	}

	r.mu.Lock()
	entries, err := r.Frontier.FindURLs(ctx, limit)
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.MaxWorkers)
	for _, entry := range entries {
		url := entry.URL
		g.Go(func() error {
			r.resolveOne(gctx, url)
			return nil
		})
	}
	_ = g.Wait()

	// One pass over the host table before the batch commit; the frontier
	// deletions ride the same transaction.
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Hosts.RemoveDuplicateHosts(ctx); err != nil {
		r.Logger.Warn("duplicate removal failed", "err", err)
	}
	if err := r.Session.Commit(ctx); err != nil {
		return 0, err
	}
	r.Logger.Info("frontier batch resolved", "entries", len(entries))
	return len(entries), nil
}

// resolveOne handles a single frontier URL. Every path through it removes
// the frontier entry.
func (r *FrontierResolver) resolveOne(ctx context.Context, rawURL string) {
	base, err := bulgu.BaseURL(rawURL)
	if err != nil {
		r.deleteEntry(ctx, rawURL)
		return
	}

	// A DNS failure skips the resolved IP but not the fetch; virtual hosts
	// behind an unresolvable name still answer over HTTP.
	ip, err := r.Resolver.LookupHost(ctx, bulgu.Hostname(base))
	if err != nil {
		ip = ""
	}

	resp, err := r.Fetcher.Fetch(ctx, base)
	if err != nil {
		r.deleteEntry(ctx, rawURL)
		return
	}
	if failures := r.Validator.Validate(resp); len(failures) > 0 {
		r.Logger.Debug("frontier URL rejected", "url", rawURL, "failures", failureNames(failures))
		r.deleteEntry(ctx, rawURL)
		return
	}

	host := &bulgu.Host{
		Domain: base,
		IP:     ip,
		Port:   bulgu.PortForScheme(schemeOf(base)),
		Status: resp.StatusCode,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.Hosts.SafeAddHost(ctx, host); err != nil {
		r.Logger.Warn("host insert failed", "domain", base, "err", err)
	}
	if err := r.Frontier.DeleteURL(ctx, rawURL); err != nil {
		r.Logger.Warn("frontier delete failed", "url", rawURL, "err", err)
	}
}

func (r *FrontierResolver) deleteEntry(ctx context.Context, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Frontier.DeleteURL(ctx, url); err != nil {
		r.Logger.Warn("frontier delete failed", "url", url, "err", err)
	}
}

func schemeOf(base string) string {
	for i := 0; i < len(base); i++ {
		if base[i] == ':' {
			return base[:i]
		}
	}
	return ""
}

func failureNames(failures []bulgu.Failure) []string {
	names := make([]string, len(failures))
	for i, f := range failures {
		names[i] = f.String()
	}
	return names
}
