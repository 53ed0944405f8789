// Package crawl implements the pipeline stages that populate the corpus:
// the IP scanner, the URL-frontier resolver and the page crawler, plus the
// scheduler that keeps the indexer and analyzer running.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bulgusearch/bulgu"
)

// Scanner walks this machine's share of the IPv4 space and records every
// address that answers with valid Turkish content as a host row.
type Scanner struct {
	Hosts     bulgu.HostService
	Session   bulgu.Session
	Fetcher   bulgu.Fetcher
	Validator bulgu.Validator
	Resolver  bulgu.Resolver
	Chunks    *ChunkGenerator

	Ports       []int
	Parallelism int
	MaxWorkers  int
	Logger      *slog.Logger

	mu sync.Mutex // serializes writes through the stage session
}

// Run scans every assigned chunk. Parallelism workers take chunks off a
// shared list and process them sequentially; within one chunk up to
// MaxWorkers probes are in flight. Network and parse failures skip the
// address; a failed chunk commit is logged and scanning continues. Run
// returns when all chunks are done or the context is canceled.
func (s *Scanner) Run(ctx context.Context) error {
	chunks := s.Chunks.Generate()
	s.Logger.Info("ip scan starting", "chunks", len(chunks))

	next := make(chan Chunk)
	go func() {
		defer close(next)
		for _, chunk := range chunks {
			select {
			case next <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < s.Parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range next {
				if ctx.Err() != nil {
					return
				}
				s.ScanChunk(ctx, chunk)
			}
		}()
	}
	wg.Wait()

	s.Logger.Info("ip scan finished")
	return ctx.Err()
}

// ScanChunk probes every IP and port of one chunk and commits its writes.
func (s *Scanner) ScanChunk(ctx context.Context, chunk Chunk) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.MaxWorkers)

	found := 0
	chunk.Each(func(ip string) bool {
		if gctx.Err() != nil {
			return false
		}
		for _, port := range s.Ports {
			ip, port := ip, port
			g.Go(func() error {
				if s.probe(gctx, ip, port) {
					s.mu.Lock()
					found++
					s.mu.Unlock()
				}
				return nil
			})
		}
		return true
	})
	_ = g.Wait()

	s.mu.Lock()
	err := s.Session.Commit(ctx)
	s.mu.Unlock()
	if err != nil {
		s.Logger.Warn("chunk commit failed", "chunk", chunk.Canonical(), "err", err)
		return
	}
	if found > 0 {
		s.Logger.Info("chunk scanned", "chunk", chunk.Canonical(), "hosts", found)
	}
}

// probe fetches one ip:port endpoint and stores a host row when the
// response validates. All failures skip the address silently.
func (s *Scanner) probe(ctx context.Context, ip string, port int) bool {
	scheme := "http"
	if port == 443 {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s:%d", scheme, ip, port)

	resp, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return false
	}
	if failures := s.Validator.Validate(resp); len(failures) > 0 {
		return false
	}

	domain := s.domainFor(ctx, scheme, ip, resp)

	host := &bulgu.Host{
		Domain: domain,
		IP:     ip,
		Port:   port,
		Status: resp.StatusCode,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Hosts.UpsertHost(ctx, host); err != nil {
		s.Logger.Warn("host upsert failed", "domain", domain, "err", err)
		return false
	}
	return true
}

// domainFor derives the host row's domain key: the reverse-DNS name when
// one exists, the response's base URL when it doesn't, and a synthesized
// scheme://ip as the last resort.
func (s *Scanner) domainFor(ctx context.Context, scheme, ip string, resp *bulgu.UniformResponse) string {
	if name, err := s.Resolver.ReverseLookup(ctx, ip); err == nil && name != "" {
		return scheme + "://" + name
	}
	if base, err := bulgu.BaseURL(resp.URL); err == nil {
		return base
	}
	return scheme + "://" + ip
}
