// Package slog provides logging decorators for pipeline dependencies.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/bulgusearch/bulgu"
)

// Ensure LoggingFetcher implements bulgu.Fetcher at compile time.
var _ bulgu.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with per-request logging.
type LoggingFetcher struct {
	next   bulgu.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a LoggingFetcher.
func NewLoggingFetcher(next bulgu.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the outcome.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (*bulgu.UniformResponse, error) {
	begin := time.Now()
	resp, err := f.next.Fetch(ctx, url)
	if err != nil {
		f.logger.Debug("fetch",
			"url", url,
			"err", err,
			"duration", time.Since(begin),
		)
		return nil, err
	}
	f.logger.Debug("fetch",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(resp.ContentBytes),
		"duration", time.Since(begin),
	)
	return resp, nil
}
