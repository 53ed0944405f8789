package crawl

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PassFunc is one full indexer or analyzer pass.
type PassFunc func(ctx context.Context) error

// Scheduler re-runs the indexer and analyzer on fixed intervals. Passes are
// serialized on one mutex: a new pass never starts before the previous
// pass's commit, including across the two kinds.
type Scheduler struct {
	Index           PassFunc
	Analyze         PassFunc
	IndexInterval   time.Duration
	AnalyzeInterval time.Duration
	Logger          *slog.Logger

	mu sync.Mutex
}

// Run blocks until the context is canceled, firing passes on their
// intervals. Pass errors are logged, never fatal.
func (s *Scheduler) Run(ctx context.Context) error {
	indexTicker := time.NewTicker(s.IndexInterval)
	defer indexTicker.Stop()
	analyzeTicker := time.NewTicker(s.AnalyzeInterval)
	defer analyzeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-indexTicker.C:
			s.runPass(ctx, "index", s.Index)
		case <-analyzeTicker.C:
			s.runPass(ctx, "analyze", s.Analyze)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context, name string, pass PassFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	begin := time.Now()
	if err := pass(ctx); err != nil {
		s.Logger.Warn("pass failed", "pass", name, "err", err)
		return
	}
	s.Logger.Info("pass finished", "pass", name, "duration", time.Since(begin))
}
