package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bulgusearch/bulgu/crawl"
	"github.com/bulgusearch/bulgu/index"
	"github.com/bulgusearch/bulgu/rank"
	"github.com/bulgusearch/bulgu/sqlstore"
)

// IndexCmd rebuilds the document index once.
type IndexCmd struct{}

// Run executes the index command.
func (c *IndexCmd) Run(deps *Dependencies) error {
	n, err := newIndexer(deps).Run(deps.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "indexed %d pages\n", n)
	return nil
}

// AnalyzeCmd recomputes domain authority scores once.
type AnalyzeCmd struct{}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run(deps *Dependencies) error {
	return newAnalyzer(deps).Run(deps.Ctx)
}

// ScheduleCmd keeps the indexer and the analyzer running on their configured
// intervals until interrupted.
type ScheduleCmd struct{}

// Run executes the schedule command.
func (c *ScheduleCmd) Run(deps *Dependencies) error {
	indexer := newIndexer(deps)
	analyzer := newAnalyzer(deps)

	scheduler := &crawl.Scheduler{
		Index: func(ctx context.Context) error {
			_, err := indexer.Run(ctx)
			return err
		},
		Analyze:         analyzer.Run,
		IndexInterval:   time.Duration(deps.Config.Scheduler.IndexIntervalMinutes) * time.Minute,
		AnalyzeInterval: time.Duration(deps.Config.Scheduler.AnalyzeIntervalMinutes) * time.Minute,
		Logger:          deps.Logger,
	}

	if err := scheduler.Run(deps.Ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newIndexer(deps *Dependencies) *index.Indexer {
	session := deps.DB.NewSession()
	return &index.Indexer{
		Pages:     sqlstore.NewPageService(session),
		Index:     sqlstore.NewIndexService(session),
		Session:   session,
		Extractor: newExtractor(deps),
		Logger:    deps.Logger,
	}
}

func newAnalyzer(deps *Dependencies) *rank.Analyzer {
	session := deps.DB.NewSession()
	return &rank.Analyzer{
		Hosts:     sqlstore.NewHostService(session),
		Backlinks: sqlstore.NewBacklinkService(session),
		Session:   session,
		Logger:    deps.Logger,
	}
}
