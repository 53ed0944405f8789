package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/bulgusearch/bulgu/rank"
	"github.com/bulgusearch/bulgu/sqlstore"
)

// SearchCmd answers one query from the command line.
type SearchCmd struct {
	Words []string `arg:"" help:"Query words"`
	Top   int      `default:"10" help:"Number of results to return"`
}

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	session := deps.DB.NewSession()
	ranker := rank.NewRanker(
		sqlstore.NewIndexService(session),
		sqlstore.NewPageService(session),
		sqlstore.NewHostService(session),
	)
	searcher := rank.NewSearcher(ranker, sqlstore.NewSearchResultService(session), session, deps.Logger)
	defer searcher.WaitRefresh()

	start := time.Now()
	results, total, err := searcher.Search(deps.Ctx, strings.Join(c.Words, " "), c.Top)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No results found.")
		return nil
	}

	fmt.Fprintf(deps.Stdout, "Search results (searched %d documents in %.3f seconds):\n", total, time.Since(start).Seconds())
	for _, result := range results {
		fmt.Fprintf(deps.Stdout, "%s (score: %.3f)\n", result.Document.URL, result.Score)
		if result.Document.Title != "" {
			fmt.Fprintf(deps.Stdout, "  %s\n", result.Document.Title)
		}
		if result.Document.Description != "" {
			fmt.Fprintf(deps.Stdout, "  %s\n", result.Document.Description)
		}
	}
	return nil
}
