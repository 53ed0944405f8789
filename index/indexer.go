// Package index implements the inverted-index build pass over the crawled
// corpus.
package index

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bulgusearch/bulgu"
)

// Indexer rebuilds the document index from scratch on every run: it wipes
// the existing rows and re-tokenizes every crawled page. The wipe and the
// first page's rows land in the same transaction, so readers never observe
// an empty index.
type Indexer struct {
	Pages     bulgu.PageService
	Index     bulgu.IndexService
	Session   bulgu.Session
	Extractor bulgu.Extractor
	Logger    *slog.Logger
}

// Run performs one full index rebuild. Each page commits separately so a
// failure mid-pass loses at most one document. Returns the number of pages
// indexed.
func (ix *Indexer) Run(ctx context.Context) (int, error) {
	if err := ix.Index.DeleteAllEntries(ctx); err != nil {
		return 0, err
	}

	pages, err := ix.Pages.FindCrawledPages(ctx)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, page := range pages {
		if ctx.Err() != nil {
			return indexed, ctx.Err()
		}
		if err := ix.indexPage(ctx, page); err != nil {
			return indexed, err
		}
		if err := ix.Session.Commit(ctx); err != nil {
			return indexed, err
		}
		indexed++
	}

	// Flushes the wipe when no page followed it.
	if err := ix.Session.Commit(ctx); err != nil {
		return indexed, err
	}

	ix.Logger.Info("index rebuilt", "pages", indexed)
	return indexed, nil
}

// indexPage tokenizes one page body and writes its index rows. Every token
// row carries the word's whole-document frequency.
func (ix *Indexer) indexPage(ctx context.Context, page *bulgu.Page) error {
	body := strings.ToValidUTF8(string(page.Body), "")
	tokens := ix.Extractor.Tokens(body)

	frequencies := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		frequencies[tok.Word]++
	}

	for _, tok := range tokens {
		entry := &bulgu.IndexEntry{
			DocumentURL: page.URL,
			Word:        tok.Word,
			Frequency:   frequencies[tok.Word],
			Location:    tok.Location,
			Tag:         tok.Tag,
		}
		if err := ix.Index.AddEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
