package bulgu

import "context"

// IndexEntry is one row of the inverted index: a word occurrence at a
// zero-based token location inside a document, labeled with the enclosing
// HTML tag. Frequency carries the per-word aggregate for the document,
// duplicated into each location row for read-side convenience.
type IndexEntry struct {
	DocumentURL string `json:"documentUrl"`
	Word        string `json:"word"`
	Frequency   int    `json:"frequency"`
	Location    int    `json:"location"`
	Tag         string `json:"tag"`
}

// Validate returns an error if the entry cannot be stored.
func (e *IndexEntry) Validate() error {
	if e.DocumentURL == "" {
		return Errorf(EINVALID, "index entry document URL required")
	}
	if e.Word == "" {
		return Errorf(EINVALID, "index entry word required")
	}
	return nil
}

// IndexService manages the inverted index. The indexer wipes and rewrites
// the whole table in a pass; readers never see a partially rebuilt index
// because the wipe happens in the same transaction session as the rebuild's
// first commit.
type IndexService interface {
	// AddEntry inserts one index row.
	AddEntry(ctx context.Context, entry *IndexEntry) error

	// FindEntriesByWords returns every row whose word is in words.
	FindEntriesByWords(ctx context.Context, words []string) ([]*IndexEntry, error)

	// DeleteAllEntries wipes the index.
	DeleteAllEntries(ctx context.Context) error

	// CountEntries returns the number of index rows.
	CountEntries(ctx context.Context) (int, error)

	// CountEntriesByDocument returns the number of rows for a document URL.
	CountEntriesByDocument(ctx context.Context, documentURL string) (int, error)
}
