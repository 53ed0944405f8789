package bulgu

import "context"

// WordFrequency is one query word matched in a candidate document: the
// word's aggregate frequency in the document and the location and tag of
// the first index row that matched.
type WordFrequency struct {
	Word      string `json:"word"`
	Frequency int    `json:"frequency"`
	Location  int    `json:"location"`
	Tag       string `json:"tag"`
}

// Document is a ranking candidate: a document URL with one WordFrequency
// per query word found in it, in query token order.
type Document struct {
	URL             string          `json:"url"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	WordFrequencies []WordFrequency `json:"wordFrequencies"`
}

// RankedPage is one entry of the ranker's output.
type RankedPage struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Ranker answers a tokenized query over the inverted index.
type Ranker interface {
	// Rank returns the top-k ranked pages and the total candidate count
	// before truncation. An empty candidate set yields (nil, 0, nil).
	Rank(ctx context.Context, words []string, topK int) ([]RankedPage, int, error)
}

// Searcher answers raw query strings, consulting caches before ranking.
type Searcher interface {
	Search(ctx context.Context, rawQuery string, topK int) ([]RankedPage, int, error)
}
