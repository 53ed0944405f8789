// Package rank answers queries over the inverted index and maintains the
// authority scores the ranking blends in.
package rank

import (
	"context"
	"math"
	"sort"

	"github.com/bulgusearch/bulgu"
)

// Weights blends the four sub-scores into the composite.
type Weights struct {
	IDF        float64
	Proximity  float64
	TagWeights float64
	Authority  float64
}

// DefaultWeights is the blend used when the caller supplies none.
var DefaultWeights = Weights{
	IDF:        0.8,
	Proximity:  0.5,
	TagWeights: 0.3,
	Authority:  0.1,
}

// DefaultTagWeights scores a word occurrence by the HTML element it sits in.
// Unknown tags weigh 1.0.
var DefaultTagWeights = map[string]float64{
	"title": 2.0,
	"h1":    1.5,
	"h2":    1.2,
	"h3":    1.1,
	"p":     1.0,
	"a":     0.8,
	"span":  0.5,
}

// Ranker scores candidate documents for a tokenized query by blending
// TF-IDF, domain authority, tag weights and term proximity.
type Ranker struct {
	Index bulgu.IndexService
	Pages bulgu.PageService
	Hosts bulgu.HostService

	Weights    Weights
	TagWeights map[string]float64
	Normalize  NormalizeFunc
}

var _ bulgu.Ranker = (*Ranker)(nil)

// NewRanker returns a Ranker with the default weights and z-score
// normalization.
func NewRanker(index bulgu.IndexService, pages bulgu.PageService, hosts bulgu.HostService) *Ranker {
	return &Ranker{
		Index:      index,
		Pages:      pages,
		Hosts:      hosts,
		Weights:    DefaultWeights,
		TagWeights: DefaultTagWeights,
		Normalize:  ZScore,
	}
}

// candidate pairs a document with its running composite score.
type candidate struct {
	doc   bulgu.Document
	score float64
}

// Rank retrieves the candidates for words, scores them, and returns the top
// topK together with the total candidate count. The candidate whose first
// query word is most frequent is pinned to position 0 and keeps its raw
// TF-IDF score; every other candidate gets the normalized blend.
func (r *Ranker) Rank(ctx context.Context, words []string, topK int) ([]bulgu.RankedPage, int, error) {
	words = normalizeQuery(words)
	if len(words) == 0 {
		return nil, 0, nil
	}

	rows, err := r.Index.FindEntriesByWords(ctx, words)
	if err != nil {
		return nil, 0, err
	}
	docs := aggregate(words, rows)
	if len(docs) == 0 {
		return nil, 0, nil
	}

	candidates := make([]*candidate, len(docs))
	for i, doc := range docs {
		candidates[i] = &candidate{doc: doc}
	}
	for i, score := range tfIDF(words, docs) {
		candidates[i].score = score
	}

	// The first maximum wins ties, keeping the output stable across runs.
	pinned := candidates[0]
	for _, c := range candidates[1:] {
		if c.doc.WordFrequencies[0].Frequency > pinned.doc.WordFrequencies[0].Frequency {
			pinned = c
		}
	}
	remaining := make([]*candidate, 0, len(candidates)-1)
	for _, c := range candidates {
		if c != pinned {
			remaining = append(remaining, c)
		}
	}

	r.blend(ctx, remaining)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].score > remaining[j].score
	})

	ranked := make([]*candidate, 0, len(candidates))
	ranked = append(ranked, pinned)
	ranked = append(ranked, remaining...)

	pages := make([]bulgu.RankedPage, len(ranked))
	for i, c := range ranked {
		r.attachMetadata(ctx, &c.doc)
		pages[i] = bulgu.RankedPage{Document: c.doc, Score: c.score}
	}

	total := len(pages)
	if topK > 0 && len(pages) > topK {
		pages = pages[:topK]
	}
	return pages, total, nil
}

// blend replaces each remaining candidate's raw TF-IDF score with the
// weighted sum of the four normalized sub-scores.
func (r *Ranker) blend(ctx context.Context, remaining []*candidate) {
	if len(remaining) == 0 {
		return
	}

	idf := make([]float64, len(remaining))
	authority := make([]float64, len(remaining))
	tags := make([]float64, len(remaining))
	proximity := make([]float64, len(remaining))
	for i, c := range remaining {
		idf[i] = c.score
		authority[i] = r.authorityOf(ctx, c.doc.URL)
		tags[i] = r.meanTagWeight(c.doc)
		proximity[i] = proximityScore(c.doc)
	}

	idf = r.normalize(idf)
	authority = r.normalize(authority)
	tags = r.normalize(tags)
	proximity = r.normalize(proximity)

	for i, c := range remaining {
		c.score = r.Weights.IDF*idf[i] +
			r.Weights.Authority*authority[i] +
			r.Weights.TagWeights*tags[i] +
			r.Weights.Proximity*proximity[i]
	}
}

func (r *Ranker) normalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	fn := r.Normalize
	if fn == nil {
		fn = ZScore
	}
	return fn(scores)
}

// authorityOf returns the host score for the document's base URL, or 0 when
// the host is unknown.
func (r *Ranker) authorityOf(ctx context.Context, docURL string) float64 {
	base, err := bulgu.BaseURL(docURL)
	if err != nil {
		return 0
	}
	host, err := r.Hosts.FindHostByDomain(ctx, base)
	if err != nil {
		return 0
	}
	return host.Score
}

// meanTagWeight averages the tag weight over the document's matched words.
func (r *Ranker) meanTagWeight(doc bulgu.Document) float64 {
	total := 0.0
	for _, wf := range doc.WordFrequencies {
		if w, ok := r.TagWeights[wf.Tag]; ok {
			total += w
		} else {
			total += 1.0
		}
	}
	return total / float64(len(doc.WordFrequencies))
}

// proximityScore maps the smallest distance between any two distinct query
// words' first occurrences to (0, 1]: 1/(1+distance), or 1.0 when fewer than
// two distinct words matched.
func proximityScore(doc bulgu.Document) float64 {
	minDistance := math.Inf(1)
	wfs := doc.WordFrequencies
	for i := 0; i < len(wfs); i++ {
		for j := i + 1; j < len(wfs); j++ {
			if wfs[i].Word == wfs[j].Word {
				continue
			}
			d := math.Abs(float64(wfs[i].Location - wfs[j].Location))
			minDistance = math.Min(minDistance, d)
		}
	}
	if math.IsInf(minDistance, 1) {
		return 1.0
	}
	return 1 / (1 + minDistance)
}

// attachMetadata copies title and description from the page row, when one
// exists.
func (r *Ranker) attachMetadata(ctx context.Context, doc *bulgu.Document) {
	page, err := r.Pages.FindPageByURL(ctx, doc.URL)
	if err != nil {
		return
	}
	doc.Title = page.Title
	doc.Description = page.Description
}

// normalizeQuery canonicalizes the query words the same way the tokenizer
// canonicalizes page words, dropping any that normalize to nothing.
func normalizeQuery(words []string) []string {
	out := make([]string, 0, len(words))
	for _, word := range words {
		if w := bulgu.NormalizeWord(word); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// aggregate groups index rows by document and keeps, per query word, the
// first row matching that word. Documents appear in row order, which the
// store returns sorted, so the candidate list is deterministic.
func aggregate(words []string, rows []*bulgu.IndexEntry) []bulgu.Document {
	var order []string
	byDoc := make(map[string][]*bulgu.IndexEntry)
	for _, row := range rows {
		if _, ok := byDoc[row.DocumentURL]; !ok {
			order = append(order, row.DocumentURL)
		}
		byDoc[row.DocumentURL] = append(byDoc[row.DocumentURL], row)
	}

	docs := make([]bulgu.Document, 0, len(order))
	for _, url := range order {
		entries := byDoc[url]
		var wfs []bulgu.WordFrequency
		for _, word := range words {
			for _, entry := range entries {
				if entry.Word == word {
					wfs = append(wfs, bulgu.WordFrequency{
						Word:      word,
						Frequency: entry.Frequency,
						Location:  entry.Location,
						Tag:       entry.Tag,
					})
					break
				}
			}
		}
		docs = append(docs, bulgu.Document{URL: url, WordFrequencies: wfs})
	}
	return docs
}

// tfIDF computes Σ f(w,d)·log10(N/df(w)) per document over the query words
// present in the candidate set.
func tfIDF(words []string, docs []bulgu.Document) []float64 {
	df := make(map[string]int, len(words))
	for _, word := range words {
		for _, doc := range docs {
			for _, wf := range doc.WordFrequencies {
				if wf.Word == word {
					df[word]++
					break
				}
			}
		}
	}

	n := float64(len(docs))
	scores := make([]float64, len(docs))
	for i, doc := range docs {
		for _, word := range words {
			if df[word] == 0 {
				continue
			}
			for _, wf := range doc.WordFrequencies {
				if wf.Word == word {
					scores[i] += float64(wf.Frequency) * math.Log10(n/float64(df[word]))
					break
				}
			}
		}
	}
	return scores
}
