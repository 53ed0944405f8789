package mock

import (
	"context"

	"github.com/bulgusearch/bulgu"
)

var _ bulgu.Ranker = (*Ranker)(nil)

// Ranker is a mock implementation of bulgu.Ranker.
type Ranker struct {
	RankFn func(ctx context.Context, words []string, topK int) ([]bulgu.RankedPage, int, error)
}

func (r *Ranker) Rank(ctx context.Context, words []string, topK int) ([]bulgu.RankedPage, int, error) {
	return r.RankFn(ctx, words, topK)
}
