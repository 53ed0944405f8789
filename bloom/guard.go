// Package bloom provides a probabilistic seen-guard over discovered URLs.
package bloom

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Guard remembers which URLs this process has already scheduled, so one
// crawl run does not re-enqueue a URL it has seen. False positives are
// possible and cost only a skipped re-discovery; the database constraints
// remain the source of truth. Safe for concurrent use.
type Guard struct {
	mu sync.Mutex
	f  *bloom.BloomFilter
}

// NewGuard creates a Guard sized for n expected URLs at the given false
// positive rate.
func NewGuard(n uint, fpRate float64) *Guard {
	return &Guard{f: bloom.NewWithEstimates(n, fpRate)}
}

// SeenOrMark reports whether url was possibly seen before, marking it seen
// either way.
func (g *Guard) SeenOrMark(url string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.f.TestOrAddString(url)
}

// Seen reports whether url was possibly seen before.
func (g *Guard) Seen(url string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.f.TestString(url)
}

// Mark records url as seen.
func (g *Guard) Mark(url string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.f.AddString(url)
}

// ApproxCount returns the approximate number of distinct URLs marked.
func (g *Guard) ApproxCount() uint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return uint(g.f.ApproximatedSize())
}
