package crawl

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/bulgusearch/bulgu"
)

var _ bulgu.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter throttles page fetches per target domain with one token
// bucket per domain, so concurrent work on different hosts proceeds freely
// while a single host is never hammered.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
}

// NewDomainLimiter creates a DomainLimiter allowing rps requests per second
// per domain, with a burst of 1.
func NewDomainLimiter(rps float64) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
	}
}

// Wait blocks until the rate limit allows a request to the domain.
// Returns an error if the context is canceled before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	d.mu.Lock()
	limiter, ok := d.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(d.rps), 1)
		d.limiters[domain] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}
