package bulgu

import "context"

// Session is the unit of persistence each pipeline stage owns. Writes issued
// through a stage's services become visible to other stages only after
// Commit; Rollback discards them.
type Session interface {
	Commit(ctx context.Context) error
	Rollback() error
}

// DomainLimiter throttles outbound requests per target domain.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled before the wait completes.
	Wait(ctx context.Context, domain string) error
}
