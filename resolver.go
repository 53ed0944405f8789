package bulgu

import "context"

// Resolver performs forward and reverse DNS lookups.
type Resolver interface {
	// LookupHost resolves a hostname to an IPv4 address string.
	// Returns EUNAVAILABLE if resolution fails.
	LookupHost(ctx context.Context, host string) (string, error)

	// ReverseLookup resolves an IPv4 address to a hostname.
	// Returns ENOTFOUND if no PTR record exists.
	ReverseLookup(ctx context.Context, ip string) (string, error)
}
