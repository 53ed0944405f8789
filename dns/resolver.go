// Package dns implements bulgu.Resolver with direct DNS queries.
package dns

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/bulgusearch/bulgu"
)

// DefaultTimeout bounds one DNS exchange.
const DefaultTimeout = 5 * time.Second

// Ensure Resolver implements bulgu.Resolver at compile time.
var _ bulgu.Resolver = (*Resolver)(nil)

// Resolver answers forward and reverse lookups against the system's
// configured nameservers.
type Resolver struct {
	client  *dns.Client
	servers []string
}

// NewResolver creates a Resolver against the given "host:port" nameservers.
// With no arguments the servers come from /etc/resolv.conf, falling back to
// a public resolver when the file cannot be read.
func NewResolver(servers ...string) *Resolver {
	if len(servers) == 0 {
		servers = []string{"8.8.8.8:53"}
		if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
			servers = servers[:0]
			for _, s := range conf.Servers {
				servers = append(servers, s+":"+conf.Port)
			}
		}
	}
	return &Resolver{
		client:  &dns.Client{Timeout: DefaultTimeout},
		servers: servers,
	}
}

// LookupHost resolves a hostname to its first IPv4 address.
func (r *Resolver) LookupHost(ctx context.Context, host string) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)

	reply, err := r.exchange(ctx, msg)
	if err != nil {
		return "", bulgu.Errorf(bulgu.EUNAVAILABLE, "DNS lookup of %q failed: %v", host, err)
	}
	for _, rr := range reply.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", bulgu.Errorf(bulgu.EUNAVAILABLE, "no A record for %q", host)
}

// ReverseLookup resolves an IPv4 address to a hostname via its PTR record.
func (r *Resolver) ReverseLookup(ctx context.Context, ip string) (string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", bulgu.Errorf(bulgu.EINVALID, "invalid IP %q: %v", ip, err)
	}
	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	reply, err := r.exchange(ctx, msg)
	if err != nil {
		return "", bulgu.Errorf(bulgu.ENOTFOUND, "no PTR record for %q: %v", ip, err)
	}
	for _, rr := range reply.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", bulgu.Errorf(bulgu.ENOTFOUND, "no PTR record for %q", ip)
}

// exchange tries each configured nameserver in order.
func (r *Resolver) exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	var lastErr error
	for _, server := range r.servers {
		reply, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if reply.Rcode != dns.RcodeSuccess {
			lastErr = bulgu.Errorf(bulgu.EUNAVAILABLE, "DNS rcode %s", dns.RcodeToString[reply.Rcode])
			continue
		}
		return reply, nil
	}
	return nil, lastErr
}
