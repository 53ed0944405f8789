// Package http provides HTTP-based implementations of bulgu.Fetcher and
// bulgu.AssetFetcher for probing hosts and downloading pages.
package http

import (
	"context"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/bulgusearch/bulgu"
)

// DefaultFetchTimeout is the default total timeout for a request, including
// redirects and body download.
const DefaultFetchTimeout = 10 * time.Second

// DefaultUserAgent identifies the crawler when no user-agent is configured.
const DefaultUserAgent = "bulgubot/1.0"

// Ensure Fetcher implements bulgu.Fetcher at compile time.
var _ bulgu.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves content over HTTP and normalizes responses into the
// uniform shape the pipeline stages consume. Redirects are followed; the
// recorded URL is the one requested, not the final hop.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the total timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves url and returns the normalized response. The body text is
// the raw payload decoded as UTF-8 when it is valid UTF-8 and as ISO-8859-9
// (Latin-5, the legacy Turkish encoding) otherwise.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*bulgu.UniformResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, bulgu.Errorf(bulgu.EINVALID, "invalid URL %q: %v", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, bulgu.Errorf(bulgu.EUNAVAILABLE, "fetch %s: %v", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, bulgu.Errorf(bulgu.EUNAVAILABLE, "read body of %s: %v", url, err)
	}

	return &bulgu.UniformResponse{
		URL:          url,
		StatusCode:   resp.StatusCode,
		Headers:      flattenHeaders(resp.Header),
		Body:         decodeBody(raw),
		ContentBytes: raw,
	}, nil
}

// Close releases resources. A no-op for the plain HTTP client.
func (f *Fetcher) Close() error {
	return nil
}

// flattenHeaders keeps the first value of each header.
func flattenHeaders(h http.Header) bulgu.Headers {
	out := make(bulgu.Headers, len(h))
	for key, values := range h {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

func decodeBody(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_9.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
