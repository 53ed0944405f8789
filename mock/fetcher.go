package mock

import (
	"context"

	"github.com/bulgusearch/bulgu"
)

var _ bulgu.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of bulgu.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*bulgu.UniformResponse, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*bulgu.UniformResponse, error) {
	return f.FetchFn(ctx, url)
}

var _ bulgu.AssetFetcher = (*AssetFetcher)(nil)

// AssetFetcher is a mock implementation of bulgu.AssetFetcher.
type AssetFetcher struct {
	FaviconFn   func(ctx context.Context, pageURL, hint string) []byte
	RobotsTxtFn func(ctx context.Context, pageURL string) []byte
	SitemapFn   func(ctx context.Context, pageURL string) []byte
}

func (a *AssetFetcher) Favicon(ctx context.Context, pageURL, hint string) []byte {
	if a.FaviconFn == nil {
		return nil
	}
	return a.FaviconFn(ctx, pageURL, hint)
}

func (a *AssetFetcher) RobotsTxt(ctx context.Context, pageURL string) []byte {
	if a.RobotsTxtFn == nil {
		return nil
	}
	return a.RobotsTxtFn(ctx, pageURL)
}

func (a *AssetFetcher) Sitemap(ctx context.Context, pageURL string) []byte {
	if a.SitemapFn == nil {
		return nil
	}
	return a.SitemapFn(ctx, pageURL)
}

var _ bulgu.Validator = (*Validator)(nil)

// Validator is a mock implementation of bulgu.Validator.
type Validator struct {
	ValidateFn func(resp *bulgu.UniformResponse) []bulgu.Failure
}

func (v *Validator) Validate(resp *bulgu.UniformResponse) []bulgu.Failure {
	if v.ValidateFn == nil {
		return nil
	}
	return v.ValidateFn(resp)
}

var _ bulgu.Resolver = (*Resolver)(nil)

// Resolver is a mock implementation of bulgu.Resolver.
type Resolver struct {
	LookupHostFn    func(ctx context.Context, host string) (string, error)
	ReverseLookupFn func(ctx context.Context, ip string) (string, error)
}

func (r *Resolver) LookupHost(ctx context.Context, host string) (string, error) {
	return r.LookupHostFn(ctx, host)
}

func (r *Resolver) ReverseLookup(ctx context.Context, ip string) (string, error) {
	return r.ReverseLookupFn(ctx, ip)
}

var _ bulgu.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of bulgu.Extractor.
type Extractor struct {
	LinksFn       func(resp *bulgu.UniformResponse) []bulgu.Link
	MetaFn        func(resp *bulgu.UniformResponse) bulgu.MetaTags
	FaviconHintFn func(resp *bulgu.UniformResponse) bulgu.FaviconHint
	TokensFn      func(body string) []bulgu.Token
}

func (e *Extractor) Links(resp *bulgu.UniformResponse) []bulgu.Link {
	if e.LinksFn == nil {
		return nil
	}
	return e.LinksFn(resp)
}

func (e *Extractor) Meta(resp *bulgu.UniformResponse) bulgu.MetaTags {
	if e.MetaFn == nil {
		return bulgu.MetaTags{}
	}
	return e.MetaFn(resp)
}

func (e *Extractor) FaviconHint(resp *bulgu.UniformResponse) bulgu.FaviconHint {
	if e.FaviconHintFn == nil {
		return ""
	}
	return e.FaviconHintFn(resp)
}

func (e *Extractor) Tokens(body string) []bulgu.Token {
	if e.TokensFn == nil {
		return nil
	}
	return e.TokensFn(body)
}
