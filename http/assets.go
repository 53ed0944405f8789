package http

import (
	"context"
	"strings"

	"github.com/beevik/etree"
	"github.com/temoto/robotstxt"

	"github.com/bulgusearch/bulgu"
)

// Ensure AssetFetcher implements bulgu.AssetFetcher at compile time.
var _ bulgu.AssetFetcher = (*AssetFetcher)(nil)

// AssetFetcher downloads the auxiliary assets stored next to a page record:
// favicon, robots.txt and sitemap.xml. Assets are best-effort; any failure
// yields nil bytes so the page crawl itself never fails on them.
type AssetFetcher struct {
	fetcher bulgu.Fetcher
}

// NewAssetFetcher creates an AssetFetcher on top of a Fetcher.
func NewAssetFetcher(fetcher bulgu.Fetcher) *AssetFetcher {
	return &AssetFetcher{fetcher: fetcher}
}

// Favicon fetches /favicon.ico off the page's base URL. When that misses it
// falls back to the location hinted by the page's <link rel="icon"> element.
func (a *AssetFetcher) Favicon(ctx context.Context, pageURL, hint string) []byte {
	base, err := bulgu.BaseURL(pageURL)
	if err != nil {
		return nil
	}

	if raw := a.fetchOK(ctx, base+"/favicon.ico"); raw != nil {
		return raw
	}

	if hint == "" {
		return nil
	}
	hintURL := hint
	if strings.HasPrefix(hint, "/") {
		hintURL = base + hint
	}
	return a.fetchOK(ctx, hintURL)
}

// RobotsTxt fetches robots.txt off the page's base URL. The response must be
// served as text/plain and parse as a robots file.
func (a *AssetFetcher) RobotsTxt(ctx context.Context, pageURL string) []byte {
	base, err := bulgu.BaseURL(pageURL)
	if err != nil {
		return nil
	}

	resp, err := a.fetcher.Fetch(ctx, base+"/robots.txt")
	if err != nil || resp.StatusCode != 200 {
		return nil
	}
	if !strings.Contains(strings.ToLower(resp.Headers.Get("Content-Type")), "text/plain") {
		return nil
	}
	if _, err := robotstxt.FromBytes(resp.ContentBytes); err != nil {
		return nil
	}
	return resp.ContentBytes
}

// Sitemap fetches sitemap.xml off the page's base URL. The response must be
// served as application/xml and parse as an XML document.
func (a *AssetFetcher) Sitemap(ctx context.Context, pageURL string) []byte {
	base, err := bulgu.BaseURL(pageURL)
	if err != nil {
		return nil
	}

	resp, err := a.fetcher.Fetch(ctx, base+"/sitemap.xml")
	if err != nil || resp.StatusCode != 200 {
		return nil
	}
	contentType := strings.ToLower(resp.Headers.Get("Content-Type"))
	if !strings.Contains(contentType, "application/xml") && !strings.Contains(contentType, "text/xml") {
		return nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(resp.ContentBytes); err != nil {
		return nil
	}
	return resp.ContentBytes
}

// fetchOK returns the raw payload when the URL answers 200, nil otherwise.
func (a *AssetFetcher) fetchOK(ctx context.Context, url string) []byte {
	resp, err := a.fetcher.Fetch(ctx, url)
	if err != nil || resp.StatusCode != 200 || len(resp.ContentBytes) == 0 {
		return nil
	}
	return resp.ContentBytes
}
