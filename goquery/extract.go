package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/bulgusearch/bulgu"
)

// Ensure Extractor implements bulgu.Extractor at compile time.
var _ bulgu.Extractor = (*Extractor)(nil)

// blacklistedExtensions are the binary, media, document and archive file
// types a link must not point at to be crawlable.
var blacklistedExtensions = []string{
	".pdf", ".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx", ".csv",
	".zip", ".rar", ".tar", ".gz", ".7z",
	".mp3", ".mp4", ".avi", ".mkv", ".mov", ".flv", ".wmv", ".wav", ".ogg",
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".bmp", ".webp", ".ico",
}

// Extractor parses crawled HTML into links, metadata and the token stream.
// Malformed HTML yields empty collections, never errors.
type Extractor struct {
	maxDocumentLength int
}

// NewExtractor creates an Extractor. maxDocumentLength bounds the input
// handed to the tokenizer.
func NewExtractor(maxDocumentLength int) *Extractor {
	return &Extractor{maxDocumentLength: maxDocumentLength}
}

// Links extracts and classifies every <a> element of the response body.
func (e *Extractor) Links(resp *bulgu.UniformResponse) []bulgu.Link {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return nil
	}
	base, err := bulgu.BaseURL(resp.URL)
	if err != nil {
		return nil
	}
	responseDomain := registeredDomain(bulgu.Hostname(resp.URL))

	var links []bulgu.Link
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		links = append(links, bulgu.Link{
			Type:       classify(href, responseDomain),
			BaseURL:    base,
			Href:       href,
			AnchorText: strings.TrimSpace(s.Text()),
		})
	})
	return links
}

// classify assigns a link type relative to the responding page's registered
// domain.
func classify(href, responseDomain string) bulgu.LinkType {
	lower := strings.ToLower(href)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range blacklistedExtensions {
		if strings.HasSuffix(lower, ext) {
			return bulgu.LinkInvalid
		}
	}

	if responseDomain != "" && strings.Contains(href, responseDomain) {
		return bulgu.LinkInternal
	}
	if linkDomain := registeredDomain(bulgu.Hostname(href)); linkDomain != "" && linkDomain == responseDomain {
		return bulgu.LinkInternal
	}
	if strings.HasPrefix(href, "/") {
		return bulgu.LinkInternal
	}
	if strings.HasPrefix(lower, "http") {
		return bulgu.LinkExternal
	}
	return bulgu.LinkInvalid
}

// registeredDomain returns the eTLD+1 of a hostname, falling back to the
// hostname itself when the public suffix list cannot resolve it.
func registeredDomain(host string) string {
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// Meta extracts the title, description and keyword list of a page.
func (e *Extractor) Meta(resp *bulgu.UniformResponse) bulgu.MetaTags {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return bulgu.MetaTags{}
	}

	meta := bulgu.MetaTags{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	}
	if keywords, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		for _, kw := range strings.Split(keywords, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				meta.Keywords = append(meta.Keywords, kw)
			}
		}
	}
	return meta
}

// FaviconHint returns the href of <link rel="shortcut icon">, falling back
// to <link rel="icon">.
func (e *Extractor) FaviconHint(resp *bulgu.UniformResponse) bulgu.FaviconHint {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return ""
	}
	if href, ok := doc.Find(`link[rel="shortcut icon"]`).Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	if href, ok := doc.Find(`link[rel="icon"]`).Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return ""
}
