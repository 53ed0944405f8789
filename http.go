package bulgu

import (
	"context"
	"strings"
)

// UniformResponse is the single normalized shape for HTTP responses,
// independent of the client library that produced them. Body holds the
// decoded text (UTF-8 when valid, otherwise ISO-8859-9), ContentBytes the
// raw payload.
type UniformResponse struct {
	URL          string
	StatusCode   int
	Headers      Headers
	Body         string
	ContentBytes []byte
}

// Headers is a case-insensitive header mapping.
type Headers map[string]string

// Get returns the value for a header key, matching case-insensitively.
func (h Headers) Get(key string) string {
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Fetcher issues HTTP GET requests with the configured user-agent and total
// timeout, following redirects, and normalizes the result.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*UniformResponse, error)
}

// AssetFetcher retrieves the auxiliary page assets stored alongside a page
// record. A missing or malformed asset yields nil bytes, not an error.
type AssetFetcher interface {
	// Favicon fetches /favicon.ico off the page's base URL, falling back to
	// the hint extracted from <link rel="shortcut icon">/<link rel="icon">.
	Favicon(ctx context.Context, pageURL, hint string) []byte

	// RobotsTxt fetches robots.txt off the page's base URL. The response
	// must carry a text/plain content type and parse as a robots file.
	RobotsTxt(ctx context.Context, pageURL string) []byte

	// Sitemap fetches sitemap.xml off the page's base URL. The response
	// must carry an application/xml content type and parse as XML.
	Sitemap(ctx context.Context, pageURL string) []byte
}

// Failure classifies why a response was rejected by the validator.
type Failure int

// Validation failure classes.
const (
	FailInvalidStatusCode Failure = iota
	FailNotAvailable
	FailNotTurkish
	FailNoContent
	FailInvalidContentType
)

// String returns the canonical name of the failure class.
func (f Failure) String() string {
	switch f {
	case FailInvalidStatusCode:
		return "INVALID_STATUS_CODE"
	case FailNotAvailable:
		return "NOT_AVAILABLE"
	case FailNotTurkish:
		return "NOT_TURKISH"
	case FailNoContent:
		return "NO_CONTENT"
	case FailInvalidContentType:
		return "INVALID_CONTENT_TYPE"
	default:
		return "UNKNOWN"
	}
}

// Validator applies an ordered set of content checks to a response and
// returns every failure, never short-circuiting.
type Validator interface {
	Validate(resp *UniformResponse) []Failure
}
