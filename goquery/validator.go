// Package goquery implements HTML parsing for the crawl pipeline: response
// validation, link and metadata extraction, and the tokenizer feeding the
// inverted index.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bulgusearch/bulgu"
)

// Ensure Validator implements bulgu.Validator at compile time.
var _ bulgu.Validator = (*Validator)(nil)

// turkishMarkers are the language values accepted as Turkish.
var turkishMarkers = map[string]bool{
	"tr":    true,
	"tr-tr": true,
	"tr_tr": true,
}

// Validator applies the crawler's content checks in a fixed order and
// collects every failure without short-circuiting.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the checks against a normalized response.
func (v *Validator) Validate(resp *bulgu.UniformResponse) []bulgu.Failure {
	var failures []bulgu.Failure

	if resp.StatusCode != 200 {
		failures = append(failures, bulgu.FailInvalidStatusCode)
	}
	if resp.Body == "" {
		failures = append(failures, bulgu.FailNoContent)
	}
	if !strings.Contains(strings.ToLower(resp.Headers.Get("Content-Type")), "text/html") {
		failures = append(failures, bulgu.FailInvalidContentType)
	}
	if !isTurkish(resp) {
		failures = append(failures, bulgu.FailNotTurkish)
	}

	return failures
}

// isTurkish reports whether any of the page's language signals mark it as
// Turkish content: the Content-Language header, the equivalent meta
// http-equiv element, the og:locale property, or the <html lang> attribute.
func isTurkish(resp *bulgu.UniformResponse) bool {
	if turkishMarkers[strings.ToLower(strings.TrimSpace(resp.Headers.Get("Content-Language")))] {
		return true
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Body))
	if err != nil {
		return false
	}

	found := false
	doc.Find(`meta[http-equiv]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(equiv, "Content-Language") {
			return true
		}
		content, _ := s.Attr("content")
		if turkishMarkers[strings.ToLower(strings.TrimSpace(content))] {
			found = true
			return false
		}
		return true
	})
	if found {
		return true
	}

	if locale, ok := doc.Find(`meta[property="og:locale"]`).Attr("content"); ok {
		if strings.EqualFold(strings.TrimSpace(locale), "tr_TR") {
			return true
		}
	}

	if lang, ok := doc.Find("html").Attr("lang"); ok {
		if turkishMarkers[strings.ToLower(strings.TrimSpace(lang))] {
			return true
		}
	}

	return false
}
