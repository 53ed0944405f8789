package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bulgusearch/bulgu"
)

// indexedTags is the set of HTML elements the tokenizer walks, in selector
// order. Only text inside these elements reaches the index.
var indexedTags = []string{"title", "h1", "h2", "h3", "p", "a", "span"}

// Tokens produces the page's token stream: for every element of the indexed
// tag set, the text is split on whitespace and each word is normalized and
// emitted with a zero-based location index and the enclosing tag name. The
// location counter is global across the whole stream; words that normalize
// to nothing are dropped without consuming a location. Input longer than the
// configured maximum document length is truncated first.
func (e *Extractor) Tokens(body string) []bulgu.Token {
	if e.maxDocumentLength > 0 && len(body) > e.maxDocumentLength {
		body = body[:e.maxDocumentLength]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var tokens []bulgu.Token
	location := 0
	for _, tag := range indexedTags {
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			for _, field := range strings.Fields(s.Text()) {
				word := bulgu.NormalizeWord(field)
				if word == "" {
					continue
				}
				tokens = append(tokens, bulgu.Token{
					Word:     word,
					Location: location,
					Tag:      tag,
				})
				location++
			}
		})
	}
	return tokens
}
