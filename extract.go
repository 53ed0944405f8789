package bulgu

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// LinkType classifies an extracted <a> href.
type LinkType int

// Link classifications.
const (
	// LinkInternal points inside the page's registered domain, or is
	// relative to it.
	LinkInternal LinkType = iota
	// LinkExternal is an absolute link to another domain.
	LinkExternal
	// LinkInvalid is anything else: mailto:, tel:, fragments, or links to
	// blacklisted binary/media file extensions.
	LinkInvalid
)

// String returns the canonical name of the link type.
func (t LinkType) String() string {
	switch t {
	case LinkInternal:
		return "INTERNAL"
	case LinkExternal:
		return "EXTERNAL"
	default:
		return "INVALID"
	}
}

// Link is one extracted <a> element.
type Link struct {
	Type       LinkType
	BaseURL    string // "scheme://netloc" of the response the link came from
	Href       string
	AnchorText string
}

// FullURL returns the absolute URL of the link. Internal relative links are
// joined onto the response's base URL.
func (l Link) FullURL() string {
	if l.Type == LinkInternal && len(l.Href) > 0 && l.Href[0] == '/' {
		return l.BaseURL + l.Href
	}
	return l.Href
}

// MetaTags holds the page metadata the crawler persists.
type MetaTags struct {
	Title       string
	Description string
	Keywords    []string
}

// Token is one entry of a page's preprocessed token stream: a normalized
// word, its zero-based position in the stream, and the HTML tag it was
// enclosed in.
type Token struct {
	Word     string
	Location int
	Tag      string
}

// FaviconHint is the href of the best <link rel> favicon candidate, or "".
type FaviconHint = string

// turkishASCII maps the Turkish-specific letters onto their ASCII
// equivalents so "çay" and "cay" index and retrieve identically.
var turkishASCII = map[rune]rune{
	'ı': 'i', 'ğ': 'g', 'ü': 'u', 'ş': 's', 'ö': 'o', 'ç': 'c',
	'İ': 'i', 'Ğ': 'g', 'Ü': 'u', 'Ş': 's', 'Ö': 'o', 'Ç': 'c', 'I': 'i',
}

// NormalizeWord canonicalizes one token for the index: NFC normalization,
// Turkish-to-ASCII transliteration, lowercasing, and removal of everything
// that is not a letter or digit. Both the indexer's tokenizer and the query
// preprocessor go through this function, which is what makes a stored word
// retrievable by the same query text.
func NormalizeWord(word string) string {
	word = norm.NFC.String(word)
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if ascii, ok := turkishASCII[r]; ok {
			b.WriteRune(ascii)
			continue
		}
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Extractor turns a normalized response into the artifacts the crawler and
// indexer consume. Malformed HTML yields empty collections, never errors.
type Extractor interface {
	// Links extracts and classifies every <a> element.
	Links(resp *UniformResponse) []Link

	// Meta extracts title, description and keywords.
	Meta(resp *UniformResponse) MetaTags

	// FaviconHint returns the href of <link rel="shortcut icon">, falling
	// back to <link rel="icon">.
	FaviconHint(resp *UniformResponse) FaviconHint

	// Tokens produces the token stream over the configured tag set.
	Tokens(body string) []Token
}
