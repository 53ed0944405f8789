// Package bulgu implements a small-scale, Turkish-content-biased web search
// engine. Its pipeline discovers reachable HTTP endpoints across the IPv4
// space, resolves discovered URLs, crawls pages, maintains an inverted index
// and a backlink graph, and answers free-text queries with a blended
// TF-IDF / proximity / tag-weight / authority ranking.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlstore/, goquery/, dns/).
package bulgu
