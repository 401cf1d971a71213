// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the omnithink pipeline:
// retrieved evidence, outlines, articles, configuration, and the error
// taxonomy shared by every stage.
package types

import (
	"strings"
	"unicode"
)

// Snippet is one piece of retrieved evidence with its source attribution.
// The Retriever returns snippets in descending relevance order.
type Snippet struct {
	// Text is the snippet body as returned by the search backend.
	Text string `json:"text" yaml:"text"`

	// Title is the title of the page the snippet was taken from.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// URL is the source reference for the snippet.
	URL string `json:"source_url" yaml:"source_url"`

	// Score is a backend-specific relevance score normalized to [0,1].
	Score float64 `json:"score" yaml:"score"`

	// Source identifies which backend produced the snippet (e.g. "serper", "brave").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Key returns the identity of a piece of evidence: the source URL together
// with the normalized text. Two passages from one page are distinct evidence.
func (s Snippet) Key() string {
	return normalizeURL(s.URL) + "\x00" + NormalizeText(s.Text)
}

// PageKey returns the identity of the page a snippet came from: the source
// URL when present, otherwise the normalized text. Backends that return the
// same page for one query collapse on it.
func (s Snippet) PageKey() string {
	if s.URL != "" {
		return "url:" + normalizeURL(s.URL)
	}
	return "text:" + NormalizeText(s.Text)
}

func normalizeURL(u string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
}

// NormalizeText lowercases s, strips punctuation, and collapses whitespace.
// It is the canonical form used for concept and title comparison.
func NormalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MergeSnippets returns dst with every snippet of src appended unless a
// snippet with the same Key is already present. Order is preserved.
func MergeSnippets(dst, src []Snippet) []Snippet {
	seen := make(map[string]bool, len(dst)+len(src))
	out := make([]Snippet, 0, len(dst)+len(src))
	for _, s := range dst {
		if seen[s.Key()] {
			continue
		}
		seen[s.Key()] = true
		out = append(out, s)
	}
	for _, s := range src {
		if seen[s.Key()] {
			continue
		}
		seen[s.Key()] = true
		out = append(out, s)
	}
	return out
}
