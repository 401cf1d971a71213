// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mindmap

import (
	"slices"
	"strings"

	"github.com/pdiddy/omnithink/pkg/types"
)

// candidate is a concept proposed by one parent during a layer expansion.
type candidate struct {
	text     string
	key      string
	parent   string
	evidence []types.Snippet
}

// survivor is a candidate that will become a node after layer dedup.
type survivor struct {
	candidate
	secondary []string
}

// dedupResult is the outcome of deduplicating one layer.
type dedupResult struct {
	survivors []survivor
	merged    int
	dropped   int
}

// similar reports whether two normalized concept texts collapse into one
// node. A threshold of 1 requires exact normalized equality; lower values
// compare token sets by Jaccard similarity.
func similar(a, b string, threshold float64) bool {
	if a == b {
		return true
	}
	if threshold >= 1 {
		return false
	}
	return jaccard(tokenSet(a), tokenSet(b)) >= threshold
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// dedupLayer collapses the candidates of a whole layer. Candidates arrive
// grouped by parent in parent order; the first occurrence of a concept
// keeps its parent as owner and later parents become secondary. Candidates
// matching an existing concept of the map are dropped.
func dedupLayer(candidates []candidate, existing []string, threshold float64) dedupResult {
	var res dedupResult

	for _, c := range candidates {
		if c.key == "" {
			res.dropped++
			continue
		}
		if slices.ContainsFunc(existing, func(e string) bool { return similar(e, c.key, threshold) }) {
			res.dropped++
			continue
		}

		idx := slices.IndexFunc(res.survivors, func(s survivor) bool { return similar(s.key, c.key, threshold) })
		if idx < 0 {
			res.survivors = append(res.survivors, survivor{candidate: c})
			continue
		}

		s := &res.survivors[idx]
		s.evidence = types.MergeSnippets(s.evidence, c.evidence)
		if c.parent != s.parent && !slices.Contains(s.secondary, c.parent) {
			s.secondary = append(s.secondary, c.parent)
		}
		res.merged++
	}
	return res
}
