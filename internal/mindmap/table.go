// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mindmap

import (
	"slices"

	"github.com/pdiddy/omnithink/pkg/types"
)

// Entry is one row of the retrieval table.
type Entry struct {
	// Key is the normalized concept text.
	Key     string `json:"key"`
	NodeID  string `json:"node_id"`
	Concept string `json:"concept"`
	Depth   int    `json:"depth"`

	// Order is the node's insertion order in the map, root = 0.
	Order    int             `json:"order"`
	Evidence []types.Snippet `json:"evidence"`
}

// Table is the flattened, read-only evidence index derived from a MindMap.
// It is safe for concurrent reads.
type Table struct {
	entries []Entry
	byKey   map[string]int
	byNode  map[string]int
}

// PrepareTableForRetrieval rebuilds the retrieval table from every node,
// root first, then by layer in creation order, replacing any previous
// table. Calling it twice without growth in between yields equal tables.
func (m *MindMap) PrepareTableForRetrieval() *Table {
	t := &Table{
		byKey:  make(map[string]int),
		byNode: make(map[string]int),
	}
	order := make(map[string]int, len(m.order))
	for i, id := range m.order {
		order[id] = i
	}

	m.Walk(func(n Node) bool {
		key := types.NormalizeText(n.Text)
		if idx, ok := t.byKey[key]; ok {
			// Same concept text reached twice: one row, unioned evidence.
			t.entries[idx].Evidence = types.MergeSnippets(t.entries[idx].Evidence, n.Evidence)
			t.byNode[n.ID] = idx
			return true
		}
		t.byKey[key] = len(t.entries)
		t.byNode[n.ID] = len(t.entries)
		t.entries = append(t.entries, Entry{
			Key:      key,
			NodeID:   n.ID,
			Concept:  n.Text,
			Depth:    n.Depth,
			Order:    order[n.ID],
			Evidence: types.MergeSnippets(nil, n.Evidence),
		})
		return true
	})

	m.table = t
	return t
}

// Table returns the most recently prepared table, or nil.
func (m *MindMap) Table() *Table { return m.table }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns a copy of the entries in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i := range t.entries {
		out[i] = t.entry(i)
	}
	return out
}

// Lookup returns the entry for a concept text, matched after normalization.
func (t *Table) Lookup(concept string) (Entry, bool) {
	idx, ok := t.byKey[types.NormalizeText(concept)]
	if !ok {
		return Entry{}, false
	}
	return t.entry(idx), true
}

// ByNode returns the entry holding a node's evidence.
func (t *Table) ByNode(id string) (Entry, bool) {
	idx, ok := t.byNode[id]
	if !ok {
		return Entry{}, false
	}
	return t.entry(idx), true
}

func (t *Table) entry(idx int) Entry {
	e := t.entries[idx]
	e.Evidence = slices.Clone(e.Evidence)
	return e
}

// SnippetCount returns the total number of evidence snippets.
func (t *Table) SnippetCount() int {
	n := 0
	for _, e := range t.entries {
		n += len(e.Evidence)
	}
	return n
}
