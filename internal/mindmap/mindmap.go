// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mindmap grows a depth-bounded tree of concepts from a topic by
// alternating web retrieval and language-model expansion, one layer at a
// time, and flattens it into a retrieval table for article synthesis.
//
// Nodes live in an arena keyed by stable IDs. Each node has exactly one
// primary parent; a concept proposed by several parents of the same layer
// is owned by the first and referenced by the others, so the primary-parent
// graph stays a tree.
package mindmap

import (
	"fmt"
	"slices"

	"github.com/pdiddy/omnithink/pkg/types"
)

// Node is one concept of the mind map.
type Node struct {
	ID    string `json:"id" yaml:"id"`
	Text  string `json:"text" yaml:"text"`
	Depth int    `json:"depth" yaml:"depth"`

	// Parent is the primary parent ID; empty for the root.
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`

	// SecondaryParents lists other parents of the same layer that proposed
	// this concept. They reference the node without owning it.
	SecondaryParents []string `json:"secondary_parents,omitempty" yaml:"secondary_parents,omitempty"`

	// Children lists owned child IDs in creation order.
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`

	// References lists child IDs proposed by this node but owned by
	// another parent.
	References []string `json:"references,omitempty" yaml:"references,omitempty"`

	// Evidence holds the snippets retrieved for this concept.
	Evidence []types.Snippet `json:"evidence,omitempty" yaml:"evidence,omitempty"`

	searched bool
}

func (n *Node) clone() Node {
	c := *n
	c.SecondaryParents = slices.Clone(n.SecondaryParents)
	c.Children = slices.Clone(n.Children)
	c.References = slices.Clone(n.References)
	c.Evidence = slices.Clone(n.Evidence)
	return c
}

// MindMap owns the concept arena. It is not safe for concurrent mutation;
// the Builder serializes all writes.
type MindMap struct {
	topic    string
	maxDepth int
	nodes    map[string]*Node
	order    []string
	layers   [][]string
	table    *Table
}

// New creates a mind map holding only the root node for topic.
func New(topic string, maxDepth int) *MindMap {
	m := &MindMap{
		topic:    topic,
		maxDepth: maxDepth,
		nodes:    make(map[string]*Node),
	}
	m.addNode(topic, 0, "")
	return m
}

// Topic returns the topic the map was created from.
func (m *MindMap) Topic() string { return m.topic }

// MaxDepth returns the configured depth bound.
func (m *MindMap) MaxDepth() int { return m.maxDepth }

// Len returns the number of nodes, root included.
func (m *MindMap) Len() int { return len(m.order) }

// Depth returns the deepest layer holding at least one node.
func (m *MindMap) Depth() int {
	for d := len(m.layers) - 1; d > 0; d-- {
		if len(m.layers[d]) > 0 {
			return d
		}
	}
	return 0
}

// Root returns the topic node.
func (m *MindMap) Root() Node { return m.nodes[m.order[0]].clone() }

// Node returns a copy of the node with id.
func (m *MindMap) Node(id string) (Node, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Layer returns copies of the nodes at depth in creation order.
func (m *MindMap) Layer(depth int) []Node {
	if depth < 0 || depth >= len(m.layers) {
		return nil
	}
	out := make([]Node, 0, len(m.layers[depth]))
	for _, id := range m.layers[depth] {
		out = append(out, m.nodes[id].clone())
	}
	return out
}

// Children returns copies of the owned children of id.
func (m *MindMap) Children(id string) []Node {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	out := make([]Node, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, m.nodes[c].clone())
	}
	return out
}

// Leaves returns the nodes without owned children, by layer then creation
// order.
func (m *MindMap) Leaves() []Node {
	var out []Node
	m.Walk(func(n Node) bool {
		if len(n.Children) == 0 {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Path returns the concept texts from the root down to id.
func (m *MindMap) Path(id string) []string {
	var path []string
	for n, ok := m.nodes[id]; ok; n, ok = m.nodes[n.Parent] {
		path = append(path, n.Text)
	}
	slices.Reverse(path)
	return path
}

// Walk visits every node, root first, then layer by layer in creation
// order, until fn returns false.
func (m *MindMap) Walk(fn func(Node) bool) {
	for _, layer := range m.layers {
		for _, id := range layer {
			if !fn(m.nodes[id].clone()) {
				return
			}
		}
	}
}

// Concepts returns the normalized text of every node.
func (m *MindMap) Concepts() []string {
	out := make([]string, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, types.NormalizeText(m.nodes[id].Text))
	}
	return out
}

func (m *MindMap) addNode(text string, depth int, parent string) *Node {
	n := &Node{
		ID:     fmt.Sprintf("n%d", len(m.order)),
		Text:   text,
		Depth:  depth,
		Parent: parent,
	}
	m.nodes[n.ID] = n
	m.order = append(m.order, n.ID)
	for len(m.layers) <= depth {
		m.layers = append(m.layers, nil)
	}
	m.layers[depth] = append(m.layers[depth], n.ID)
	if p, ok := m.nodes[parent]; ok {
		p.Children = append(p.Children, n.ID)
	}
	return n
}
