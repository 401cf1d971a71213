// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mindmap

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportInfo is one evidence record of an exported concept. Snippets is a
// list so evaluators can join multi-part excerpts.
type ExportInfo struct {
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	URL      string   `json:"url" yaml:"url"`
	Snippets []string `json:"snippets" yaml:"snippets"`
}

// ExportNode is the nested mind map shape read by the evaluation tools:
// {"info": [...], "children": {name: <same shape>}}.
type ExportNode struct {
	Concept  string                 `json:"concept" yaml:"concept"`
	Info     []ExportInfo           `json:"info" yaml:"info"`
	Children map[string]*ExportNode `json:"children" yaml:"children"`
}

// Export converts the map into the nested export shape, following owned
// children only.
func (m *MindMap) Export() *ExportNode {
	return m.export(m.order[0])
}

func (m *MindMap) export(id string) *ExportNode {
	n := m.nodes[id]
	out := &ExportNode{
		Concept:  n.Text,
		Info:     make([]ExportInfo, 0, len(n.Evidence)),
		Children: make(map[string]*ExportNode, len(n.Children)),
	}
	for _, s := range n.Evidence {
		out.Info = append(out.Info, ExportInfo{
			Title:    s.Title,
			URL:      s.URL,
			Snippets: []string{s.Text},
		})
	}
	// Sibling texts are unique after layer dedup.
	for _, c := range n.Children {
		out.Children[m.nodes[c].Text] = m.export(c)
	}
	return out
}

// WriteJSON writes the nested export as indented JSON.
func (m *MindMap) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.Export()); err != nil {
		return fmt.Errorf("encoding mind map: %w", err)
	}
	return nil
}

// WriteYAML writes the nested export as YAML.
func (m *MindMap) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m.Export()); err != nil {
		return fmt.Errorf("encoding mind map: %w", err)
	}
	return enc.Close()
}
