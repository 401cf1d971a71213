// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outline

import (
	"strings"
	"text/template"

	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/internal/mindmap"
)

const maxPaths = 60

var promptTmpl = template.Must(template.New("outline").Parse(`You are planning a long-form article about "{{.Topic}}".

The following concept paths come from a mind map built from web research. The number in brackets is how many search snippets support the final concept of the path.
{{range .Paths}}- {{.Text}} [{{.Evidence}}]
{{end}}
Write an outline for the article. Use "# " for section titles and "## " for subsection titles. Do not include the article title, an introduction that only restates the topic, or any text other than the headings. Cover the well-supported concepts first and merge overlapping ones.
`))

type pathLine struct {
	Text     string
	Evidence int
}

type promptData struct {
	Topic string
	Paths []pathLine
}

// paths lists every root-to-leaf path with the leaf's evidence count. A
// map holding only the root yields one line for the topic.
func paths(mm *mindmap.MindMap) []pathLine {
	var out []pathLine
	for _, leaf := range mm.Leaves() {
		out = append(out, pathLine{
			Text:     strings.Join(mm.Path(leaf.ID), " > "),
			Evidence: len(leaf.Evidence),
		})
		if len(out) == maxPaths {
			break
		}
	}
	return out
}

func renderPrompt(topic string, mm *mindmap.MindMap) (string, error) {
	return llm.Render(promptTmpl, promptData{Topic: topic, Paths: paths(mm)})
}
