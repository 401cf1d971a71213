// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package article

import (
	"strings"
	"text/template"

	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/pkg/types"
)

const (
	maxEvidence      = 12
	maxEvidenceChars = 500
)

type evidenceItem struct {
	Concept string
	Snippet types.Snippet
}

var sectionPromptTmpl = template.Must(template.New("section").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}).Parse(`You are writing one section of an article about "{{.Topic}}".

Section: {{.Title}}
{{if .Subsections}}Cover these subsections, each under a "### " heading: {{join .Subsections "; "}}
{{end}}{{if .Previous}}The previous section is "{{.Previous}}".
{{end}}{{if .Next}}The next section is "{{.Next}}".
{{end}}
Evidence gathered during research:
{{range $i, $e := .Evidence}}[{{inc $i}}] {{if $e.Concept}}({{$e.Concept}}) {{end}}{{if $e.Snippet.Title}}{{$e.Snippet.Title}}: {{end}}{{$e.Snippet.Text}}{{if $e.Snippet.URL}} <{{$e.Snippet.URL}}>{{end}}
{{else}}(no evidence available; rely on the topic and section title)
{{end}}
Write the body of the section in Markdown. Ground claims in the evidence and cite it as [n]. Do not repeat the section title and do not write an introduction or conclusion for the whole article.
`))

type sectionPromptData struct {
	Topic       string
	Title       string
	Subsections []string
	Previous    string
	Next        string
	Evidence    []evidenceItem
}

func renderSectionPrompt(d sectionPromptData) (string, error) {
	if len(d.Evidence) > maxEvidence {
		d.Evidence = d.Evidence[:maxEvidence]
	}
	clipped := make([]evidenceItem, len(d.Evidence))
	for i, e := range d.Evidence {
		if r := []rune(e.Snippet.Text); len(r) > maxEvidenceChars {
			e.Snippet.Text = string(r[:maxEvidenceChars-3]) + "..."
		}
		clipped[i] = e
	}
	d.Evidence = clipped
	return llm.Render(sectionPromptTmpl, d)
}
