// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mindmap

import (
	"strings"
	"text/template"
	"unicode"

	"github.com/pdiddy/omnithink/internal/llm"
	"github.com/pdiddy/omnithink/pkg/types"
)

const (
	maxPromptSnippets   = 8
	maxSnippetChars     = 400
	maxExistingConcepts = 40
	maxConceptChars     = 80
)

var expandPromptTmpl = template.Must(template.New("expand").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}).Parse(`You are building a mind map of concepts for an article about "{{.Topic}}".

Current concept: {{.Concept}}
Path from the topic: {{join .Path " > "}}

Search results for the current concept:
{{range $i, $s := .Snippets}}[{{inc $i}}] {{if $s.Title}}{{$s.Title}}: {{end}}{{$s.Text}}
{{else}}(no search results)
{{end}}
Concepts already in the mind map (do not repeat them):
{{if .Existing}}{{join .Existing "; "}}{{else}}(none){{end}}

List at most {{.MaxChildren}} distinct sub-concepts of "{{.Concept}}" that an article on "{{.Topic}}" should cover. Prefer concepts supported by the search results. Each concept is a short noun phrase of at most eight words.

Respond with a JSON array of strings and nothing else, for example ["First concept", "Second concept"]. Respond with [] if the concept cannot be expanded further.
`))

type expandPromptData struct {
	Topic       string
	Concept     string
	Path        []string
	Snippets    []types.Snippet
	Existing    []string
	MaxChildren int
}

func renderExpandPrompt(d expandPromptData) (string, error) {
	if len(d.Snippets) > maxPromptSnippets {
		d.Snippets = d.Snippets[:maxPromptSnippets]
	}
	trimmed := make([]types.Snippet, len(d.Snippets))
	for i, s := range d.Snippets {
		s.Text = clip(s.Text, maxSnippetChars)
		trimmed[i] = s
	}
	d.Snippets = trimmed
	if len(d.Existing) > maxExistingConcepts {
		d.Existing = d.Existing[len(d.Existing)-maxExistingConcepts:]
	}
	return llm.Render(expandPromptTmpl, d)
}

// parseConcepts extracts concept names from a model response: a JSON array
// of strings, a JSON array of {"name": ...} objects, or one concept per
// line with optional bullets or numbering. ok is false when the response
// is non-empty but yields nothing usable.
func parseConcepts(response string, max int) (concepts []string, ok bool) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, true
	}

	var names []string
	var objs []struct {
		Name    string `json:"name"`
		Concept string `json:"concept"`
	}
	switch {
	case llm.DecodeJSON(response, &names) == nil:
	case llm.DecodeJSON(response, &objs) == nil:
		for _, o := range objs {
			if o.Name != "" {
				names = append(names, o.Name)
			} else {
				names = append(names, o.Concept)
			}
		}
	default:
		if strings.ContainsAny(llm.StripFences(response), "[{") {
			return nil, false
		}
		for _, line := range strings.Split(llm.StripFences(response), "\n") {
			// Skip preambles such as "Here are the concepts:".
			if !strings.HasSuffix(strings.TrimSpace(line), ":") {
				names = append(names, line)
			}
		}
	}

	seen := make(map[string]bool)
	for _, n := range names {
		n = cleanConcept(n)
		key := types.NormalizeText(n)
		if key == "" || seen[key] || len([]rune(n)) > maxConceptChars {
			continue
		}
		seen[key] = true
		concepts = append(concepts, n)
		if max > 0 && len(concepts) == max {
			break
		}
	}
	if len(concepts) == 0 && len(names) > 0 {
		return nil, false
	}
	return concepts, true
}

// cleanConcept strips list markers, numbering and surrounding quotes.
func cleanConcept(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*•# \t")
	if i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }); i > 0 && (s[i] == '.' || s[i] == ')') {
		s = strings.TrimSpace(s[i+1:])
	}
	s = strings.Trim(s, "\"'` ")
	s = strings.TrimRight(s, ".,;:")
	return strings.TrimSpace(s)
}

func clip(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "..."
}
