// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// Render executes a prompt template with data.
func Render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// StripFences removes a surrounding Markdown code fence (``` or ```json)
// from a model response.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeJSON unmarshals the first JSON object or array found in a model
// response into v. Models often wrap JSON in prose or code fences.
func DecodeJSON(response string, v any) error {
	s := StripFences(response)
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON in response %q", excerpt(s))
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return fmt.Errorf("unterminated JSON in response %q", excerpt(s))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("parsing response JSON: %w", err)
	}
	return nil
}

func excerpt(s string) string {
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
