// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pdiddy/omnithink/internal/mindmap"
)

// Slug turns a topic into a file name stem: spaces become underscores and
// characters outside letters, digits, '-', '_' and '.' are dropped.
// "Renewable Energy" becomes "Renewable_Energy".
func Slug(topic string) string {
	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(topic), "_") {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), "._")
	if s == "" {
		return "article"
	}
	return s
}

// ArticlePath returns where the article for topic is written.
func ArticlePath(dir, topic string) string {
	return filepath.Join(dir, Slug(topic)+".md")
}

// WriteArticle writes "# <topic>\n\n<body>\n" atomically and returns the path.
func WriteArticle(dir, topic, body string) (string, error) {
	path := ArticlePath(dir, topic)
	content := fmt.Sprintf("# %s\n\n%s\n", strings.TrimSpace(topic), strings.TrimSpace(body))
	if err := writeAtomic(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMindMap writes the nested JSON export of mm next to the article.
func WriteMindMap(dir string, mm *mindmap.MindMap) (string, error) {
	var buf bytes.Buffer
	if err := mm.WriteJSON(&buf); err != nil {
		return "", err
	}
	path := filepath.Join(dir, Slug(mm.Topic())+".mindmap.json")
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// writeAtomic writes data to a temporary file in the target directory and
// renames it into place, so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
