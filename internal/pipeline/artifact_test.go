// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		topic, want string
	}{
		{"Renewable Energy", "Renewable_Energy"},
		{"  AI/ML:  trends? ", "AIML_trends"},
		{"Zürich 2024", "Zürich_2024"},
		{"../etc/passwd", "etcpasswd"},
		{"???", "article"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.topic), "topic %q", tt.topic)
	}
}

func TestWriteArticle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	path, err := WriteArticle(dir, "Renewable Energy", "\n## Solar\n\nText.\n\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Renewable_Energy.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Renewable Energy\n\n## Solar\n\nText.\n", string(data))

	// Overwrite in place leaves no temp files behind.
	_, err = WriteArticle(dir, "Renewable Energy", "Second.")
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Renewable Energy\n\nSecond.\n", string(data))
}
