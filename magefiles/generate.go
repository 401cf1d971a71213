//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Generate builds the CLI and writes the article for topic to results/article.
func Generate(topic string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "generate", "--output-dir", "results/article", topic)
}

// MindMap builds the CLI and exports the mind map for topic to results/mindmap,
// where the diversity evaluator reads it.
func MindMap(topic string) error {
	mg.Deps(Build)
	out := filepath.Join("results", "mindmap", strings.ReplaceAll(strings.TrimSpace(topic), " ", "_")+".json")
	if err := sh.RunV(filepath.Join(binDir, binName), "mindmap", "--output", out, topic); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}
