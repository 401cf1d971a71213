// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/omnithink/internal/outline"
	"github.com/pdiddy/omnithink/internal/pipeline"
	"github.com/pdiddy/omnithink/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate an article for a topic",
	Long: `Generate runs the whole pipeline for a topic: mind map, retrieval table,
outline, section synthesis, and polishing. The article is written to
<output-dir>/<Topic_Slug>.md with the topic as its level-1 heading. When
--export-mindmap is on, the mind map is written next to it as JSON.

Nothing is written when any stage fails; the command exits with status 1 and
reports the failing stage.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer writeMetrics(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retriever, err := newRetriever(cfg)
	if err != nil {
		return err
	}
	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	driver, err := pipeline.New(cfg, retriever, generator, logger, collector)
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("outline"); path != "" {
		o, err := outline.Load(path, topic)
		if err != nil {
			return err
		}
		driver.Outline = &o
	}

	res, err := driver.Run(ctx, topic)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, res)
	return nil
}

func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "Run %s: %q\n", res.RunID, res.Topic)
	fmt.Fprintf(w, "  Mind map:  %d nodes in %d layers\n", res.MindMap.Len(), res.MindMap.Depth()+1)
	fmt.Fprintf(w, "  Table:     %d entries, %d snippets\n", res.Table.Len(), res.Table.SnippetCount())
	fmt.Fprintf(w, "  Sections:  %d", len(res.Article.Sections))
	if failed := res.Article.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, " (%d placeholders)", len(failed))
	}
	fmt.Fprintln(w)
	for i, s := range res.Article.Sections {
		fmt.Fprintf(w, "    %2d. %-40s %s\n", i+1, s.Title, s.Status)
	}
	fmt.Fprintf(w, "  Warnings:  %d\n", len(res.Warnings))
	fmt.Fprintf(w, "  Article:   %s\n", res.ArtifactPath)
	if res.MindMapPath != "" {
		fmt.Fprintf(w, "  Mind map:  %s\n", res.MindMapPath)
	}
	fmt.Fprintf(w, "  Elapsed:   %s\n", res.Elapsed.Round(time.Millisecond))
}

func init() {
	def := types.DefaultPipelineConfig()
	addRetrievalFlags(generateCmd, def)
	addGeneratorFlags(generateCmd, def)
	addMindMapFlags(generateCmd, def)

	generateCmd.Flags().Int("section-workers", def.Synthesis.Workers, "sections written concurrently")
	generateCmd.Flags().Int("top-k", def.Synthesis.TopK, "retrieval table entries given to each section")
	generateCmd.Flags().String("ranker", def.Synthesis.Ranker, "evidence ranking: lexical, bleve, or fts")
	generateCmd.Flags().Bool("fail-on-placeholder", def.Synthesis.FailOnPlaceholder, "fail the run when a section cannot be written")
	generateCmd.Flags().Int("passes", def.Polish.Passes, "polishing passes (1-3)")
	generateCmd.Flags().Int("target-words", def.Polish.TargetWords, "article length hint for polishing (0 = keep length)")
	generateCmd.Flags().String("output-dir", def.Output.Dir, "directory for the article and mind map export")
	generateCmd.Flags().Bool("export-mindmap", def.Output.ExportMindMap, "write the mind map JSON next to the article")
	generateCmd.Flags().String("outline", "", "use this outline file (YAML or Markdown headings) instead of generating one")

	rootCmd.AddCommand(generateCmd)
}

func addRetrievalFlags(cmd *cobra.Command, def types.PipelineConfig) {
	cmd.Flags().StringSlice("backends", def.Retrieval.Backends, "search backends: serper, brave, arxiv, openalex")
	cmd.Flags().String("email", def.Retrieval.Email, "contact email sent to OpenAlex")
	cmd.Flags().Duration("retrieval-timeout", def.Retrieval.Timeout, "timeout of one search call")
}

func addGeneratorFlags(cmd *cobra.Command, def types.PipelineConfig) {
	cmd.Flags().String("provider", def.Generator.Provider, "model provider: claude, openai, or gemini")
	cmd.Flags().String("model", def.Generator.Model, "model identifier")
	cmd.Flags().String("base-url", def.Generator.BaseURL, "override the provider endpoint")
	cmd.Flags().Float64("temperature", def.Generator.Temperature, "sampling temperature")
	cmd.Flags().Duration("generator-timeout", def.Generator.Timeout, "timeout of one completion call")
}

func addMindMapFlags(cmd *cobra.Command, def types.PipelineConfig) {
	cmd.Flags().Int("depth", def.MindMap.MaxDepth, "maximum mind map depth (0 = root only)")
	cmd.Flags().Int("max-children", def.MindMap.MaxChildren, "concepts requested per node")
	cmd.Flags().Int("snippets", def.MindMap.SnippetsPerNode, "search results retrieved per node")
	cmd.Flags().Int("workers", def.MindMap.Workers, "nodes expanded concurrently within a layer")
	cmd.Flags().Float64("dedup-threshold", def.MindMap.DedupThreshold, "concept similarity at which a layer merges nodes (1 = exact)")
}
