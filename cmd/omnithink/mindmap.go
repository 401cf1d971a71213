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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/omnithink/internal/mindmap"
	"github.com/pdiddy/omnithink/pkg/types"
)

var mindmapCmd = &cobra.Command{
	Use:   "mindmap <topic>",
	Short: "Build and export the mind map for a topic",
	Long: `Mindmap grows the concept mind map for a topic and writes it in the nested
{"info": [...], "children": {...}} shape read by the evaluation tools. Each
layer is reported on stderr as soon as it is built.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMindMap,
}

func runMindMap(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
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
	b, err := mindmap.NewBuilder(topic, retriever, generator, cfg.MindMap, logger, collector)
	if err != nil {
		return err
	}

	for {
		layer, err := b.NextLayer(ctx)
		if err != nil {
			return &types.StageError{Stage: types.StageMindMap, Err: err}
		}
		for _, w := range layer.Warnings {
			logger.Warn("layer warning", zap.Int("depth", layer.Depth), zap.String("warning", w))
		}
		if layer.Done() {
			break
		}
		names := make([]string, len(layer.Nodes))
		for i, n := range layer.Nodes {
			names[i] = n.Text
		}
		fmt.Fprintf(os.Stderr, "Layer %d: %s\n", layer.Depth, strings.Join(names, "; "))
	}

	var out io.Writer = os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	mm := b.MindMap()
	switch format, _ := cmd.Flags().GetString("format"); format {
	case "json", "":
		return mm.WriteJSON(out)
	case "yaml":
		return mm.WriteYAML(out)
	default:
		return fmt.Errorf("unsupported format %q: use json or yaml", format)
	}
}

func init() {
	def := types.DefaultPipelineConfig()
	addRetrievalFlags(mindmapCmd, def)
	addGeneratorFlags(mindmapCmd, def)
	addMindMapFlags(mindmapCmd, def)
	mindmapCmd.Flags().String("format", "json", "export format: json or yaml")
	mindmapCmd.Flags().StringP("output", "o", "", "write the export to this file instead of stdout")

	rootCmd.AddCommand(mindmapCmd)
}
