// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/omnithink/internal/search"
	"github.com/pdiddy/omnithink/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run the concept retriever for a query",
	Long: `Search sends a query to the configured web search backends, merges and
deduplicates the results, and prints them ranked by score. It is the same
retriever the mind map uses for every node.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer writeMetrics(cfg)

		retriever, err := newRetriever(cfg)
		if err != nil {
			return err
		}
		topK, _ := cmd.Flags().GetInt("top-k")
		snippets, err := retriever.Search(context.Background(), strings.Join(args, " "), topK)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return search.FormatJSON(snippets, os.Stdout)
		}
		search.FormatTable(snippets, os.Stdout)
		return nil
	},
}

func init() {
	addRetrievalFlags(searchCmd, types.DefaultPipelineConfig())
	searchCmd.Flags().Int("top-k", 10, "maximum number of results")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
