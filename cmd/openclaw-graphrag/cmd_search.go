package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
	"github.com/ajitpratap0/openclaw-graphrag/pkg/textutil"
)

func searchCmd() *cobra.Command {
	var (
		k      int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed chunks by semantic similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			d, err := buildDeps(ctx, logger)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer func() { _ = d.Close() }()

			if k <= 0 {
				k = cfg.QA.TopK
			}
			results, err := d.index.Retrieve(ctx, strings.Join(args, " "), k)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if asJSON {
				return printJSON(results)
			}
			printChunks(results)
			return nil
		},
	}

	cmd.Flags().IntVar(&k, "k", 0, "max results (default qa.top_k)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func printChunks(results []models.RetrievedChunk) {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return
	}
	for i := range results {
		r := &results[i]
		fmt.Printf("[%d] (%.4f) %s\n", i+1, r.Score, textutil.Preview(r.Chunk.Text, 120))
		fmt.Printf("    ID: %s | Source: %s\n", r.Chunk.ID, r.Chunk.Source())
	}
}
