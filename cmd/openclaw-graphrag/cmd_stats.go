package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show graph and vector index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			gs, err := newGraphStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("stats: connecting to graph store: %w", err)
			}
			defer func() { _ = gs.Close(ctx) }()

			vb, err := newVectorBackend(logger)
			if err != nil {
				return fmt.Errorf("stats: connecting to vector backend: %w", err)
			}
			defer func() { _ = vb.Close() }()

			stats, err := gs.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: fetching graph statistics: %w", err)
			}
			chunks, err := vb.Count(ctx)
			if err != nil {
				return fmt.Errorf("stats: counting chunks: %w", err)
			}

			fmt.Println("Graph:")
			fmt.Printf("  %-14s %d\n", "entities", stats.Entities)
			fmt.Printf("  %-14s %d\n", "documents", stats.Documents)
			fmt.Printf("  %-14s %d\n", "mentions", stats.Mentions)
			fmt.Printf("  %-14s %d\n", "relationships", stats.Relationships)
			fmt.Println("\nVector index:")
			fmt.Printf("  %-14s %d\n", "chunks", chunks)
			return nil
		},
	}
}
