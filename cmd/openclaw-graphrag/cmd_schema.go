package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/openclaw-graphrag/internal/graph"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create Neo4j uniqueness constraints and the Qdrant collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			gs, err := newGraphStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("schema: connecting to graph store: %w", err)
			}
			defer func() { _ = gs.Close(ctx) }()

			if neo, ok := gs.(*graph.Neo4jStore); ok {
				if err := neo.EnsureSchema(ctx); err != nil {
					return fmt.Errorf("schema: %w", err)
				}
				fmt.Println("Neo4j constraints: OK")
			}

			vb, err := newVectorBackend(logger)
			if err != nil {
				return fmt.Errorf("schema: connecting to vector backend: %w", err)
			}
			defer func() { _ = vb.Close() }()

			if err := vb.EnsureCollection(ctx); err != nil {
				return fmt.Errorf("schema: %w", err)
			}
			fmt.Printf("Qdrant collection %q: OK\n", cfg.Qdrant.Collection)
			return nil
		},
	}
}
