package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to required services",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			allOK := true

			// Check Neo4j
			gs, err := newGraphStore(ctx, logger)
			if err != nil {
				fmt.Printf("Neo4j: FAIL (%v)\n", err)
				allOK = false
			} else {
				defer func() { _ = gs.Close(ctx) }()
				if _, err := gs.Stats(ctx); err != nil {
					fmt.Printf("Neo4j: FAIL (%v)\n", err)
					allOK = false
				} else {
					fmt.Println("Neo4j: OK")
				}
			}

			// Check Qdrant
			vb, err := newVectorBackend(logger)
			if err != nil {
				fmt.Printf("Qdrant: FAIL (%v)\n", err)
				allOK = false
			} else {
				defer func() { _ = vb.Close() }()
				if err := vb.EnsureCollection(ctx); err != nil {
					fmt.Printf("Qdrant: FAIL (%v)\n", err)
					allOK = false
				} else {
					fmt.Println("Qdrant: OK")
				}
			}

			// Check embedder
			emb, err := newEmbedder(logger)
			if err == nil {
				_, err = emb.Embed(ctx, "health check")
			}
			if err != nil {
				fmt.Printf("Embedder (%s): FAIL (%v)\n", cfg.Embedder.Provider, err)
				allOK = false
			} else {
				fmt.Printf("Embedder (%s): OK\n", cfg.Embedder.Provider)
			}

			// Check oracle API key
			if cfg.Oracle.APIKey() == "" {
				fmt.Printf("Oracle (%s): FAIL (no API key configured)\n", cfg.Oracle.Provider)
				allOK = false
			} else {
				fmt.Printf("Oracle (%s): OK\n", cfg.Oracle.Provider)
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}
