package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/openclaw-graphrag/internal/qa"
)

func queryCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Answer a question over the knowledge graph only",
		Long: `Translates the question to Cypher, checks its leading keyword against the
allow-list (qa.allowed_keywords) and runs it against Neo4j.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			d, err := buildDeps(ctx, logger)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer func() { _ = d.Close() }()

			res := d.graphQA.Run(ctx, strings.Join(args, " "))
			if asJSON {
				if err := printJSON(res); err != nil {
					return err
				}
			} else {
				printGraphResult(res)
			}
			if res.State != qa.StateAnswered {
				return fmt.Errorf("query: %w", res.Err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
