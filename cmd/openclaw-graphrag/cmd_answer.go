package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/openclaw-graphrag/internal/qa"
	"github.com/ajitpratap0/openclaw-graphrag/pkg/textutil"
)

func answerCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "answer [question]",
		Short: "Answer a question over the graph and the vector index side by side",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			question := strings.Join(args, " ")

			d, err := buildDeps(ctx, logger)
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}
			defer func() { _ = d.Close() }()

			ans := d.dispatcher.Answer(ctx, question)
			if asJSON {
				return printJSON(ans)
			}

			fmt.Println("== Graph ==")
			printGraphResult(ans.Graph)
			fmt.Println("\n== Vector ==")
			if ans.Vector.Error != "" {
				fmt.Printf("FAIL (%s)\n", ans.Vector.Error)
			} else {
				printChunks(ans.Vector.Chunks)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the answer as JSON")
	return cmd
}

func printGraphResult(r qa.GraphResult) {
	if r.Query != "" {
		fmt.Printf("Cypher: %s\n", textutil.Preview(r.Query, 200))
	}
	switch r.State {
	case qa.StateAnswered:
		if len(r.Records) == 0 {
			fmt.Println("No records.")
		}
		for i, rec := range r.Records {
			fmt.Printf("[%d] %v\n", i+1, rec)
		}
	default:
		fmt.Printf("%s: %s\n", strings.ToUpper(string(r.State)), r.Reason)
	}
}
