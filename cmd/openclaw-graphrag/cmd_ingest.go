package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/openclaw-graphrag/internal/ingest"
	"github.com/ajitpratap0/openclaw-graphrag/internal/source"
)

func ingestCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest .txt, .md and .pdf files into the graph and the vector index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			d, err := buildDeps(ctx, logger)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = d.Close() }()

			src := source.NewFileSource()
			failed := 0
			for _, path := range args {
				doc, err := src.Load(ctx, path)
				if err != nil {
					logger.Error("ingest: loading file", "path", path, "error", err)
					failed++
					continue
				}

				report, err := d.pipeline.Ingest(ctx, doc)
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", path, err)
				}
				if report.Err() != nil {
					failed++
				}
				if err := printReport(report, asJSON); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("ingest: %d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print each ingest report as JSON")
	return cmd
}

func printReport(r ingest.Report, asJSON bool) error {
	if asJSON {
		return printJSON(r)
	}
	fmt.Printf("%s: %d entities, %d mentions, %d relationships (%d skipped, %d failed), %d chunks\n",
		r.Document, len(r.Entities), r.Mentions.Succeeded,
		r.Relationships.Succeeded, r.Relationships.Skipped, r.Relationships.Failed(), r.ChunksIndexed)
	if r.Truncated {
		fmt.Println("  text was truncated")
	}
	for _, w := range r.Warnings {
		fmt.Printf("  warning: %s -> %s: %s\n", w.Source, w.Target, w.Error)
	}
	if r.GraphError != "" {
		fmt.Printf("  graph: FAIL (%s)\n", r.GraphError)
	}
	if r.VectorError != "" {
		fmt.Printf("  vector: FAIL (%s)\n", r.VectorError)
	}
	return nil
}
