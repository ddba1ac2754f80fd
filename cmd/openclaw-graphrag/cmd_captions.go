package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func captionsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "captions [video] [caption...]",
		Short: "Ingest per-frame captions of a video as Concept entities",
		Long: `Each distinct caption becomes a Concept entity mentioned by the video's
frames document ("<video>#frames"); relationships between captions are then
inferred as for any other document. Captions are not added to the vector index.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			d, err := buildDeps(ctx, logger)
			if err != nil {
				return fmt.Errorf("captions: %w", err)
			}
			defer func() { _ = d.Close() }()

			report, err := d.pipeline.IngestCaptions(ctx, args[0], args[1:])
			if err != nil {
				return fmt.Errorf("captions: %w", err)
			}
			if err := printReport(report, asJSON); err != nil {
				return err
			}
			if report.Err() != nil {
				return fmt.Errorf("captions: %w", report.Err())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the ingest report as JSON")
	return cmd
}
