package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	graphragmcp "github.com/ajitpratap0/openclaw-graphrag/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  ingest           extract a document into the graph and index its chunks
  ingest_captions  add video frame captions as Concept entities
  answer           answer over graph and vector paths side by side
  graph_query      answer over the graph only
  search           raw semantic search with scores
  stats            graph counts and indexed chunks

If Neo4j or Qdrant are unavailable at startup the server still starts;
tool calls will return MCP error responses instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			var deps graphragmcp.Deps
			d, err := buildDeps(cmd.Context(), logger)
			if err != nil {
				// Tool calls will return per-call errors rather than crashing.
				logger.Error("mcp: failed to connect to backends; tool calls will fail", "error", err)
			} else {
				defer func() { _ = d.Close() }()
				deps = graphragmcp.Deps{
					Ingestor: d.pipeline,
					Answerer: d.dispatcher,
					GraphQA:  d.graphQA,
					Index:    d.index,
					Graph:    d.graph,
					Vectors:  d.vectors,
					TopK:     cfg.QA.TopK,
				}
			}

			srv := graphragmcp.NewServer(deps, logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: openclaw-graphrag MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
