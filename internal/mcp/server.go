// Package mcp implements the Model Context Protocol server for openclaw-graphrag.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/openclaw-graphrag/internal/graph"
	"github.com/ajitpratap0/openclaw-graphrag/internal/ingest"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
	"github.com/ajitpratap0/openclaw-graphrag/internal/qa"
	"github.com/ajitpratap0/openclaw-graphrag/internal/vector"
)

// Ingestor ingests documents and frame captions.
type Ingestor interface {
	Ingest(ctx context.Context, doc models.SourceDocument) (ingest.Report, error)
	IngestCaptions(ctx context.Context, video string, captions []string) (ingest.Report, error)
}

// Answerer answers a question over both paths.
type Answerer interface {
	Answer(ctx context.Context, question string) qa.Answer
}

// Deps holds the collaborators exposed as tools. A nil field makes the
// matching tool return an error result.
type Deps struct {
	Ingestor Ingestor
	Answerer Answerer
	GraphQA  qa.GraphAnswerer
	Index    qa.Retriever
	Graph    graph.Store
	Vectors  vector.Backend
	TopK     int
}

// Server wraps an MCPServer with openclaw-graphrag dependencies.
type Server struct {
	mcp    *mcpserver.MCPServer
	deps   Deps
	logger *slog.Logger
}

// NewServer creates a new MCP server.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	if deps.TopK <= 0 {
		deps.TopK = vector.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, logger: logger}

	mcpSrv := mcpserver.NewMCPServer(
		"openclaw-graphrag",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildIngestTool(), s.handleIngest)
	mcpSrv.AddTool(buildCaptionsTool(), s.handleCaptions)
	mcpSrv.AddTool(buildAnswerTool(), s.handleAnswer)
	mcpSrv.AddTool(buildQueryTool(), s.handleQuery)
	mcpSrv.AddTool(buildSearchTool(), s.handleSearch)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleIngest is the exported handler for the "ingest" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleIngest(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleIngest(ctx, req)
}

// HandleCaptions is the exported handler for the "ingest_captions" tool.
func (s *Server) HandleCaptions(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleCaptions(ctx, req)
}

// HandleAnswer is the exported handler for the "answer" tool.
func (s *Server) HandleAnswer(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleAnswer(ctx, req)
}

// HandleQuery is the exported handler for the "graph_query" tool.
func (s *Server) HandleQuery(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleQuery(ctx, req)
}

// HandleSearch is the exported handler for the "search" tool.
func (s *Server) HandleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSearch(ctx, req)
}

// HandleStats is the exported handler for the "stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// stringList reads a list argument sent either as a JSON array or as a
// newline separated string.
func stringList(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		return strings.Split(v, "\n")
	default:
		return nil
	}
}

// --- tool definitions ---

func buildIngestTool() mcpgo.Tool {
	return mcpgo.NewTool("ingest",
		mcpgo.WithDescription("Ingest a text document: extract entities and relationships into the graph and index its chunks for retrieval."),
		mcpgo.WithString("document_id",
			mcpgo.Required(),
			mcpgo.Description("Identifier of the source document, e.g. its file name"),
		),
		mcpgo.WithString("text",
			mcpgo.Required(),
			mcpgo.Description("The document text"),
		),
		mcpgo.WithString("modality",
			mcpgo.Description("Where the text came from: text, pdf, image or audio (optional)"),
		),
	)
}

func buildCaptionsTool() mcpgo.Tool {
	return mcpgo.NewTool("ingest_captions",
		mcpgo.WithDescription("Ingest per-frame captions of a video as Concept entities linked to the video."),
		mcpgo.WithString("video",
			mcpgo.Required(),
			mcpgo.Description("Identifier of the video"),
		),
		mcpgo.WithArray("captions",
			mcpgo.Required(),
			mcpgo.Description("Frame captions in order"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
	)
}

func buildAnswerTool() mcpgo.Tool {
	return mcpgo.NewTool("answer",
		mcpgo.WithDescription("Answer a question over the knowledge graph and the vector index; both results are returned side by side."),
		mcpgo.WithString("question",
			mcpgo.Required(),
			mcpgo.Description("The natural-language question"),
		),
	)
}

func buildQueryTool() mcpgo.Tool {
	return mcpgo.NewTool("graph_query",
		mcpgo.WithDescription("Answer a question over the knowledge graph only. Returns the generated Cypher and its records."),
		mcpgo.WithString("question",
			mcpgo.Required(),
			mcpgo.Description("The natural-language question"),
		),
	)
}

func buildSearchTool() mcpgo.Tool {
	return mcpgo.NewTool("search",
		mcpgo.WithDescription("Semantic search over indexed chunks. Returns raw results with similarity scores."),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description("The query to search for"),
		),
		mcpgo.WithNumber("k",
			mcpgo.Description("Maximum number of results (default: 3)"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("stats",
		mcpgo.WithDescription("Get graph node and edge counts and the number of indexed chunks."),
	)
}

// --- tool handlers ---

func (s *Server) handleIngest(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.Ingestor == nil {
		return mcpgo.NewToolResultError("ingestion is unavailable"), nil
	}

	docID := req.GetString("document_id", "")
	if strings.TrimSpace(docID) == "" {
		return mcpgo.NewToolResultError("document_id is required and must not be empty"), nil
	}
	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return mcpgo.NewToolResultError("text is required and must not be empty"), nil
	}

	report, err := s.deps.Ingestor.Ingest(ctx, models.SourceDocument{
		DocumentID: docID,
		Text:       text,
		Modality:   req.GetString("modality", ""),
	})
	if err != nil {
		return mcpgo.NewToolResultErrorf("ingest failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: ingested document", "document", docID, "entities", len(report.Entities), "chunks", report.ChunksIndexed)
	return toolResultJSON(report)
}

func (s *Server) handleCaptions(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.Ingestor == nil {
		return mcpgo.NewToolResultError("ingestion is unavailable"), nil
	}

	video := req.GetString("video", "")
	if strings.TrimSpace(video) == "" {
		return mcpgo.NewToolResultError("video is required and must not be empty"), nil
	}
	captions := stringList(req.GetArguments(), "captions")
	if len(captions) == 0 {
		return mcpgo.NewToolResultError("captions are required and must not be empty"), nil
	}

	report, err := s.deps.Ingestor.IngestCaptions(ctx, video, captions)
	if err != nil {
		return mcpgo.NewToolResultErrorf("ingest captions failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: ingested captions", "video", video, "entities", len(report.Entities))
	return toolResultJSON(report)
}

func (s *Server) handleAnswer(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.Answerer == nil {
		return mcpgo.NewToolResultError("question answering is unavailable"), nil
	}

	question := req.GetString("question", "")
	if strings.TrimSpace(question) == "" {
		return mcpgo.NewToolResultError("question is required and must not be empty"), nil
	}
	return toolResultJSON(s.deps.Answerer.Answer(ctx, question))
}

func (s *Server) handleQuery(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.GraphQA == nil {
		return mcpgo.NewToolResultError("graph question answering is unavailable"), nil
	}

	question := req.GetString("question", "")
	if strings.TrimSpace(question) == "" {
		return mcpgo.NewToolResultError("question is required and must not be empty"), nil
	}
	return toolResultJSON(s.deps.GraphQA.Run(ctx, question))
}

func (s *Server) handleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.Index == nil {
		return mcpgo.NewToolResultError("vector index is unavailable"), nil
	}

	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcpgo.NewToolResultError("query is required and must not be empty"), nil
	}
	k := req.GetInt("k", s.deps.TopK)
	if k <= 0 {
		k = s.deps.TopK
	}

	results, err := s.deps.Index.Retrieve(ctx, query, k)
	if err != nil {
		return mcpgo.NewToolResultErrorf("search failed: %s", err.Error()), nil
	}
	if results == nil {
		results = []models.RetrievedChunk{}
	}

	result := map[string]any{
		"results": results,
	}
	return toolResultJSON(result)
}

func (s *Server) handleStats(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.Graph == nil || s.deps.Vectors == nil {
		return mcpgo.NewToolResultError("stores are unavailable"), nil
	}

	gs, err := s.deps.Graph.Stats(ctx)
	if err != nil {
		return mcpgo.NewToolResultErrorf("graph stats failed: %s", err.Error()), nil
	}
	chunks, err := s.deps.Vectors.Count(ctx)
	if err != nil {
		return mcpgo.NewToolResultErrorf("chunk count failed: %s", err.Error()), nil
	}

	result := map[string]any{
		"graph":  gs,
		"chunks": chunks,
	}
	return toolResultJSON(result)
}
