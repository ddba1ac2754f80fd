package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/openclaw-graphrag/internal/embedder"
	"github.com/ajitpratap0/openclaw-graphrag/internal/extract"
	"github.com/ajitpratap0/openclaw-graphrag/internal/graph"
	"github.com/ajitpratap0/openclaw-graphrag/internal/infer"
	"github.com/ajitpratap0/openclaw-graphrag/internal/ingest"
	"github.com/ajitpratap0/openclaw-graphrag/internal/oracle"
	"github.com/ajitpratap0/openclaw-graphrag/internal/qa"
	"github.com/ajitpratap0/openclaw-graphrag/internal/vector"
)

// newMCPServer returns a Server wired to in-memory stores and a scripted oracle.
func newMCPServer(t *testing.T) (*Server, *graph.MemoryStore) {
	t.Helper()
	m := oracle.NewMock().
		On("Extract all named entities", `[{"name":"Ada Lovelace","type":"Person"},{"name":"London","type":"Location"}]`).
		On("Suggest a relationship label", "born in").
		On("You are a Cypher expert", "MATCH (p:Entity {type: 'Person'}) RETURN p.name AS name")

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := graph.NewMemoryStore(logger)
	store.SetQueryFunc(func(context.Context, string, map[string]any) ([]map[string]any, error) {
		return []map[string]any{{"name": "Ada Lovelace"}}, nil
	})
	backend := vector.NewMemoryBackend()
	index := vector.NewIndex(backend, embedder.NewHashEmbedder(64), vector.Options{}, logger)
	pipeline := ingest.NewPipeline(
		extract.NewExtractor(m, logger),
		infer.NewInferencer(m, infer.Options{}, logger),
		store, index, ingest.Options{}, logger,
	)
	gqa := qa.NewGraphQA(m, store, qa.Options{}, logger)

	srv := NewServer(Deps{
		Ingestor: pipeline,
		Answerer: qa.NewDispatcher(gqa, index, 3, logger),
		GraphQA:  gqa,
		Index:    index,
		Graph:    store,
		Vectors:  backend,
	}, logger)
	return srv, store
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func ingestAda(t *testing.T, srv *Server) {
	t.Helper()
	result, err := srv.HandleIngest(context.Background(), makeReq("ingest", map[string]any{
		"document_id": "ada.txt",
		"text":        "Ada Lovelace was born in London.",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "ingest returned error: %s", textContent(t, result))
}

func TestMCPIngest_WritesGraphAndIndex(t *testing.T) {
	srv, store := newMCPServer(t)
	ingestAda(t, srv)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Entities)
	assert.Equal(t, int64(1), stats.Relationships)

	rels := store.Relationships()
	require.Len(t, rels, 1)
	assert.Equal(t, "BORN_IN", rels[0].Type)
}

func TestMCPIngest_MissingArguments(t *testing.T) {
	srv, _ := newMCPServer(t)
	ctx := context.Background()

	for _, args := range []map[string]any{
		{"text": "hello"},
		{"document_id": "a.txt", "text": "   "},
	} {
		result, err := srv.HandleIngest(ctx, makeReq("ingest", args))
		require.NoError(t, err)
		assert.True(t, result.IsError, "args %v", args)
	}
}

func TestMCPCaptions(t *testing.T) {
	srv, store := newMCPServer(t)
	ctx := context.Background()

	result, err := srv.HandleCaptions(ctx, makeReq("ingest_captions", map[string]any{
		"video":    "clip.mp4",
		"captions": []any{"a cat sleeps", "a cat wakes", "a cat sleeps"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textContent(t, result))
	assert.Len(t, store.Mentions(ingest.FramesDocumentID("clip.mp4")), 2)

	result, err = srv.HandleCaptions(ctx, makeReq("ingest_captions", map[string]any{"video": "clip.mp4"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPAnswer(t *testing.T) {
	srv, _ := newMCPServer(t)
	ingestAda(t, srv)

	result, err := srv.HandleAnswer(context.Background(), makeReq("answer", map[string]any{
		"question": "Who is a person?",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var ans qa.Answer
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &ans))
	assert.Equal(t, qa.StateAnswered, ans.Graph.State)
	assert.Len(t, ans.Vector.Chunks, 1)
}

func TestMCPGraphQuery(t *testing.T) {
	srv, store := newMCPServer(t)

	result, err := srv.HandleQuery(context.Background(), makeReq("graph_query", map[string]any{
		"question": "Who is a person?",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var res qa.GraphResult
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &res))
	assert.Equal(t, "MATCH (p:Entity {type: 'Person'}) RETURN p.name AS name", res.Query)
	assert.Equal(t, []string{res.Query}, store.Queries())

	result, err = srv.HandleQuery(context.Background(), makeReq("graph_query", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPSearch(t *testing.T) {
	srv, _ := newMCPServer(t)
	ingestAda(t, srv)

	result, err := srv.HandleSearch(context.Background(), makeReq("search", map[string]any{
		"query": "where was Ada born",
		"k":     2,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out struct {
		Results []struct {
			Chunk struct {
				Text string `json:"text"`
			} `json:"chunk"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	require.Len(t, out.Results, 1)
	assert.Contains(t, out.Results[0].Chunk.Text, "Ada Lovelace")
}

func TestMCPStats(t *testing.T) {
	srv, _ := newMCPServer(t)
	ingestAda(t, srv)

	result, err := srv.HandleStats(context.Background(), makeReq("stats", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.EqualValues(t, 1, out["chunks"])
	gs, ok := out["graph"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, gs["entities"])
}

func TestMCPNilDependencies(t *testing.T) {
	srv := NewServer(Deps{}, nil)
	ctx := context.Background()

	handlers := []func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error){
		srv.HandleIngest, srv.HandleCaptions, srv.HandleAnswer,
		srv.HandleQuery, srv.HandleSearch, srv.HandleStats,
	}
	for _, h := range handlers {
		result, err := h(ctx, makeReq("x", map[string]any{"question": "q"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	}
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, stringList(map[string]any{"c": []any{"a", 1, "b"}}, "c"))
	assert.Equal(t, []string{"a", "b"}, stringList(map[string]any{"c": []string{"a", "b"}}, "c"))
	assert.Equal(t, []string{"a", "b"}, stringList(map[string]any{"c": "a\nb"}, "c"))
	assert.Nil(t, stringList(map[string]any{}, "c"))
}
