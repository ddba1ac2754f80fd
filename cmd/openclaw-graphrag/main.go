package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/openclaw-graphrag/internal/config"
	"github.com/ajitpratap0/openclaw-graphrag/internal/embedder"
	"github.com/ajitpratap0/openclaw-graphrag/internal/extract"
	"github.com/ajitpratap0/openclaw-graphrag/internal/graph"
	"github.com/ajitpratap0/openclaw-graphrag/internal/infer"
	"github.com/ajitpratap0/openclaw-graphrag/internal/ingest"
	"github.com/ajitpratap0/openclaw-graphrag/internal/oracle"
	"github.com/ajitpratap0/openclaw-graphrag/internal/qa"
	"github.com/ajitpratap0/openclaw-graphrag/internal/vector"
)

var (
	cfg        *config.Config
	cfgFile    string
	memoryMode bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "openclaw-graphrag",
		Short: "OpenClaw GraphRAG: knowledge graph and vector retrieval over your documents",
		Long: "GraphRAG extracts entities and relationships from document text into a Neo4j graph, " +
			"indexes the same text in Qdrant, and answers questions over both.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadFile(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.openclaw-graphrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&memoryMode, "memory", false, "use in-process graph and vector backends instead of Neo4j and Qdrant")

	rootCmd.AddCommand(
		ingestCmd(),
		captionsCmd(),
		answerCmd(),
		queryCmd(),
		searchCmd(),
		statsCmd(),
		healthCmd(),
		schemaCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newOracle(logger *slog.Logger) oracle.Oracle {
	o := cfg.Oracle
	if o.Provider == config.ProviderOpenAI {
		return oracle.NewOpenAI(o.OpenAIAPIKey, o.BaseURL, o.Model, o.Timeout, logger)
	}
	return oracle.NewClaude(o.AnthropicAPIKey, o.Model, o.MaxTokens, o.Timeout, logger)
}

func newEmbedder(logger *slog.Logger) (embedder.Embedder, error) {
	e := cfg.Embedder
	dim := int(e.Dimension) //nolint:gosec // validated by config
	if memoryMode {
		return embedder.NewHashEmbedder(dim), nil
	}
	if e.Provider == config.ProviderOpenAI {
		return embedder.NewOpenAIEmbedder(e.APIKey, e.BaseURL, e.Model, dim, e.Timeout, logger), nil
	}
	return embedder.NewOllamaEmbedder(e.BaseURL, e.Model, dim, e.Timeout, logger)
}

func newGraphStore(ctx context.Context, logger *slog.Logger) (graph.Store, error) {
	if memoryMode {
		return graph.NewMemoryStore(logger), nil
	}
	n := cfg.Neo4j
	return graph.NewNeo4jStore(ctx, graph.Neo4jConfig{
		URI:      n.URI,
		Username: n.Username,
		Password: n.Password,
		Database: n.Database,
		Timeout:  n.Timeout,
	}, logger)
}

func newVectorBackend(logger *slog.Logger) (vector.Backend, error) {
	if memoryMode {
		return vector.NewMemoryBackend(), nil
	}
	q := cfg.Qdrant
	return vector.NewQdrantBackend(vector.QdrantConfig{
		Host:       q.Host,
		Port:       q.GRPCPort,
		Collection: q.Collection,
		Dimension:  cfg.Embedder.Dimension,
		UseTLS:     q.UseTLS,
		APIKey:     q.APIKey,
	}, logger)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// deps is the fully wired object graph shared by the commands.
type deps struct {
	graph      graph.Store
	vectors    vector.Backend
	index      *vector.Index
	pipeline   *ingest.Pipeline
	graphQA    *qa.GraphQA
	dispatcher *qa.Dispatcher
}

// Close releases both backends.
func (d *deps) Close() error {
	var errs []error
	if d.vectors != nil {
		errs = append(errs, d.vectors.Close())
	}
	if d.graph != nil {
		errs = append(errs, d.graph.Close(context.Background()))
	}
	return errors.Join(errs...)
}

// buildDeps connects to both backends and wires the pipeline and answer paths.
func buildDeps(ctx context.Context, logger *slog.Logger) (*deps, error) {
	gs, err := newGraphStore(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to graph store: %w", err)
	}

	vb, err := newVectorBackend(logger)
	if err != nil {
		_ = gs.Close(ctx)
		return nil, fmt.Errorf("connecting to vector backend: %w", err)
	}

	emb, err := newEmbedder(logger)
	if err != nil {
		_ = vb.Close()
		_ = gs.Close(ctx)
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return wireDeps(ctx, gs, vb, emb, newOracle(logger), logger)
}

// wireDeps ensures the vector collection exists, then builds the pipeline
// and answer paths over the given backends. Both backends are closed on error.
func wireDeps(ctx context.Context, gs graph.Store, vb vector.Backend, emb embedder.Embedder, o oracle.Oracle, logger *slog.Logger) (*deps, error) {
	d := &deps{graph: gs, vectors: vb}
	if err := vb.EnsureCollection(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("ensuring vector collection: %w", err)
	}

	policy, _ := infer.ParseFailurePolicy(cfg.Ingest.FailurePolicy)

	d.index = vector.NewIndex(vb, emb, vector.Options{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
	}, logger)
	d.pipeline = ingest.NewPipeline(
		extract.NewExtractor(o, logger),
		infer.NewInferencer(o, infer.Options{
			Parallelism: cfg.Ingest.Parallelism,
			PairTimeout: cfg.Ingest.PairTimeout,
			Policy:      policy,
		}, logger),
		gs, d.index,
		ingest.Options{MaxChars: cfg.Ingest.MaxChars},
		logger,
	)
	d.graphQA = qa.NewGraphQA(o, gs, qa.Options{
		AllowedKeywords: cfg.QA.AllowedKeywords,
		QueryTimeout:    cfg.QA.QueryTimeout,
	}, logger)
	d.dispatcher = qa.NewDispatcher(d.graphQA, d.index, cfg.QA.TopK, logger)

	if memoryMode {
		logger.Warn("running with in-process backends; nothing is persisted and graph queries are unsupported")
	}
	return d, nil
}
