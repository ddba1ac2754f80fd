package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

const (
	qdrantDialTimeout  = 10 * time.Second
	qdrantReadTimeout  = 10 * time.Second
	qdrantWriteTimeout = 30 * time.Second

	payloadText     = "text"
	payloadMetadata = "metadata"
)

func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// QdrantConfig holds connection settings for QdrantBackend.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	Dimension  uint64
	UseTLS     bool
	APIKey     string
}

// QdrantBackend implements Backend using Qdrant's gRPC API.
type QdrantBackend struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection pb.CollectionsClient
	collName   string
	dimension  uint64
	apiKey     string
	logger     *slog.Logger
}

// NewQdrantBackend connects to Qdrant and verifies the connection.
func NewQdrantBackend(cfg QdrantConfig, logger *slog.Logger) (*QdrantBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	opts := []grpc.DialOption{}
	if cfg.UseTLS {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, "")))
	} else {
		logger.Warn("qdrant connection using insecure credentials (no TLS)")
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s: %w: %w", addr, ErrVectorUnavailable, err)
	}

	q := &QdrantBackend{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: pb.NewCollectionsClient(conn),
		collName:   cfg.Collection,
		dimension:  cfg.Dimension,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}

	// Verify the connection with a timeout by issuing a lightweight RPC.
	dialCtx, dialCancel := withTimeout(context.Background(), qdrantDialTimeout)
	defer dialCancel()
	if _, err := q.collection.List(q.auth(dialCtx), &pb.ListCollectionsRequest{}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("verifying qdrant connection at %s: %w: %w", addr, ErrVectorUnavailable, err)
	}

	logger.Info("connected to qdrant", "addr", addr, "collection", cfg.Collection)
	return q, nil
}

// auth attaches the API key, if any, to outgoing RPC metadata.
func (q *QdrantBackend) auth(ctx context.Context) context.Context {
	if q.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", q.apiKey)
}

// EnsureCollection implements Backend.
func (q *QdrantBackend) EnsureCollection(ctx context.Context) error {
	rctx, rcancel := withTimeout(q.auth(ctx), qdrantReadTimeout)
	defer rcancel()
	resp, err := q.collection.List(rctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing collections: %w: %w", ErrVectorUnavailable, err)
	}

	for _, c := range resp.GetCollections() {
		if c.GetName() == q.collName {
			q.logger.Info("collection already exists", "name", q.collName)
			return nil
		}
	}

	wctx, wcancel := withTimeout(q.auth(ctx), qdrantWriteTimeout)
	defer wcancel()
	_, err = q.collection.Create(wctx, &pb.CreateCollection{
		CollectionName: q.collName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     q.dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", q.collName, err)
	}
	q.logger.Info("created collection", "name", q.collName, "dimension", q.dimension)

	ictx, icancel := withTimeout(q.auth(ctx), qdrantWriteTimeout)
	defer icancel()
	if _, err := q.points.CreateFieldIndex(ictx, &pb.CreateFieldIndexCollection{
		CollectionName: q.collName,
		FieldName:      "source",
		FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
	}); err != nil {
		q.logger.Warn("creating field index", "field", "source", "error", err)
	}
	return nil
}

// Upsert implements Backend with a single batched, waited upsert.
func (q *QdrantBackend) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("upserting chunks: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(chunks))
	for i := range chunks {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: chunks[i].ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: chunkToPayload(chunks[i]),
		}
	}

	ctx, cancel := withTimeout(q.auth(ctx), qdrantWriteTimeout)
	defer cancel()
	wait := true
	if _, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collName,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting %d points: %w: %w", len(points), ErrVectorUnavailable, err)
	}

	q.logger.Debug("upserted chunks", "count", len(points))
	return nil
}

// Search implements Backend.
func (q *QdrantBackend) Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	ctx, cancel := withTimeout(q.auth(ctx), qdrantReadTimeout)
	defer cancel()
	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collName,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("searching: %w: %w", ErrVectorUnavailable, err)
	}

	results := make([]models.RetrievedChunk, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		chunk, err := payloadToChunk(point.GetId().GetUuid(), point.GetPayload())
		if err != nil {
			q.logger.Warn("parsing search result", "error", err)
			continue
		}
		results = append(results, models.RetrievedChunk{Chunk: chunk, Score: float64(point.GetScore())})
	}
	return results, nil
}

// Count implements Backend.
func (q *QdrantBackend) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(q.auth(ctx), qdrantReadTimeout)
	defer cancel()
	exact := true
	resp, err := q.points.Count(ctx, &pb.CountPoints{CollectionName: q.collName, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w: %w", ErrVectorUnavailable, err)
	}
	return int64(resp.GetResult().GetCount()), nil
}

// Close implements Backend.
func (q *QdrantBackend) Close() error {
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// --- Helper functions ---

// chunkToPayload stores the text and string metadata as top-level payload
// keys. Non-string metadata is kept as a JSON document under "metadata".
func chunkToPayload(c models.Chunk) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		payloadText: {Kind: &pb.Value_StringValue{StringValue: c.Text}},
	}
	other := make(map[string]any)
	for k, v := range c.Metadata {
		if s, ok := v.(string); ok && k != payloadText && k != payloadMetadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
			continue
		}
		other[k] = v
	}
	if len(other) > 0 {
		if b, err := json.Marshal(other); err == nil {
			payload[payloadMetadata] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: string(b)}}
		}
	}
	return payload
}

func payloadToChunk(id string, payload map[string]*pb.Value) (models.Chunk, error) {
	text, ok := payload[payloadText]
	if !ok {
		return models.Chunk{}, fmt.Errorf("point %s has no %q payload", id, payloadText)
	}
	c := models.Chunk{ID: id, Text: text.GetStringValue(), Metadata: make(map[string]any)}
	for k, v := range payload {
		switch k {
		case payloadText:
		case payloadMetadata:
			var other map[string]any
			if err := json.Unmarshal([]byte(v.GetStringValue()), &other); err != nil {
				return models.Chunk{}, fmt.Errorf("point %s: decoding metadata: %w", id, err)
			}
			for mk, mv := range other {
				c.Metadata[mk] = mv
			}
		default:
			c.Metadata[k] = v.GetStringValue()
		}
	}
	return c, nil
}
