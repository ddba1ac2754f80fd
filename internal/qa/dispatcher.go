package qa

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

// GraphAnswerer answers a question over the property graph.
type GraphAnswerer interface {
	Run(ctx context.Context, question string) GraphResult
}

// Retriever returns the chunks nearest to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedChunk, error)
}

// VectorResult is the outcome of the retrieval path.
type VectorResult struct {
	Path   string                  `json:"path"`
	Chunks []models.RetrievedChunk `json:"chunks"`
	Error  string                  `json:"error,omitempty"`
	Err    error                   `json:"-"`
}

// Answer holds both independent answers to one question, side by side.
type Answer struct {
	Question string       `json:"question"`
	Graph    GraphResult  `json:"graph"`
	Vector   VectorResult `json:"vector"`
}

// Dispatcher sends a question down the graph and vector paths concurrently.
type Dispatcher struct {
	graph  GraphAnswerer
	vector Retriever
	topK   int
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher returning topK chunks from the vector path.
func NewDispatcher(g GraphAnswerer, v Retriever, topK int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{graph: g, vector: v, topK: topK, logger: logger}
}

// Answer runs both paths and waits for both. A failure, or panic, on one
// path is reported in its own result and never hides the other.
func (d *Dispatcher) Answer(ctx context.Context, question string) Answer {
	out := Answer{Question: question}
	metrics.Inc(metrics.QuestionsAnswered)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("graph path panicked: %v", r)
				d.logger.Error("qa: recovered panic", "path", PathGraph, "panic", r)
				out.Graph = GraphResult{Path: PathGraph, State: StateFailed, Question: question, Reason: err.Error(), Err: err}
			}
		}()
		out.Graph = d.graph.Run(ctx, question)
	}()

	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("vector path panicked: %v", r)
				d.logger.Error("qa: recovered panic", "path", PathVector, "panic", r)
				out.Vector = VectorResult{Path: PathVector, Error: err.Error(), Err: err}
			}
		}()
		out.Vector = d.retrieve(ctx, question)
	}()

	wg.Wait()
	return out
}

func (d *Dispatcher) retrieve(ctx context.Context, question string) VectorResult {
	res := VectorResult{Path: PathVector}
	chunks, err := d.vector.Retrieve(ctx, question, d.topK)
	if err != nil {
		d.logger.Warn("qa: vector path failed", "error", err)
		res.Err = err
		res.Error = err.Error()
		return res
	}
	res.Chunks = chunks
	if res.Chunks == nil {
		res.Chunks = []models.RetrievedChunk{}
	}
	return res
}
