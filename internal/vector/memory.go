package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
)

type memoryPoint struct {
	chunk  models.Chunk
	vector []float32
}

// MemoryBackend is an in-process Backend using exact cosine similarity.
// It is safe for concurrent use.
type MemoryBackend struct {
	mu     sync.RWMutex
	points []memoryPoint
	index  map[string]int
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{index: make(map[string]int)}
}

// EnsureCollection implements Backend.
func (m *MemoryBackend) EnsureCollection(_ context.Context) error {
	return nil
}

// Upsert implements Backend. A chunk whose ID is already stored replaces it.
func (m *MemoryBackend) Upsert(_ context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("upserting chunks: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range chunks {
		p := memoryPoint{chunk: chunks[i], vector: append([]float32(nil), vectors[i]...)}
		if idx, ok := m.index[chunks[i].ID]; ok {
			m.points[idx] = p
			continue
		}
		m.index[chunks[i].ID] = len(m.points)
		m.points = append(m.points, p)
	}
	return nil
}

// Search implements Backend. Ties keep insertion order.
func (m *MemoryBackend) Search(_ context.Context, vector []float32, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	results := make([]models.RetrievedChunk, 0, len(m.points))
	for i := range m.points {
		results = append(results, models.RetrievedChunk{
			Chunk: m.points[i].chunk,
			Score: cosine(vector, m.points[i].vector),
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count implements Backend.
func (m *MemoryBackend) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.points)), nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	return nil
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
