package provider

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/free4inno/intenthub/domain/index"
)

// DefaultBatchSize is the default number of texts per embedding call.
const DefaultBatchSize = 32

// dimensionProbe is embedded once to learn the model's vector size.
const dimensionProbe = "dimension probe"

// UnitEmbedder adapts an embedding backend to the domain contract:
// batched calls, L2-normalized output, and a cached dimension. All
// downstream similarity math assumes unit vectors, so this is the single
// point that enforces the norm.
type UnitEmbedder struct {
	client    *OpenAIClient
	batchSize int

	mu  sync.Mutex
	dim int
}

// NewUnitEmbedder creates a UnitEmbedder. A batchSize of 0 uses the default.
func NewUnitEmbedder(client *OpenAIClient, batchSize int) *UnitEmbedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &UnitEmbedder{client: client, batchSize: batchSize}
}

// Embed returns one unit vector per text, preserving order. A failure in
// any batch fails the whole call.
func (e *UnitEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.client.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: embed batch %d-%d: %w", index.ErrUnavailable, start, end, err)
		}
		for _, v := range vectors {
			out = append(out, normalize(v))
		}
	}

	e.recordDim(out)
	return out, nil
}

// Dim returns the vector dimension, probing the backend on first use.
func (e *UnitEmbedder) Dim(ctx context.Context) (int, error) {
	e.mu.Lock()
	if e.dim > 0 {
		dim := e.dim
		e.mu.Unlock()
		return dim, nil
	}
	e.mu.Unlock()

	vectors, err := e.Embed(ctx, []string{dimensionProbe})
	if err != nil {
		return 0, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return 0, fmt.Errorf("%w: empty embedding from dimension probe", index.ErrUnavailable)
	}
	return len(vectors[0]), nil
}

func (e *UnitEmbedder) recordDim(vectors [][]float64) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return
	}
	e.mu.Lock()
	if e.dim == 0 {
		e.dim = len(vectors[0])
	}
	e.mu.Unlock()
}

func normalize(v []float64) []float64 {
	var mag float64
	for _, x := range v {
		mag += x * x
	}
	mag = math.Sqrt(mag)
	if mag == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / mag
	}
	return out
}

var _ index.Embedder = (*UnitEmbedder)(nil)
