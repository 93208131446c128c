package service

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/free4inno/intenthub/domain/route"
	infraindex "github.com/free4inno/intenthub/infrastructure/index"
	"github.com/free4inno/intenthub/infrastructure/persistence"
	"github.com/free4inno/intenthub/internal/config"
)

// stubEmbedder returns fixed vectors for pinned texts and a
// deterministic hash-derived unit vector otherwise.
type stubEmbedder struct {
	dim     int
	pinned  map[string][]float64
	failing atomic.Bool
	calls   atomic.Int32
}

func newStubEmbedder(dim int) *stubEmbedder {
	return &stubEmbedder{dim: dim, pinned: map[string][]float64{}}
}

// pin maps a text to a unit vector along the given axis.
func (e *stubEmbedder) pin(text string, axis int) {
	v := make([]float64, e.dim)
	v[axis] = 1
	e.pinned[text] = v
}

// pinVector maps a text to an explicit vector.
func (e *stubEmbedder) pinVector(text string, v []float64) {
	e.pinned[text] = v
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls.Add(1)
	if e.failing.Load() {
		return nil, errors.New("embedder down")
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := e.pinned[t]; ok {
			out[i] = v
			continue
		}
		out[i] = e.hashVector(t)
	}
	return out, nil
}

func (e *stubEmbedder) Dim(context.Context) (int, error) {
	if e.failing.Load() {
		return 0, errors.New("embedder down")
	}
	return e.dim, nil
}

func (e *stubEmbedder) hashVector(text string) []float64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float64, e.dim)
	var norm float64
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float64(int64(seed>>12))/float64(1<<51) + 0.01
		norm += v[i] * v[i]
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}

func newTestStore(t *testing.T) *persistence.RouteStore {
	t.Helper()
	store, err := persistence.NewRouteStore(filepath.Join(t.TempDir(), "routes.json"), nil)
	require.NoError(t, err)
	return store
}

func newTestComponents(embedder *stubEmbedder) (*Components, *infraindex.Memory) {
	idx := infraindex.NewMemory()
	comps := NewComponents(idx, embedder, nil, config.ResolveRuntime(nil))
	return comps, idx
}

func mustRoute(t *testing.T, id int, name string, utterances []string) route.Route {
	t.Helper()
	r, err := route.New(id, name, "", utterances, nil, 0, 0)
	require.NoError(t, err)
	return r
}
