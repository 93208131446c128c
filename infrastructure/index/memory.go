// Package index provides an in-memory VectorIndex for tests and
// single-node deployments without an external vector database.
package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/free4inno/intenthub/domain/index"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 if either vector has zero magnitude or lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Memory is a mutex-guarded in-memory VectorIndex.
type Memory struct {
	mu     sync.RWMutex
	points map[string]index.Point
}

// NewMemory creates an empty Memory index.
func NewMemory() *Memory {
	return &Memory{points: make(map[string]index.Point)}
}

// EnsureReady is a no-op for the in-memory index.
func (m *Memory) EnsureReady(_ context.Context, _ int) error { return nil }

// Upsert writes points, replacing existing ids.
func (m *Memory) Upsert(_ context.Context, points []index.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.points[p.ID()] = p
	}
	return nil
}

// DeleteByIDs removes the given points. Missing ids are ignored.
func (m *Memory) DeleteByIDs(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.points, id)
	}
	return nil
}

// DeleteByRoute removes every point belonging to the route.
func (m *Memory) DeleteByRoute(_ context.Context, routeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points {
		if p.Payload().RouteID() == routeID {
			delete(m.points, id)
		}
	}
	return nil
}

// Search returns up to k matches ordered by descending score. Ties break
// on point id for determinism.
func (m *Memory) Search(_ context.Context, vector []float64, k int, filter index.Filter) ([]index.Match, error) {
	if k <= 0 {
		return []index.Match{}, nil
	}

	m.mu.RLock()
	matches := make([]index.Match, 0, len(m.points))
	for _, p := range m.points {
		if !filter.Admits(p.Payload()) {
			continue
		}
		score := CosineSimilarity(vector, p.Vector())
		matches = append(matches, index.NewMatch(p.ID(), score, p.Payload()))
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score() != matches[j].Score() {
			return matches[i].Score() > matches[j].Score()
		}
		return matches[i].ID() < matches[j].ID()
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Scroll returns id and payload of every point matching the filter.
func (m *Memory) Scroll(_ context.Context, filter index.Filter) ([]index.StoredPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]index.StoredPoint, 0, len(m.points))
	for _, p := range m.points {
		if filter.Admits(p.Payload()) {
			out = append(out, index.NewStoredPoint(p.ID(), p.Payload()))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// IDsByRoute returns the ids of all points belonging to the route.
func (m *Memory) IDsByRoute(_ context.Context, routeID int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, p := range m.points {
		if p.Payload().RouteID() == routeID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of points matching the filter.
func (m *Memory) Count(_ context.Context, filter index.Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, p := range m.points {
		if filter.Admits(p.Payload()) {
			n++
		}
	}
	return n, nil
}

var _ index.VectorIndex = (*Memory)(nil)
