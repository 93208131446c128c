package index

import (
	"context"
	"errors"
)

// ErrUnavailable marks a vector-index or embedding backend failure.
// Callers surface it; there is no stale-cache fallback.
var ErrUnavailable = errors.New("backend unavailable")

// Filter narrows a search or scroll to a subset of points.
// The zero value matches everything.
type Filter struct {
	routeID  *int
	negative *bool
}

// FilterRoute matches only points belonging to the given route.
func FilterRoute(routeID int) Filter {
	return Filter{routeID: &routeID}
}

// FilterPositives matches only regular utterance points.
func FilterPositives() Filter {
	neg := false
	return Filter{negative: &neg}
}

// FilterNegatives matches only negative-sample points.
func FilterNegatives() Filter {
	neg := true
	return Filter{negative: &neg}
}

// RouteID returns the route constraint, if set.
func (f Filter) RouteID() (int, bool) {
	if f.routeID == nil {
		return 0, false
	}
	return *f.routeID, true
}

// Negative returns the negative-flag constraint, if set.
func (f Filter) Negative() (bool, bool) {
	if f.negative == nil {
		return false, false
	}
	return *f.negative, true
}

// Admits reports whether a payload satisfies the filter.
func (f Filter) Admits(p Payload) bool {
	if f.routeID != nil && p.RouteID() != *f.routeID {
		return false
	}
	if f.negative != nil && p.Negative() != *f.negative {
		return false
	}
	return true
}

// VectorIndex is a nearest-neighbor store keyed by deterministic point
// ids. Individual operations are atomic; batches are best-effort and the
// synchronizer reconciles after failures.
type VectorIndex interface {
	// EnsureReady creates the backing collection for the given vector
	// dimension if it does not exist yet.
	EnsureReady(ctx context.Context, dimension int) error

	// Upsert writes points, replacing any existing point with the same id.
	Upsert(ctx context.Context, points []Point) error

	// DeleteByIDs removes the given points. Missing ids are ignored.
	DeleteByIDs(ctx context.Context, ids []string) error

	// DeleteByRoute removes every point whose payload carries routeID.
	DeleteByRoute(ctx context.Context, routeID int) error

	// Search returns up to k matches ordered by descending score.
	Search(ctx context.Context, vector []float64, k int, filter Filter) ([]Match, error)

	// Scroll returns the id and payload of every point matching the filter.
	Scroll(ctx context.Context, filter Filter) ([]StoredPoint, error)

	// IDsByRoute returns the ids of all points belonging to the route.
	IDsByRoute(ctx context.Context, routeID int) ([]string, error)

	// Count returns the number of points matching the filter.
	Count(ctx context.Context, filter Filter) (int, error)
}

// Embedder turns a batch of texts into fixed-dimension unit vectors.
// Embedding is deterministic per (model, text); a failure within a batch
// fails the whole call.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// Dim returns the vector dimension, probing the backend on first use.
	Dim(ctx context.Context) (int, error)
}
