package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/free4inno/intenthub/domain/index"
	"github.com/free4inno/intenthub/domain/route"
)

// SyncMode selects how the synchronizer reconciles the index.
type SyncMode string

// Sync modes.
const (
	// SyncIncremental re-embeds only texts missing from the index.
	SyncIncremental SyncMode = "incremental"
	// SyncForcedFull re-embeds everything and removes stale points.
	SyncForcedFull SyncMode = "forced_full"
)

// embedConcurrency bounds parallel embedding batches per sync.
const embedConcurrency = 4

// SyncResult summarizes one synchronizer run.
type SyncResult struct {
	routesCount         int
	totalPoints         int
	totalNegativePoints int
	upserted            int
	deleted             int
	mode                SyncMode
}

// RoutesCount returns the number of routes reconciled.
func (r SyncResult) RoutesCount() int { return r.routesCount }

// TotalPoints returns the number of positive points after the run.
func (r SyncResult) TotalPoints() int { return r.totalPoints }

// TotalNegativePoints returns the number of negative points after the run.
func (r SyncResult) TotalNegativePoints() int { return r.totalNegativePoints }

// Upserted returns how many points were written.
func (r SyncResult) Upserted() int { return r.upserted }

// Deleted returns how many stale points were removed.
func (r SyncResult) Deleted() int { return r.deleted }

// Mode returns the mode the run executed in.
func (r SyncResult) Mode() SyncMode { return r.mode }

// pointSpec is a desired index point before embedding.
type pointSpec struct {
	text    string
	payload index.Payload
}

// SyncService reconciles the vector index with the route store. Only one
// run executes at a time; the store remains the source of truth and a
// failed run never deletes points, so the next run self-heals.
type SyncService struct {
	store route.Store
	comps *Components

	mu     sync.Mutex
	logger *slog.Logger
}

// NewSyncService creates a SyncService.
func NewSyncService(store route.Store, comps *Components, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{store: store, comps: comps, logger: logger}
}

// Sync runs one reconciliation in the given mode.
func (s *SyncService) Sync(ctx context.Context, mode SyncMode) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode != SyncForcedFull {
		mode = SyncIncremental
	}

	idx := s.comps.Index()
	embedder := s.comps.Embedder()

	dim, err := embedder.Dim(ctx)
	if err != nil {
		return SyncResult{}, Backend("embedder", err)
	}
	if err := idx.EnsureReady(ctx, dim); err != nil {
		return SyncResult{}, Backend("vector index", err)
	}

	routes := s.store.All()
	expected := expectedPoints(routes)

	stored, err := idx.Scroll(ctx, index.Filter{})
	if err != nil {
		return SyncResult{}, Backend("vector index", err)
	}
	actual := make(map[string]bool, len(stored))
	for _, p := range stored {
		actual[p.ID()] = true
	}

	var toUpsert []string
	for id := range expected {
		if mode == SyncForcedFull || !actual[id] {
			toUpsert = append(toUpsert, id)
		}
	}
	sort.Strings(toUpsert)

	var toDelete []string
	for id := range actual {
		if _, ok := expected[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}
	sort.Strings(toDelete)

	// Embedding failures abort before any deletion so a flaky embedder
	// can never empty the index.
	points, err := s.embedSpecs(ctx, embedder, expected, toUpsert)
	if err != nil {
		return SyncResult{}, err
	}

	if len(points) > 0 {
		if err := idx.Upsert(ctx, points); err != nil {
			return SyncResult{}, Backend("vector index", err)
		}
	}
	if len(toDelete) > 0 {
		if err := idx.DeleteByIDs(ctx, toDelete); err != nil {
			return SyncResult{}, Backend("vector index", err)
		}
	}

	result := SyncResult{
		routesCount: len(routes),
		upserted:    len(points),
		deleted:     len(toDelete),
		mode:        mode,
	}
	for _, spec := range expected {
		if spec.payload.Negative() {
			result.totalNegativePoints++
		} else {
			result.totalPoints++
		}
	}

	s.logger.InfoContext(ctx, "sync complete",
		slog.String("mode", string(mode)),
		slog.Int("routes", result.routesCount),
		slog.Int("points", result.totalPoints),
		slog.Int("negative_points", result.totalNegativePoints),
		slog.Int("upserted", result.upserted),
		slog.Int("deleted", result.deleted),
	)
	return result, nil
}

// embedSpecs embeds the selected specs in batches and returns the
// resulting points in id order.
func (s *SyncService) embedSpecs(ctx context.Context, embedder index.Embedder, expected map[string]pointSpec, ids []string) ([]index.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	batchSize := s.comps.Runtime().BatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	points := make([]index.Point, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i, id := range ids[start:end] {
				texts[i] = expected[id].text
			}
			vectors, err := embedder.Embed(gctx, texts)
			if err != nil {
				return Backend("embedder", err)
			}
			if len(vectors) != len(texts) {
				return Backend("embedder", fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)))
			}
			for i, id := range ids[start:end] {
				points[start+i] = index.NewPoint(id, vectors[i], expected[id].payload)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// expectedPoints builds the desired point set: one point per utterance
// and one per negative sample, each in its own id space.
func expectedPoints(routes []route.Route) map[string]pointSpec {
	expected := map[string]pointSpec{}
	for _, r := range routes {
		for _, u := range r.Utterances() {
			expected[index.PointID(r.ID(), u)] = pointSpec{
				text:    u,
				payload: index.NewPayload(r.ID(), r.Name(), u),
			}
		}
		for _, neg := range r.NegativeSamples() {
			expected[index.NegativePointID(r.ID(), neg)] = pointSpec{
				text:    neg,
				payload: index.NewNegativePayload(r.ID(), r.Name(), neg, r.NegativeThreshold()),
			}
		}
	}
	return expected
}
