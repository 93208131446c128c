package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free4inno/intenthub/infrastructure/persistence"
	"github.com/free4inno/intenthub/infrastructure/projection"
)

// diagFixture seeds two overlapping and one unrelated route.
func diagFixture(t *testing.T) (*DiagnosticsService, *stubEmbedder, *persistence.RouteStore) {
	t.Helper()
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, _ := newTestComponents(embedder)
	diag := NewDiagnosticsService(store, comps, NewAdvisorService(comps, nil), nil)

	// flight and train share an identical utterance; billing is far away.
	embedder.pin("book a ticket to Shanghai", 0)
	embedder.pinVector("book a flight", []float64{0.9, 0.43588989435406733, 0, 0})
	embedder.pinVector("book a train", []float64{0.9, 0, 0.43588989435406733, 0})
	embedder.pin("show my invoice", 3)

	_, err := store.Create(mustRoute(t, 0, "flight_booking", []string{"book a ticket to Shanghai", "book a flight"}))
	require.NoError(t, err)
	_, err = store.Create(mustRoute(t, 0, "train_booking", []string{"book a ticket to Shanghai", "book a train"}))
	require.NoError(t, err)
	_, err = store.Create(mustRoute(t, 0, "billing", []string{"show my invoice"}))
	require.NoError(t, err)

	return diag, embedder, store
}

func TestDiagnostics_OverlapIsSymmetric(t *testing.T) {
	diag, _, _ := diagFixture(t)

	report, err := diag.Overlap(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalRoutes())
	assert.Equal(t, 1, report.SignificantPairs())

	routes := report.Routes()
	require.Len(t, routes, 3)

	flight, train, billing := routes[0], routes[1], routes[2]
	require.Len(t, flight.Overlaps(), 1)
	require.Len(t, train.Overlaps(), 1)
	assert.Empty(t, billing.Overlaps())

	assert.Equal(t, train.RouteID(), flight.Overlaps()[0].TargetRouteID())
	assert.Equal(t, flight.RouteID(), train.Overlaps()[0].TargetRouteID())
	assert.InDelta(t,
		flight.Overlaps()[0].RegionSimilarity(),
		train.Overlaps()[0].RegionSimilarity(),
		1e-12,
		"pair score must be reported identically on both sides",
	)
	assert.GreaterOrEqual(t, flight.Overlaps()[0].RegionSimilarity(), 0.85)
}

func TestDiagnostics_InstanceConflictDeduped(t *testing.T) {
	diag, _, _ := diagFixture(t)

	report, err := diag.Overlap(context.Background(), true)
	require.NoError(t, err)

	conflicts := report.Routes()[0].Overlaps()[0].Conflicts()
	require.NotEmpty(t, conflicts)

	// The shared utterance conflicts with itself at similarity 1; each
	// source utterance appears at most once.
	assert.Equal(t, "book a ticket to Shanghai", conflicts[0].UtteranceA())
	assert.Equal(t, "book a ticket to Shanghai", conflicts[0].UtteranceB())
	assert.InDelta(t, 1.0, conflicts[0].Score(), 1e-9)

	seen := map[string]int{}
	for _, c := range conflicts {
		seen[c.UtteranceA()]++
	}
	for u, n := range seen {
		assert.Equal(t, 1, n, "utterance %q duplicated", u)
	}
}

func TestDiagnostics_CacheInvalidation(t *testing.T) {
	diag, embedder, store := diagFixture(t)

	first, err := diag.Overlap(context.Background(), true)
	require.NoError(t, err)
	callsAfterFirst := embedder.calls.Load()

	// Same version, refresh=false: served from cache, no embedding.
	cached, err := diag.Overlap(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, embedder.calls.Load())
	assert.Equal(t, first.ComputedAt(), cached.ComputedAt())

	// A store write invalidates the cache.
	_, err = store.Create(mustRoute(t, 0, "weather", []string{"what's the weather"}))
	require.NoError(t, err)

	refreshed, err := diag.Overlap(context.Background(), false)
	require.NoError(t, err)
	assert.Greater(t, embedder.calls.Load(), callsAfterFirst)
	assert.Equal(t, 4, refreshed.TotalRoutes())
}

func TestDiagnostics_Projection(t *testing.T) {
	diag, _, _ := diagFixture(t)

	points, err := diag.Projection(context.Background(), projection.DefaultParams())
	require.NoError(t, err)
	require.Len(t, points, 5)

	again, err := diag.Projection(context.Background(), projection.DefaultParams())
	require.NoError(t, err)
	for i := range points {
		assert.Equal(t, points[i].X(), again[i].X())
		assert.Equal(t, points[i].Y(), again[i].Y())
		assert.NotEmpty(t, points[i].RouteName())
		assert.NotEmpty(t, points[i].Utterance())
	}
}

func TestDiagnostics_RepairValidatesRoutes(t *testing.T) {
	diag, _, _ := diagFixture(t)

	_, err := diag.Repair(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = diag.Repair(context.Background(), 1, 99)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDiagnostics_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, _ := newTestComponents(embedder)
	diag := NewDiagnosticsService(store, comps, NewAdvisorService(comps, nil), nil)

	report, err := diag.Overlap(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalRoutes())
	assert.Empty(t, report.Routes())

	points, err := diag.Projection(context.Background(), projection.DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, points)
}
