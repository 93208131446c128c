package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free4inno/intenthub/domain/index"
	"github.com/free4inno/intenthub/domain/route"
)

func TestSync_Convergence(t *testing.T) {
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, idx := newTestComponents(embedder)
	sync := NewSyncService(store, comps, nil)

	_, err := store.Create(mustRoute(t, 0, "weather", []string{"what's the weather", "will it rain"}))
	require.NoError(t, err)
	_, err = store.Create(mustRoute(t, 0, "time", []string{"what time is it"}))
	require.NoError(t, err)

	result, err := sync.Sync(context.Background(), SyncIncremental)
	require.NoError(t, err)

	assert.Equal(t, 2, result.RoutesCount())
	assert.Equal(t, 3, result.TotalPoints())
	assert.Equal(t, 0, result.TotalNegativePoints())
	assert.Equal(t, 3, result.Upserted())
	assert.Equal(t, SyncIncremental, result.Mode())

	count, err := idx.Count(context.Background(), index.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSync_Idempotent(t *testing.T) {
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, _ := newTestComponents(embedder)
	sync := NewSyncService(store, comps, nil)

	_, err := store.Create(mustRoute(t, 0, "weather", []string{"what's the weather"}))
	require.NoError(t, err)

	_, err = sync.Sync(context.Background(), SyncIncremental)
	require.NoError(t, err)

	second, err := sync.Sync(context.Background(), SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Upserted())
	assert.Equal(t, 0, second.Deleted())
}

func TestSync_RemovesStalePoints(t *testing.T) {
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, idx := newTestComponents(embedder)
	sync := NewSyncService(store, comps, nil)

	created, err := store.Create(mustRoute(t, 0, "weather", []string{"a", "b"}))
	require.NoError(t, err)
	_, err = sync.Sync(context.Background(), SyncIncremental)
	require.NoError(t, err)

	shrunk, err := created.WithUtterances([]string{"a"})
	require.NoError(t, err)
	_, err = store.Update(shrunk)
	require.NoError(t, err)

	result, err := sync.Sync(context.Background(), SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted())
	assert.Equal(t, 1, result.TotalPoints())

	count, err := idx.Count(context.Background(), index.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSync_ForcedFullReembedsEverything(t *testing.T) {
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, _ := newTestComponents(embedder)
	sync := NewSyncService(store, comps, nil)

	_, err := store.Create(mustRoute(t, 0, "weather", []string{"a", "b"}))
	require.NoError(t, err)
	_, err = sync.Sync(context.Background(), SyncIncremental)
	require.NoError(t, err)

	result, err := sync.Sync(context.Background(), SyncForcedFull)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Upserted())
	assert.Equal(t, SyncForcedFull, result.Mode())
}

func TestSync_EmbedFailureAbortsWithoutDeleting(t *testing.T) {
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, idx := newTestComponents(embedder)
	sync := NewSyncService(store, comps, nil)

	created, err := store.Create(mustRoute(t, 0, "weather", []string{"a", "b"}))
	require.NoError(t, err)
	_, err = sync.Sync(context.Background(), SyncIncremental)
	require.NoError(t, err)

	// Shrink the route and add a new utterance, then break the embedder:
	// the stale point must survive the failed run.
	changed, err := created.WithUtterances([]string{"a", "c"})
	require.NoError(t, err)
	_, err = store.Update(changed)
	require.NoError(t, err)
	embedder.failing.Store(true)

	_, err = sync.Sync(context.Background(), SyncIncremental)
	require.Error(t, err)
	assert.Equal(t, KindBackend, KindOf(err))

	count, err := idx.Count(context.Background(), index.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count, "failed run must not delete")

	// Recovery converges.
	embedder.failing.Store(false)
	result, err := sync.Sync(context.Background(), SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted())
	assert.Equal(t, 2, result.TotalPoints())
}

func TestSync_NegativeSamplesGetOwnPoints(t *testing.T) {
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, idx := newTestComponents(embedder)
	sync := NewSyncService(store, comps, nil)

	r, err := route.New(0, "weather", "", []string{"what's the weather"}, []string{"weather in Minecraft"}, 0, 0)
	require.NoError(t, err)
	_, err = store.Create(r)
	require.NoError(t, err)

	result, err := sync.Sync(context.Background(), SyncIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalPoints())
	assert.Equal(t, 1, result.TotalNegativePoints())

	negatives, err := idx.Scroll(context.Background(), index.FilterNegatives())
	require.NoError(t, err)
	require.Len(t, negatives, 1)
	assert.Equal(t, "weather in Minecraft", negatives[0].Payload().Utterance())
	assert.InDelta(t, route.DefaultNegativeThreshold, negatives[0].Payload().NegativeThreshold(), 1e-9)
}
