package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free4inno/intenthub/domain/index"
	"github.com/free4inno/intenthub/domain/route"
	infraindex "github.com/free4inno/intenthub/infrastructure/index"
)

func newRouteService(t *testing.T) (*RouteService, *infraindex.Memory) {
	t.Helper()
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, idx := newTestComponents(embedder)
	sync := NewSyncService(store, comps, nil)
	return NewRouteService(store, sync, nil), idx
}

func TestRouteService_CreateSyncsIndex(t *testing.T) {
	svc, idx := newRouteService(t)

	created, err := svc.Create(context.Background(), mustRoute(t, 0, "weather", []string{"a", "b"}))
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID())

	count, err := idx.Count(context.Background(), index.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRouteService_DeleteRemovesPoints(t *testing.T) {
	svc, idx := newRouteService(t)

	created, err := svc.Create(context.Background(), mustRoute(t, 0, "weather", []string{"a"}))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), mustRoute(t, 0, "time", []string{"b"}))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID()))

	count, err := idx.Count(context.Background(), index.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ids, err := idx.IDsByRoute(context.Background(), created.ID())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRouteService_SetNegativeSamples(t *testing.T) {
	svc, idx := newRouteService(t)

	created, err := svc.Create(context.Background(), mustRoute(t, 0, "weather", []string{"what's the weather"}))
	require.NoError(t, err)

	updated, err := svc.SetNegativeSamples(context.Background(), created.ID(), []string{"weather in Minecraft"}, 0.9)
	require.NoError(t, err)
	assert.Equal(t, []string{"weather in Minecraft"}, updated.NegativeSamples())
	assert.Equal(t, 0.9, updated.NegativeThreshold())

	negatives, err := idx.Scroll(context.Background(), index.FilterNegatives())
	require.NoError(t, err)
	assert.Len(t, negatives, 1)
}

func TestRouteService_ReplaceUtterancesKeepsNegatives(t *testing.T) {
	svc, _ := newRouteService(t)

	r, err := route.New(0, "weather", "", []string{"old"}, []string{"negative"}, 0, 0)
	require.NoError(t, err)
	created, err := svc.Create(context.Background(), r)
	require.NoError(t, err)

	updated, err := svc.ReplaceUtterances(context.Background(), created.ID(), []string{"new one", "new two"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new one", "new two"}, updated.Utterances())
	assert.Equal(t, []string{"negative"}, updated.NegativeSamples())
}

func TestRouteService_SyncFailureDoesNotRevertWrite(t *testing.T) {
	store := newTestStore(t)
	embedder := newStubEmbedder(4)
	comps, _ := newTestComponents(embedder)
	sync := NewSyncService(store, comps, nil)
	svc := NewRouteService(store, sync, nil)

	embedder.failing.Store(true)
	created, err := svc.Create(context.Background(), mustRoute(t, 0, "weather", []string{"a"}))
	require.NoError(t, err, "journal write must survive a sync failure")

	got, err := store.Get(created.ID())
	require.NoError(t, err)
	assert.Equal(t, "weather", got.Name())
}

func TestRouteService_NotFound(t *testing.T) {
	svc, _ := newRouteService(t)

	_, err := svc.Get(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))

	err = svc.Delete(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}
