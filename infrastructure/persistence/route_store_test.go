package persistence

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/free4inno/intenthub/domain/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RouteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.json")
	s, err := NewRouteStore(path, nil)
	require.NoError(t, err)
	return s, path
}

func mustRoute(t *testing.T, id int, name string, utterances ...string) route.Route {
	t.Helper()
	r, err := route.New(id, name, "", utterances, nil, 0.6, 0.9)
	require.NoError(t, err)
	return r
}

func TestRouteStore_CreateAutoAssignsID(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.Create(mustRoute(t, 0, "weather", "how is the weather"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID())

	second, err := s.Create(mustRoute(t, 0, "flights", "book a flight"))
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID())
}

func TestRouteStore_CreateRejectsDuplicateID(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Create(mustRoute(t, 5, "weather", "how is the weather"))
	require.NoError(t, err)

	_, err = s.Create(mustRoute(t, 5, "flights", "book a flight"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, route.ErrValidation))
}

func TestRouteStore_RoundTrip(t *testing.T) {
	s, path := newTestStore(t)

	created, err := s.Create(mustRoute(t, 0, "weather", "how is the weather", "tomorrow's forecast"))
	require.NoError(t, err)

	// Reload from the journal and compare.
	reloaded, err := NewRouteStore(path, nil)
	require.NoError(t, err)

	got, err := reloaded.Get(created.ID())
	require.NoError(t, err)
	assert.Equal(t, created.Name(), got.Name())
	assert.Equal(t, created.Utterances(), got.Utterances())
	assert.Equal(t, created.ScoreThreshold(), got.ScoreThreshold())
	assert.Equal(t, created.NegativeThreshold(), got.NegativeThreshold())
}

func TestRouteStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, route.ErrNotFound))
}

func TestRouteStore_UpdateReplacesWholeRoute(t *testing.T) {
	s, _ := newTestStore(t)

	created, err := s.Create(mustRoute(t, 0, "weather", "how is the weather"))
	require.NoError(t, err)

	replacement := mustRoute(t, created.ID(), "weather_v2", "tomorrow's forecast")
	updated, err := s.Update(replacement)
	require.NoError(t, err)
	assert.Equal(t, "weather_v2", updated.Name())

	got, err := s.Get(created.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"tomorrow's forecast"}, got.Utterances())
}

func TestRouteStore_UpdateMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Update(mustRoute(t, 9, "ghost", "boo"))
	assert.True(t, errors.Is(err, route.ErrNotFound))
}

func TestRouteStore_DeleteKeepsSurvivingIDs(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Create(mustRoute(t, 0, "weather", "how is the weather"))
	require.NoError(t, err)
	second, err := s.Create(mustRoute(t, 0, "flights", "book a flight"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(1))

	// Surviving ids are stable; the next auto-assignment continues past them.
	got, err := s.Get(second.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, got.ID())

	third, err := s.Create(mustRoute(t, 0, "trains", "book a train"))
	require.NoError(t, err)
	assert.Equal(t, 3, third.ID())
}

func TestRouteStore_Search(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Create(mustRoute(t, 0, "weather", "how is the weather in Beijing"))
	require.NoError(t, err)
	_, err = s.Create(mustRoute(t, 0, "flights", "book a flight to Beijing"))
	require.NoError(t, err)

	assert.Len(t, s.Search("Beijing"), 2)
	assert.Len(t, s.Search("weather"), 1)
	assert.Len(t, s.Search("beijing"), 0)
	assert.Len(t, s.Search(""), 2)
}

func TestRouteStore_VersionBumpsOnEveryWrite(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, uint64(0), s.Version())

	created, err := s.Create(mustRoute(t, 0, "weather", "u"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Version())

	_, err = s.Update(mustRoute(t, created.ID(), "weather", "u2"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.Version())

	require.NoError(t, s.Delete(created.ID()))
	assert.Equal(t, uint64(3), s.Version())

	// Reads never bump the version.
	s.All()
	s.Search("u")
	assert.Equal(t, uint64(3), s.Version())
}

func TestRouteStore_RejectsReservedID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.json")
	s, err := NewRouteStore(path, nil)
	require.NoError(t, err)

	// id 0 requests auto-assignment, so it can never be stored directly;
	// a journal carrying it is rejected on load.
	created, err := s.Create(mustRoute(t, 0, "weather", "u"))
	require.NoError(t, err)
	assert.NotEqual(t, route.FallbackID, created.ID())
}

func TestRouteStore_ConcurrentWrites(t *testing.T) {
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(mustRoute(t, 0, "route", "an utterance"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all := s.All()
	assert.Len(t, all, 16)
	seen := map[int]bool{}
	for _, r := range all {
		assert.False(t, seen[r.ID()], "duplicate id %d", r.ID())
		seen[r.ID()] = true
	}
}
