package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free4inno/intenthub/internal/config"
)

// stubRebinder records rebind calls.
type stubRebinder struct {
	calls            int
	lastRuntime      config.Runtime
	dimensionChanged bool
	err              error
}

func (s *stubRebinder) Rebind(_ context.Context, rt config.Runtime) (bool, error) {
	s.calls++
	s.lastRuntime = rt
	return s.dimensionChanged, s.err
}

func newSettingsFixture(t *testing.T) (*SettingsService, *stubRebinder, *config.Settings, string) {
	t.Helper()
	dir := t.TempDir()
	settings, err := config.LoadSettings(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	embedder := newStubEmbedder(4)
	comps, _ := newTestComponents(embedder)
	store := newTestStore(t)
	sync := NewSyncService(store, comps, nil)

	rebinder := &stubRebinder{}
	mirror := filepath.Join(dir, "settings.env")
	svc := NewSettingsService(settings, comps, rebinder, sync, mirror, nil)
	return svc, rebinder, settings, mirror
}

func TestSettingsService_UpdateRebindersAndMirrors(t *testing.T) {
	svc, rebinder, settings, mirror := newSettingsFixture(t)

	err := svc.Update(context.Background(), map[string]string{
		config.KeyQdrantCollection: "custom_routes",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rebinder.calls)

	v, ok := settings.Get(config.KeyQdrantCollection)
	assert.True(t, ok)
	assert.Equal(t, "custom_routes", v)

	data, err := os.ReadFile(mirror)
	require.NoError(t, err)
	assert.Contains(t, string(data), "QDRANT_COLLECTION=custom_routes")
}

func TestSettingsService_UnrecognizedKeyIsValidation(t *testing.T) {
	svc, rebinder, _, _ := newSettingsFixture(t)

	err := svc.Update(context.Background(), map[string]string{"BOGUS": "x"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 0, rebinder.calls, "rebind must not run on a rejected update")
}

func TestSettingsService_EmptyUpdateIsValidation(t *testing.T) {
	svc, _, _, _ := newSettingsFixture(t)

	err := svc.Update(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestSettingsService_RebindFailureIsBackend(t *testing.T) {
	svc, rebinder, settings, _ := newSettingsFixture(t)
	rebinder.err = assert.AnError

	err := svc.Update(context.Background(), map[string]string{
		config.KeyQdrantURL: "http://elsewhere:6333",
	})
	require.Error(t, err)
	assert.Equal(t, KindBackend, KindOf(err))

	// The write itself persisted; only the rebind failed.
	v, ok := settings.Get(config.KeyQdrantURL)
	assert.True(t, ok)
	assert.Equal(t, "http://elsewhere:6333", v)
}

func TestSettingsService_ViewMasksSecrets(t *testing.T) {
	svc, _, settings, _ := newSettingsFixture(t)
	require.NoError(t, settings.Update(map[string]string{
		config.KeyLLMAPIKey: "super-secret",
		config.KeyLLMModel:  "deepseek-chat",
	}))

	view := svc.View(context.Background())
	assert.Equal(t, "******", view[config.KeyLLMAPIKey])
	assert.Equal(t, "deepseek-chat", view[config.KeyLLMModel])
	assert.Equal(t, config.DefaultQdrantURL, view[config.KeyQdrantURL])
}
