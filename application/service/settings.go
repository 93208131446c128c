package service

import (
	"context"
	"log/slog"

	"github.com/free4inno/intenthub/internal/config"
)

// Rebinder rebuilds the backend clients from a freshly resolved runtime
// configuration and reports whether the embedding dimension changed.
// The client facade implements it.
type Rebinder interface {
	Rebind(ctx context.Context, rt config.Runtime) (dimensionChanged bool, err error)
}

// SettingsService reads and updates the runtime settings overlay. A
// successful update persists the file, re-resolves the effective
// configuration, rebinds the backends, and reconciles the index.
type SettingsService struct {
	settings   *config.Settings
	comps      *Components
	rebinder   Rebinder
	sync       *SyncService
	mirrorPath string
	logger     *slog.Logger
}

// NewSettingsService creates a SettingsService. mirrorPath may be empty
// to disable the env mirror export.
func NewSettingsService(settings *config.Settings, comps *Components, rebinder Rebinder, sync *SyncService, mirrorPath string, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{
		settings:   settings,
		comps:      comps,
		rebinder:   rebinder,
		sync:       sync,
		mirrorPath: mirrorPath,
		logger:     logger,
	}
}

// View returns the effective value of every recognized key, with
// secrets masked.
func (s *SettingsService) View(ctx context.Context) map[string]string {
	return config.ResolveEffective(s.settings)
}

// Update merges values into the overlay, persists it, rebinds the
// backends, and runs a sync (full when the embedding dimension changed).
// A failed sync is logged but does not undo the settings write; the next
// reindex self-heals.
func (s *SettingsService) Update(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return Validation("no settings provided")
	}
	if err := s.settings.Update(values); err != nil {
		return Validation(err.Error())
	}

	rt := config.ResolveRuntime(s.settings)
	dimensionChanged, err := s.rebinder.Rebind(ctx, rt)
	if err != nil {
		return WrapError(KindBackend, "rebind after settings update", err)
	}

	if s.mirrorPath != "" {
		if err := s.settings.ExportEnvMirror(s.mirrorPath); err != nil {
			s.logger.WarnContext(ctx, "env mirror export failed", slog.Any("error", err))
		}
	}

	mode := SyncIncremental
	if dimensionChanged {
		mode = SyncForcedFull
	}
	if s.sync != nil {
		if _, err := s.sync.Sync(ctx, mode); err != nil {
			s.logger.WarnContext(ctx, "sync after settings update failed",
				slog.String("mode", string(mode)),
				slog.Any("error", err),
			)
		}
	}

	s.logger.InfoContext(ctx, "settings updated",
		slog.Int("keys", len(values)),
		slog.Bool("dimension_changed", dimensionChanged),
	)
	return nil
}
