package service

import (
	"context"
	"log/slog"

	"github.com/free4inno/intenthub/domain/route"
)

// RouteService handles route CRUD. Every successful write kicks an
// incremental sync; a sync failure is logged but never reverts the
// journal write, the next run picks the change up.
type RouteService struct {
	store  route.Store
	sync   *SyncService
	logger *slog.Logger
}

// NewRouteService creates a RouteService.
func NewRouteService(store route.Store, sync *SyncService, logger *slog.Logger) *RouteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteService{store: store, sync: sync, logger: logger}
}

// List returns all routes sorted by id.
func (s *RouteService) List(ctx context.Context) []route.Route {
	return s.store.All()
}

// Get returns one route by id.
func (s *RouteService) Get(ctx context.Context, id int) (route.Route, error) {
	return s.store.Get(id)
}

// Search returns routes whose name, description or utterances contain the
// literal query.
func (s *RouteService) Search(ctx context.Context, query string) []route.Route {
	return s.store.Search(query)
}

// Create stores a new route. A zero id requests auto-assignment.
func (s *RouteService) Create(ctx context.Context, r route.Route) (route.Route, error) {
	created, err := s.store.Create(r)
	if err != nil {
		return route.Route{}, err
	}
	s.syncAfterWrite(ctx, "create", created.ID())
	return created, nil
}

// Update replaces a route wholesale.
func (s *RouteService) Update(ctx context.Context, r route.Route) (route.Route, error) {
	updated, err := s.store.Update(r)
	if err != nil {
		return route.Route{}, err
	}
	s.syncAfterWrite(ctx, "update", updated.ID())
	return updated, nil
}

// Delete removes a route. Surviving routes keep their ids.
func (s *RouteService) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.syncAfterWrite(ctx, "delete", id)
	return nil
}

// SetNegativeSamples replaces a route's counter-example list. A zero
// threshold keeps the route's current one.
func (s *RouteService) SetNegativeSamples(ctx context.Context, id int, samples []string, threshold float64) (route.Route, error) {
	current, err := s.store.Get(id)
	if err != nil {
		return route.Route{}, err
	}
	next, err := current.WithNegativeSamples(samples, threshold)
	if err != nil {
		return route.Route{}, err
	}
	updated, err := s.store.Update(next)
	if err != nil {
		return route.Route{}, err
	}
	s.syncAfterWrite(ctx, "negative_samples", id)
	return updated, nil
}

// ReplaceUtterances swaps a route's utterance list, typically with an
// advisor repair outcome, and re-syncs the route's points.
func (s *RouteService) ReplaceUtterances(ctx context.Context, id int, utterances []string) (route.Route, error) {
	current, err := s.store.Get(id)
	if err != nil {
		return route.Route{}, err
	}
	next, err := current.WithUtterances(utterances)
	if err != nil {
		return route.Route{}, err
	}
	updated, err := s.store.Update(next)
	if err != nil {
		return route.Route{}, err
	}
	s.syncAfterWrite(ctx, "replace_utterances", id)
	return updated, nil
}

func (s *RouteService) syncAfterWrite(ctx context.Context, op string, id int) {
	if s.sync == nil {
		return
	}
	if _, err := s.sync.Sync(ctx, SyncIncremental); err != nil {
		s.logger.WarnContext(ctx, "post-write sync failed",
			slog.String("op", op),
			slog.Int("route_id", id),
			slog.Any("error", err),
		)
	}
}
