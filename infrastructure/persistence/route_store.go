// Package persistence provides storage implementations: the JSON route
// journal and the SQLite-backed vector index.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/free4inno/intenthub/domain/route"
)

// routeRecord is the journal representation of a route.
type routeRecord struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Utterances        []string `json:"utterances"`
	NegativeSamples   []string `json:"negative_samples"`
	ScoreThreshold    float64  `json:"score_threshold"`
	NegativeThreshold float64  `json:"negative_threshold"`
}

func recordFromRoute(r route.Route) routeRecord {
	return routeRecord{
		ID:                r.ID(),
		Name:              r.Name(),
		Description:       r.Description(),
		Utterances:        r.Utterances(),
		NegativeSamples:   r.NegativeSamples(),
		ScoreThreshold:    r.ScoreThreshold(),
		NegativeThreshold: r.NegativeThreshold(),
	}
}

func (rec routeRecord) toRoute() (route.Route, error) {
	return route.New(rec.ID, rec.Name, rec.Description, rec.Utterances, rec.NegativeSamples, rec.ScoreThreshold, rec.NegativeThreshold)
}

// RouteStore is a journal-file route.Store: in-memory map as the read
// path, a single writer gate, and atomic file replacement on every write.
type RouteStore struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	routes  map[int]route.Route
	version atomic.Uint64
}

// NewRouteStore loads the journal at path. A missing file means an empty
// store; a corrupt file is an error.
func NewRouteStore(path string, logger *slog.Logger) (*RouteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &RouteStore{
		path:   path,
		logger: logger,
		routes: make(map[int]route.Route),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read route journal: %w", err)
	}

	var records []routeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse route journal %s: %w", path, err)
	}

	for _, rec := range records {
		r, err := rec.toRoute()
		if err != nil {
			return nil, fmt.Errorf("route %d in journal: %w", rec.ID, err)
		}
		if rec.ID == route.FallbackID {
			return nil, fmt.Errorf("route journal contains reserved id %d", route.FallbackID)
		}
		s.routes[r.ID()] = r
	}

	logger.Info("route journal loaded", "path", path, "routes", len(s.routes))
	return s, nil
}

// All returns a snapshot of every stored route ordered by id.
func (s *RouteStore) All() []route.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *RouteStore) snapshotLocked() []route.Route {
	out := make([]route.Route, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Get returns the route with the given id.
func (s *RouteStore) Get(id int) (route.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.routes[id]
	if !ok {
		return route.Route{}, route.NewNotFoundError(id)
	}
	return r, nil
}

// Search returns routes matching the query as a literal substring of
// name, description, or any utterance.
func (s *RouteStore) Search(query string) []route.Route {
	all := s.All()
	out := make([]route.Route, 0, len(all))
	for _, r := range all {
		if r.Matches(query) {
			out = append(out, r)
		}
	}
	return out
}

// Create stores a new route. A zero id requests auto-assignment.
func (s *RouteStore) Create(r route.Route) (route.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.ID()
	if id == route.FallbackID {
		id = s.nextIDLocked()
		r = r.WithID(id)
	} else if _, exists := s.routes[id]; exists {
		return route.Route{}, route.NewValidationError(fmt.Sprintf("route id %d already exists", id))
	}

	if err := s.commitLocked(func(routes map[int]route.Route) { routes[id] = r }); err != nil {
		return route.Route{}, err
	}
	s.logger.Info("route created", "route_id", id, "name", r.Name())
	return r, nil
}

func (s *RouteStore) nextIDLocked() int {
	maxID := route.FallbackID
	for id := range s.routes {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// Update replaces the route with r.ID() atomically.
func (s *RouteStore) Update(r route.Route) (route.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.routes[r.ID()]; !ok {
		return route.Route{}, route.NewNotFoundError(r.ID())
	}

	if err := s.commitLocked(func(routes map[int]route.Route) { routes[r.ID()] = r }); err != nil {
		return route.Route{}, err
	}
	s.logger.Info("route updated", "route_id", r.ID(), "name", r.Name())
	return r, nil
}

// Delete removes the route with the given id.
func (s *RouteStore) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.routes[id]; !ok {
		return route.NewNotFoundError(id)
	}

	if err := s.commitLocked(func(routes map[int]route.Route) { delete(routes, id) }); err != nil {
		return err
	}
	s.logger.Info("route deleted", "route_id", id)
	return nil
}

// Version returns the monotonic write counter.
func (s *RouteStore) Version() uint64 {
	return s.version.Load()
}

// commitLocked applies the mutation to a copy, persists the copy, and
// only then swaps it in. The in-memory state and the journal never
// diverge: a failed write leaves both untouched.
func (s *RouteStore) commitLocked(mutate func(map[int]route.Route)) error {
	next := make(map[int]route.Route, len(s.routes)+1)
	for id, r := range s.routes {
		next[id] = r
	}
	mutate(next)

	if err := s.persist(next); err != nil {
		return err
	}

	s.routes = next
	s.version.Add(1)
	return nil
}

// persist writes the journal atomically: write-to-temp, then rename.
func (s *RouteStore) persist(routes map[int]route.Route) error {
	records := make([]routeRecord, 0, len(routes))
	ids := make([]int, 0, len(routes))
	for id := range routes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		records = append(records, recordFromRoute(routes[id]))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode route journal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".routes-*.json")
	if err != nil {
		return fmt.Errorf("create journal temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write route journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close route journal: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace route journal: %w", err)
	}
	return nil
}

var _ route.Store = (*RouteStore)(nil)
