package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/free4inno/intenthub/domain/index"
	"github.com/free4inno/intenthub/domain/route"
)

// TopK is the number of nearest neighbors fetched per search.
const TopK = 20

// Prediction is the outcome of classifying one query.
type Prediction struct {
	routeID   int
	routeName string
	score     *float64
}

// RouteID returns the predicted route id.
func (p Prediction) RouteID() int { return p.routeID }

// RouteName returns the predicted route name.
func (p Prediction) RouteName() string { return p.routeName }

// Score returns the winning similarity, nil for the fallback answer.
func (p Prediction) Score() *float64 { return p.score }

// Matched reports whether a real route won, as opposed to the fallback.
func (p Prediction) Matched() bool { return p.score != nil }

// PredictService classifies queries against the indexed utterances.
type PredictService struct {
	store  route.Store
	comps  *Components
	logger *slog.Logger
}

// NewPredictService creates a PredictService.
func NewPredictService(store route.Store, comps *Components, logger *slog.Logger) *PredictService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictService{store: store, comps: comps, logger: logger}
}

// Predict returns the best-ranked answer for the query.
func (p *PredictService) Predict(ctx context.Context, query string) (Prediction, error) {
	ranked, err := p.Rank(ctx, query)
	if err != nil {
		return Prediction{}, err
	}
	return ranked[0], nil
}

// Rank embeds the query, vetoes routes whose negative samples sit too
// close, takes the best positive neighbor per surviving route, applies
// each route's own threshold, and orders the qualifying routes by score
// (ties broken by ascending id). When nothing qualifies the result is a
// single fallback entry. Failures surface; there is no stale answer.
func (p *PredictService) Rank(ctx context.Context, query string) ([]Prediction, error) {
	if strings.TrimSpace(query) == "" {
		return nil, Validation("query must not be empty")
	}

	embedder := p.comps.Embedder()
	idx := p.comps.Index()
	rt := p.comps.Runtime()

	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, Backend("embedder", err)
	}
	if len(vectors) != 1 {
		return nil, Backend("embedder", fmt.Errorf("got %d vectors for one query", len(vectors)))
	}
	vector := vectors[0]

	vetoed, err := p.vetoedRoutes(ctx, idx, vector)
	if err != nil {
		return nil, err
	}

	matches, err := idx.Search(ctx, vector, TopK, index.FilterPositives())
	if err != nil {
		return nil, Backend("vector index", err)
	}

	// Per-route best score over the surviving neighbors.
	best := map[int]float64{}
	for _, m := range matches {
		id := m.Payload().RouteID()
		if vetoed[id] {
			continue
		}
		if m.Score() > best[id] {
			best[id] = m.Score()
		}
	}

	// Thresholds come from the store, not the stored payloads, so a
	// threshold edit applies without a reindex. Routes deleted since the
	// last sync drop out here.
	type candidate struct {
		id    int
		name  string
		score float64
	}
	var candidates []candidate
	for id, score := range best {
		r, err := p.store.Get(id)
		if err != nil {
			continue
		}
		if score >= r.ScoreThreshold() {
			candidates = append(candidates, candidate{id: id, name: r.Name(), score: score})
		}
	}

	if len(candidates) == 0 {
		return []Prediction{{
			routeID:   rt.FallbackRouteID(),
			routeName: rt.FallbackRouteName(),
		}}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	ranked := make([]Prediction, len(candidates))
	for i, c := range candidates {
		score := c.score
		ranked[i] = Prediction{routeID: c.id, routeName: c.name, score: &score}
	}
	p.logger.DebugContext(ctx, "predicted route",
		slog.Int("route_id", ranked[0].routeID),
		slog.String("route_name", ranked[0].routeName),
		slog.Float64("score", *ranked[0].score),
	)
	return ranked, nil
}

// vetoedRoutes searches the negative points and returns the set of route
// ids whose counter-examples sit above their veto threshold. The
// threshold comes from the store like the positive one does, so a
// threshold-only edit (which moves no points) applies without a reindex;
// the stored payload only covers routes missing from the store.
func (p *PredictService) vetoedRoutes(ctx context.Context, idx index.VectorIndex, vector []float64) (map[int]bool, error) {
	matches, err := idx.Search(ctx, vector, TopK, index.FilterNegatives())
	if err != nil {
		return nil, Backend("vector index", err)
	}

	vetoed := map[int]bool{}
	for _, m := range matches {
		id := m.Payload().RouteID()
		threshold := m.Payload().NegativeThreshold()
		if r, err := p.store.Get(id); err == nil {
			threshold = r.NegativeThreshold()
		}
		if threshold <= 0 {
			threshold = route.DefaultNegativeThreshold
		}
		if m.Score() >= threshold {
			vetoed[id] = true
		}
	}
	return vetoed, nil
}
