package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/free4inno/intenthub/domain/route"
	infraindex "github.com/free4inno/intenthub/infrastructure/index"
	"github.com/free4inno/intenthub/infrastructure/projection"
)

// Diagnostics limits.
const (
	// regionTopM caps how many of a route's utterances, picked by
	// proximity to the other route's centroid, enter the region mean.
	regionTopM = 8
	// maxInstanceConflicts caps the conflict list per ordered pair.
	maxInstanceConflicts = 10
)

// InstanceConflict is one cross-route utterance pair judged ambiguous.
type InstanceConflict struct {
	utteranceA string
	utteranceB string
	score      float64
}

// UtteranceA returns the source-route utterance.
func (c InstanceConflict) UtteranceA() string { return c.utteranceA }

// UtteranceB returns the target-route utterance.
func (c InstanceConflict) UtteranceB() string { return c.utteranceB }

// Score returns the pair's cosine similarity.
func (c InstanceConflict) Score() float64 { return c.score }

// Overlap is one significant pairing from a source route's perspective.
type Overlap struct {
	targetRouteID    int
	targetRouteName  string
	regionSimilarity float64
	conflicts        []InstanceConflict
}

// TargetRouteID returns the other route's id.
func (o Overlap) TargetRouteID() int { return o.targetRouteID }

// TargetRouteName returns the other route's name.
func (o Overlap) TargetRouteName() string { return o.targetRouteName }

// RegionSimilarity returns the symmetric pair score.
func (o Overlap) RegionSimilarity() float64 { return o.regionSimilarity }

// Conflicts returns the source-to-target instance conflicts.
func (o Overlap) Conflicts() []InstanceConflict {
	out := make([]InstanceConflict, len(o.conflicts))
	copy(out, o.conflicts)
	return out
}

// RouteOverlaps is one route's entry in the overlap report.
type RouteOverlaps struct {
	routeID        int
	routeName      string
	utteranceCount int
	overlaps       []Overlap
}

// RouteID returns the route id.
func (r RouteOverlaps) RouteID() int { return r.routeID }

// RouteName returns the route name.
func (r RouteOverlaps) RouteName() string { return r.routeName }

// UtteranceCount returns how many utterances the route carries.
func (r RouteOverlaps) UtteranceCount() int { return r.utteranceCount }

// Overlaps returns the route's significant pairings.
func (r RouteOverlaps) Overlaps() []Overlap {
	out := make([]Overlap, len(r.overlaps))
	copy(out, r.overlaps)
	return out
}

// OverlapReport is the full diagnostics result.
type OverlapReport struct {
	routes           []RouteOverlaps
	totalRoutes      int
	significantPairs int
	computedAt       time.Time
}

// Routes returns the per-route entries sorted by route id.
func (r OverlapReport) Routes() []RouteOverlaps {
	out := make([]RouteOverlaps, len(r.routes))
	copy(out, r.routes)
	return out
}

// TotalRoutes returns how many routes were analyzed.
func (r OverlapReport) TotalRoutes() int { return r.totalRoutes }

// SignificantPairs returns the number of significant unordered pairs.
func (r OverlapReport) SignificantPairs() int { return r.significantPairs }

// ComputedAt returns when the report was computed.
func (r OverlapReport) ComputedAt() time.Time { return r.computedAt }

// ProjectionPoint is one utterance placed on the 2-D diagnostics map.
type ProjectionPoint struct {
	x         float64
	y         float64
	routeID   int
	routeName string
	utterance string
}

// X returns the horizontal coordinate.
func (p ProjectionPoint) X() float64 { return p.x }

// Y returns the vertical coordinate.
func (p ProjectionPoint) Y() float64 { return p.y }

// RouteID returns the owning route id.
func (p ProjectionPoint) RouteID() int { return p.routeID }

// RouteName returns the owning route name.
func (p ProjectionPoint) RouteName() string { return p.routeName }

// Utterance returns the projected text.
func (p ProjectionPoint) Utterance() string { return p.utterance }

// DiagnosticsService computes route-overlap reports, the 2-D projection,
// and repair suggestions. Reports are cached per store version; any
// route mutation invalidates the cache.
type DiagnosticsService struct {
	store   route.Store
	comps   *Components
	advisor *AdvisorService
	logger  *slog.Logger
	now     func() time.Time

	mu            sync.Mutex
	cached        *OverlapReport
	cachedVersion uint64
}

// NewDiagnosticsService creates a DiagnosticsService.
func NewDiagnosticsService(store route.Store, comps *Components, advisor *AdvisorService, logger *slog.Logger) *DiagnosticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiagnosticsService{
		store:   store,
		comps:   comps,
		advisor: advisor,
		logger:  logger,
		now:     time.Now,
	}
}

// embeddedRoute pairs a route with the vectors of its utterances.
type embeddedRoute struct {
	route    route.Route
	vectors  [][]float64
	centroid []float64
}

// Overlap returns the overlap report, recomputing when refresh is set or
// the cached report is stale.
func (d *DiagnosticsService) Overlap(ctx context.Context, refresh bool) (OverlapReport, error) {
	version := d.store.Version()

	d.mu.Lock()
	if !refresh && d.cached != nil && d.cachedVersion == version {
		report := *d.cached
		d.mu.Unlock()
		return report, nil
	}
	d.mu.Unlock()

	report, err := d.compute(ctx)
	if err != nil {
		return OverlapReport{}, err
	}

	d.mu.Lock()
	d.cached = &report
	d.cachedVersion = version
	d.mu.Unlock()
	return report, nil
}

func (d *DiagnosticsService) compute(ctx context.Context) (OverlapReport, error) {
	embedded, err := d.embedRoutes(ctx)
	if err != nil {
		return OverlapReport{}, err
	}

	entries := make([]RouteOverlaps, len(embedded))
	for i, er := range embedded {
		entries[i] = RouteOverlaps{
			routeID:        er.route.ID(),
			routeName:      er.route.Name(),
			utteranceCount: len(er.vectors),
		}
	}

	rt := d.comps.Runtime()
	significant := 0
	for i := range embedded {
		for j := i + 1; j < len(embedded); j++ {
			a, b := embedded[i], embedded[j]
			score := pairScore(a, b)
			if score < rt.RegionThreshold() {
				continue
			}
			significant++
			entries[i].overlaps = append(entries[i].overlaps, Overlap{
				targetRouteID:    b.route.ID(),
				targetRouteName:  b.route.Name(),
				regionSimilarity: score,
				conflicts:        instanceConflicts(a, b, rt.InstanceThreshold()),
			})
			entries[j].overlaps = append(entries[j].overlaps, Overlap{
				targetRouteID:    a.route.ID(),
				targetRouteName:  a.route.Name(),
				regionSimilarity: score,
				conflicts:        instanceConflicts(b, a, rt.InstanceThreshold()),
			})
		}
	}

	report := OverlapReport{
		routes:           entries,
		totalRoutes:      len(embedded),
		significantPairs: significant,
		computedAt:       d.now(),
	}
	d.logger.InfoContext(ctx, "overlap report computed",
		slog.Int("routes", report.totalRoutes),
		slog.Int("significant_pairs", report.significantPairs),
	)
	return report, nil
}

// Projection places every utterance on a deterministic 2-D map.
func (d *DiagnosticsService) Projection(ctx context.Context, params projection.Params) ([]ProjectionPoint, error) {
	embedded, err := d.embedRoutes(ctx)
	if err != nil {
		return nil, err
	}

	var vectors [][]float64
	var points []ProjectionPoint
	for _, er := range embedded {
		for k, u := range er.route.Utterances() {
			vectors = append(vectors, er.vectors[k])
			points = append(points, ProjectionPoint{
				routeID:   er.route.ID(),
				routeName: er.route.Name(),
				utterance: u,
			})
		}
	}

	coords, err := projection.Project(vectors, params)
	if err != nil {
		return nil, WrapError(KindBackend, "projection failed", err)
	}
	for i := range points {
		points[i].x = coords[i][0]
		points[i].y = coords[i][1]
	}
	return points, nil
}

// Repair produces an advisory suggestion for disentangling source from
// target. It never mutates the store.
func (d *DiagnosticsService) Repair(ctx context.Context, sourceID, targetID int) (RepairSuggestion, error) {
	if sourceID == targetID {
		return RepairSuggestion{}, Validation("source and target must differ")
	}
	source, err := d.store.Get(sourceID)
	if err != nil {
		return RepairSuggestion{}, err
	}
	target, err := d.store.Get(targetID)
	if err != nil {
		return RepairSuggestion{}, err
	}

	a, err := d.embedRoute(ctx, source)
	if err != nil {
		return RepairSuggestion{}, err
	}
	b, err := d.embedRoute(ctx, target)
	if err != nil {
		return RepairSuggestion{}, err
	}

	conflicts := instanceConflicts(a, b, d.comps.Runtime().InstanceThreshold())
	return d.advisor.SuggestRepair(ctx, source, target, conflicts)
}

// embedRoutes embeds the utterances of every route that has any.
func (d *DiagnosticsService) embedRoutes(ctx context.Context) ([]embeddedRoute, error) {
	routes := d.store.All()

	var texts []string
	var spans []int
	var kept []route.Route
	for _, r := range routes {
		utterances := r.Utterances()
		if len(utterances) == 0 {
			continue
		}
		kept = append(kept, r)
		spans = append(spans, len(utterances))
		texts = append(texts, utterances...)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := d.comps.Embedder().Embed(ctx, texts)
	if err != nil {
		return nil, Backend("embedder", err)
	}

	out := make([]embeddedRoute, len(kept))
	offset := 0
	for i, r := range kept {
		vs := vectors[offset : offset+spans[i]]
		offset += spans[i]
		out[i] = embeddedRoute{route: r, vectors: vs, centroid: centroid(vs)}
	}
	return out, nil
}

func (d *DiagnosticsService) embedRoute(ctx context.Context, r route.Route) (embeddedRoute, error) {
	vectors, err := d.comps.Embedder().Embed(ctx, r.Utterances())
	if err != nil {
		return embeddedRoute{}, Backend("embedder", err)
	}
	return embeddedRoute{route: r, vectors: vectors, centroid: centroid(vectors)}, nil
}

// pairScore is the symmetric region similarity: the max of both
// directional scores.
func pairScore(a, b embeddedRoute) float64 {
	return max(regionSimilarity(a, b), regionSimilarity(b, a))
}

// regionSimilarity computes region(A→B): the mean, over A's top-M
// utterances by proximity to B's centroid, of each one's best match in B.
func regionSimilarity(a, b embeddedRoute) float64 {
	if len(a.vectors) == 0 || len(b.vectors) == 0 {
		return 0
	}

	m := min(regionTopM, len(a.vectors))
	order := make([]int, len(a.vectors))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool {
		sx := infraindex.CosineSimilarity(a.vectors[order[x]], b.centroid)
		sy := infraindex.CosineSimilarity(a.vectors[order[y]], b.centroid)
		if sx != sy {
			return sx > sy
		}
		return order[x] < order[y]
	})

	var sum float64
	for _, i := range order[:m] {
		best := 0.0
		for _, v := range b.vectors {
			if s := infraindex.CosineSimilarity(a.vectors[i], v); s > best {
				best = s
			}
		}
		sum += best
	}
	return sum / float64(m)
}

// instanceConflicts lists a's ambiguous utterances against b: each
// utterance of a at most once, paired with its nearest counterpart,
// ranked by similarity, capped.
func instanceConflicts(a, b embeddedRoute, threshold float64) []InstanceConflict {
	utterancesA := a.route.Utterances()
	utterancesB := b.route.Utterances()

	var conflicts []InstanceConflict
	for i, va := range a.vectors {
		bestScore := -1.0
		bestJ := -1
		for j, vb := range b.vectors {
			if s := infraindex.CosineSimilarity(va, vb); s > bestScore {
				bestScore = s
				bestJ = j
			}
		}
		if bestJ >= 0 && bestScore >= threshold {
			conflicts = append(conflicts, InstanceConflict{
				utteranceA: utterancesA[i],
				utteranceB: utterancesB[bestJ],
				score:      bestScore,
			})
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].score > conflicts[j].score
	})
	if len(conflicts) > maxInstanceConflicts {
		conflicts = conflicts[:maxInstanceConflicts]
	}
	return conflicts
}

func centroid(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			out[i] += x
		}
	}
	for i := range out {
		out[i] /= float64(len(vectors))
	}
	return out
}
