package dto

import (
	"time"

	"github.com/free4inno/intenthub/application/service"
)

// InstanceConflictResponse is one ambiguous cross-route utterance pair.
type InstanceConflictResponse struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Similarity float64 `json:"similarity"`
}

// OverlapResponse is one significant pairing from a route's perspective.
type OverlapResponse struct {
	TargetRouteID    int                        `json:"target_route_id"`
	TargetRouteName  string                     `json:"target_route_name"`
	RegionSimilarity float64                    `json:"region_similarity"`
	Conflicts        []InstanceConflictResponse `json:"conflicts"`
}

// RouteOverlapsResponse is one route's entry in the overlap report.
type RouteOverlapsResponse struct {
	RouteID        int               `json:"route_id"`
	RouteName      string            `json:"route_name"`
	UtteranceCount int               `json:"utterance_count"`
	Overlaps       []OverlapResponse `json:"overlaps"`
}

// OverlapReportResponse is the full diagnostics report.
type OverlapReportResponse struct {
	Routes           []RouteOverlapsResponse `json:"routes"`
	TotalRoutes      int                     `json:"total_routes"`
	SignificantPairs int                     `json:"significant_pairs"`
	ComputedAt       time.Time               `json:"computed_at"`
}

// FromOverlapReport converts a diagnostics report to its wire form.
func FromOverlapReport(report service.OverlapReport) OverlapReportResponse {
	routes := report.Routes()
	out := make([]RouteOverlapsResponse, len(routes))
	for i, r := range routes {
		overlaps := r.Overlaps()
		entries := make([]OverlapResponse, len(overlaps))
		for j, o := range overlaps {
			conflicts := o.Conflicts()
			pairs := make([]InstanceConflictResponse, len(conflicts))
			for k, c := range conflicts {
				pairs[k] = InstanceConflictResponse{
					Source:     c.UtteranceA(),
					Target:     c.UtteranceB(),
					Similarity: c.Score(),
				}
			}
			entries[j] = OverlapResponse{
				TargetRouteID:    o.TargetRouteID(),
				TargetRouteName:  o.TargetRouteName(),
				RegionSimilarity: o.RegionSimilarity(),
				Conflicts:        pairs,
			}
		}
		out[i] = RouteOverlapsResponse{
			RouteID:        r.RouteID(),
			RouteName:      r.RouteName(),
			UtteranceCount: r.UtteranceCount(),
			Overlaps:       entries,
		}
	}
	return OverlapReportResponse{
		Routes:           out,
		TotalRoutes:      report.TotalRoutes(),
		SignificantPairs: report.SignificantPairs(),
		ComputedAt:       report.ComputedAt(),
	}
}

// RepairRequest names the overlapping pair to disentangle.
type RepairRequest struct {
	SourceRouteID int `json:"source_route_id"`
	TargetRouteID int `json:"target_route_id"`
}

// RepairResponse is the advisor's repair proposal.
type RepairResponse struct {
	NewUtterances         []string `json:"new_utterances"`
	NegativeSamples       []string `json:"negative_samples"`
	ConflictingUtterances []string `json:"conflicting_utterances"`
	Rationalization       string   `json:"rationalization"`
}

// FromRepairSuggestion converts a repair suggestion to its wire form.
func FromRepairSuggestion(s service.RepairSuggestion) RepairResponse {
	return RepairResponse{
		NewUtterances:         s.NewUtterances(),
		NegativeSamples:       s.NegativeSamples(),
		ConflictingUtterances: s.ConflictingUtterances(),
		Rationalization:       s.Rationalization(),
	}
}

// ApplyRepairRequest replaces a route's utterance list with a repair
// outcome.
type ApplyRepairRequest struct {
	RouteID    int      `json:"route_id"`
	Utterances []string `json:"utterances"`
}

// ProjectionPointResponse is one utterance on the 2-D map.
type ProjectionPointResponse struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	RouteID   int     `json:"route_id"`
	RouteName string  `json:"route_name"`
	Utterance string  `json:"utterance"`
}

// ProjectionResponse is the full 2-D projection with a route legend.
type ProjectionResponse struct {
	Points []ProjectionPointResponse `json:"points"`
	Routes []ProjectionLegendEntry   `json:"routes"`
}

// ProjectionLegendEntry names one route present on the map.
type ProjectionLegendEntry struct {
	RouteID   int    `json:"route_id"`
	RouteName string `json:"route_name"`
}

// FromProjection converts projection points to their wire form.
func FromProjection(points []service.ProjectionPoint) ProjectionResponse {
	out := make([]ProjectionPointResponse, len(points))
	seen := map[int]bool{}
	var legend []ProjectionLegendEntry
	for i, p := range points {
		out[i] = ProjectionPointResponse{
			X:         p.X(),
			Y:         p.Y(),
			RouteID:   p.RouteID(),
			RouteName: p.RouteName(),
			Utterance: p.Utterance(),
		}
		if !seen[p.RouteID()] {
			seen[p.RouteID()] = true
			legend = append(legend, ProjectionLegendEntry{RouteID: p.RouteID(), RouteName: p.RouteName()})
		}
	}
	return ProjectionResponse{Points: out, Routes: legend}
}
