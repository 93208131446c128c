// Package dto holds the wire types of the v1 API. Requests and
// responses are plain JSON; the domain types stay behind getters.
package dto

import "github.com/free4inno/intenthub/domain/route"

// RouteRequest is the body of route create and replace calls.
type RouteRequest struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	Utterances        []string `json:"utterances"`
	NegativeSamples   []string `json:"negative_samples,omitempty"`
	ScoreThreshold    float64  `json:"score_threshold,omitempty"`
	NegativeThreshold float64  `json:"negative_threshold,omitempty"`
}

// ToRoute validates the request into a domain route.
func (r RouteRequest) ToRoute() (route.Route, error) {
	return route.New(r.ID, r.Name, r.Description, r.Utterances, r.NegativeSamples, r.ScoreThreshold, r.NegativeThreshold)
}

// RouteResponse is the wire form of a stored route.
type RouteResponse struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Utterances        []string `json:"utterances"`
	NegativeSamples   []string `json:"negative_samples"`
	ScoreThreshold    float64  `json:"score_threshold"`
	NegativeThreshold float64  `json:"negative_threshold"`
}

// FromRoute converts a domain route to its wire form.
func FromRoute(r route.Route) RouteResponse {
	return RouteResponse{
		ID:                r.ID(),
		Name:              r.Name(),
		Description:       r.Description(),
		Utterances:        r.Utterances(),
		NegativeSamples:   r.NegativeSamples(),
		ScoreThreshold:    r.ScoreThreshold(),
		NegativeThreshold: r.NegativeThreshold(),
	}
}

// RouteListResponse is the body of route listing calls.
type RouteListResponse struct {
	Routes []RouteResponse `json:"routes"`
	Total  int             `json:"total"`
}

// FromRoutes converts a route slice to a list response.
func FromRoutes(routes []route.Route) RouteListResponse {
	out := make([]RouteResponse, len(routes))
	for i, r := range routes {
		out[i] = FromRoute(r)
	}
	return RouteListResponse{Routes: out, Total: len(out)}
}

// NegativeSamplesRequest replaces a route's counter-example list.
type NegativeSamplesRequest struct {
	NegativeSamples   []string `json:"negative_samples"`
	NegativeThreshold float64  `json:"negative_threshold,omitempty"`
}

// GenerateUtterancesRequest asks the advisor for new utterances.
type GenerateUtterancesRequest struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Count       int      `json:"count"`
	Utterances  []string `json:"utterances,omitempty"`
}
