package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/free4inno/intenthub"
	"github.com/free4inno/intenthub/application/service"
	"github.com/free4inno/intenthub/domain/route"
	"github.com/free4inno/intenthub/infrastructure/api/middleware"
	"github.com/free4inno/intenthub/infrastructure/api/v1/dto"
)

// RoutesRouter handles route CRUD and the advisor-backed expansion.
type RoutesRouter struct {
	client *intenthub.Client
	logger *slog.Logger
}

// NewRoutesRouter creates a RoutesRouter.
func NewRoutesRouter(client *intenthub.Client) *RoutesRouter {
	return &RoutesRouter{client: client, logger: client.Logger()}
}

// Routes returns the chi router for route endpoints.
func (r *RoutesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Get("/search", r.Search)
	router.Post("/", r.Create)
	router.Post("/generate-utterances", r.GenerateUtterances)
	router.Put("/{id}", r.Update)
	router.Delete("/{id}", r.Delete)
	router.Post("/{id}/negative-samples", r.SetNegativeSamples)

	return router
}

// List handles GET /routes.
func (r *RoutesRouter) List(w http.ResponseWriter, req *http.Request) {
	routes := r.client.Routes.List(req.Context())
	middleware.WriteJSON(w, http.StatusOK, dto.FromRoutes(routes))
}

// Search handles GET /routes/search?q=.
func (r *RoutesRouter) Search(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query().Get("q")
	routes := r.client.Routes.Search(req.Context(), query)
	middleware.WriteJSON(w, http.StatusOK, dto.FromRoutes(routes))
}

// Create handles POST /routes. A zero id requests auto-assignment.
func (r *RoutesRouter) Create(w http.ResponseWriter, req *http.Request) {
	var body dto.RouteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	candidate, err := body.ToRoute()
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	created, err := r.client.Routes.Create(req.Context(), candidate)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, dto.FromRoute(created))
}

// Update handles PUT /routes/{id}. The path id wins over any id in the
// body.
func (r *RoutesRouter) Update(w http.ResponseWriter, req *http.Request) {
	id, ok := r.routeID(w, req)
	if !ok {
		return
	}

	var body dto.RouteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}
	body.ID = id

	candidate, err := body.ToRoute()
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	updated, err := r.client.Routes.Update(req.Context(), candidate)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromRoute(updated))
}

// Delete handles DELETE /routes/{id}.
func (r *RoutesRouter) Delete(w http.ResponseWriter, req *http.Request) {
	id, ok := r.routeID(w, req)
	if !ok {
		return
	}

	if err := r.client.Routes.Delete(req.Context(), id); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetNegativeSamples handles POST /routes/{id}/negative-samples.
func (r *RoutesRouter) SetNegativeSamples(w http.ResponseWriter, req *http.Request) {
	id, ok := r.routeID(w, req)
	if !ok {
		return
	}

	var body dto.NegativeSamplesRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	updated, err := r.client.Routes.SetNegativeSamples(req.Context(), id, body.NegativeSamples, body.NegativeThreshold)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromRoute(updated))
}

// GenerateUtterances handles POST /routes/generate-utterances. For a
// stored route the merged list replaces the route's utterances; a zero
// id returns the expansion without persisting, for routes still being
// drafted.
func (r *RoutesRouter) GenerateUtterances(w http.ResponseWriter, req *http.Request) {
	var body dto.GenerateUtterancesRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	ctx := req.Context()
	reference := body.Utterances
	name := body.Name
	description := body.Description

	var stored route.Route
	if body.ID != route.FallbackID {
		var err error
		stored, err = r.client.Routes.Get(ctx, body.ID)
		if err != nil {
			middleware.WriteError(w, req, err, r.logger)
			return
		}
		if len(reference) == 0 {
			reference = stored.Utterances()
		}
		if name == "" {
			name = stored.Name()
		}
		if description == "" {
			description = stored.Description()
		}
	}

	generated, err := r.client.Advisor.GenerateUtterances(ctx, name, description, reference, body.Count)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	merged := append(append([]string{}, reference...), generated...)

	if body.ID == route.FallbackID {
		middleware.WriteJSON(w, http.StatusOK, dto.RouteResponse{
			ID:          route.FallbackID,
			Name:        name,
			Description: description,
			Utterances:  merged,
		})
		return
	}

	updated, err := r.client.Routes.ReplaceUtterances(ctx, body.ID, merged)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromRoute(updated))
}

func (r *RoutesRouter) routeID(w http.ResponseWriter, req *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(req, "id"))
	if err != nil || id <= 0 {
		middleware.WriteError(w, req, service.Validation("route id must be a positive integer"), r.logger)
		return 0, false
	}
	return id, true
}
