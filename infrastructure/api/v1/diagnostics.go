package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/free4inno/intenthub"
	"github.com/free4inno/intenthub/infrastructure/api/middleware"
	"github.com/free4inno/intenthub/infrastructure/api/v1/dto"
	"github.com/free4inno/intenthub/infrastructure/projection"
)

// DiagnosticsRouter handles the overlap, projection, and repair
// endpoints.
type DiagnosticsRouter struct {
	client *intenthub.Client
	logger *slog.Logger
}

// NewDiagnosticsRouter creates a DiagnosticsRouter.
func NewDiagnosticsRouter(client *intenthub.Client) *DiagnosticsRouter {
	return &DiagnosticsRouter{client: client, logger: client.Logger()}
}

// Routes returns the chi router for diagnostics endpoints.
func (r *DiagnosticsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/overlap", r.Overlap)
	router.Get("/umap", r.Projection)
	router.Post("/repair", r.Repair)
	router.Post("/apply-repair", r.ApplyRepair)

	return router
}

// Overlap handles GET /diagnostics/overlap?refresh=.
func (r *DiagnosticsRouter) Overlap(w http.ResponseWriter, req *http.Request) {
	refresh := req.URL.Query().Get("refresh") == "true"

	report, err := r.client.Diagnostics.Overlap(req.Context(), refresh)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromOverlapReport(report))
}

// Projection handles GET /diagnostics/umap?n_neighbors=&min_dist=&seed=.
// Unset or malformed parameters fall back to the defaults.
func (r *DiagnosticsRouter) Projection(w http.ResponseWriter, req *http.Request) {
	params := projection.DefaultParams()
	q := req.URL.Query()
	if v, err := strconv.Atoi(q.Get("n_neighbors")); err == nil && v > 0 {
		params.Neighbors = v
	}
	if v, err := strconv.ParseFloat(q.Get("min_dist"), 64); err == nil && v >= 0 {
		params.MinDist = v
	}
	if v, err := strconv.ParseInt(q.Get("seed"), 10, 64); err == nil {
		params.Seed = v
	}

	points, err := r.client.Diagnostics.Projection(req.Context(), params)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromProjection(points))
}

// Repair handles POST /diagnostics/repair. The suggestion is advisory;
// nothing is mutated.
func (r *DiagnosticsRouter) Repair(w http.ResponseWriter, req *http.Request) {
	var body dto.RepairRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	suggestion, err := r.client.Diagnostics.Repair(req.Context(), body.SourceRouteID, body.TargetRouteID)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromRepairSuggestion(suggestion))
}

// ApplyRepair handles POST /diagnostics/apply-repair.
func (r *DiagnosticsRouter) ApplyRepair(w http.ResponseWriter, req *http.Request) {
	var body dto.ApplyRepairRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	updated, err := r.client.Routes.ReplaceUtterances(req.Context(), body.RouteID, body.Utterances)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromRoute(updated))
}
