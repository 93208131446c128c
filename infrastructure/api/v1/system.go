package v1

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/free4inno/intenthub"
	"github.com/free4inno/intenthub/infrastructure/api/middleware"
	"github.com/free4inno/intenthub/infrastructure/api/v1/dto"
)

// SystemRouter handles health, reindex, and settings.
type SystemRouter struct {
	client *intenthub.Client
	logger *slog.Logger
}

// NewSystemRouter creates a SystemRouter.
func NewSystemRouter(client *intenthub.Client) *SystemRouter {
	return &SystemRouter{client: client, logger: client.Logger()}
}

// HealthRoutes returns the chi router for the health endpoint.
func (r *SystemRouter) HealthRoutes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.Health)
	return router
}

// ReindexRoutes returns the chi router for the reindex endpoint.
func (r *SystemRouter) ReindexRoutes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", r.Reindex)
	return router
}

// SettingsRoutes returns the chi router for the settings endpoints.
func (r *SystemRouter) SettingsRoutes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", r.GetSettings)
	router.Post("/", r.UpdateSettings)
	return router
}

// Health handles GET /health.
func (r *SystemRouter) Health(w http.ResponseWriter, req *http.Request) {
	h := r.client.Health(req.Context())

	status := "ok"
	if !h.VectorIndex() {
		status = "degraded"
	}
	middleware.WriteJSON(w, http.StatusOK, dto.HealthResponse{
		Status:      status,
		VectorIndex: h.VectorIndex(),
		Embedder:    h.Embedder(),
		RoutesCount: h.RoutesCount(),
	})
}

// Reindex handles POST /reindex. An empty body runs an incremental sync.
func (r *SystemRouter) Reindex(w http.ResponseWriter, req *http.Request) {
	var body dto.ReindexRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	result, err := r.client.Reindex(req.Context(), body.ForceFull)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FromSyncResult(result))
}

// GetSettings handles GET /settings.
func (r *SystemRouter) GetSettings(w http.ResponseWriter, req *http.Request) {
	view := r.client.Settings.View(req.Context())
	middleware.WriteJSON(w, http.StatusOK, dto.SettingsResponse{Settings: view})
}

// UpdateSettings handles POST /settings. The body is a flat map of
// recognized keys; the response is the refreshed effective view.
func (r *SystemRouter) UpdateSettings(w http.ResponseWriter, req *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(req.Body).Decode(&values); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	if err := r.client.Settings.Update(req.Context(), values); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	view := r.client.Settings.View(req.Context())
	middleware.WriteJSON(w, http.StatusOK, dto.SettingsResponse{Settings: view})
}
