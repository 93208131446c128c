package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/free4inno/intenthub"
	"github.com/free4inno/intenthub/infrastructure/api/middleware"
	"github.com/free4inno/intenthub/infrastructure/api/v1/dto"
)

// PredictRouter handles the classification endpoint.
type PredictRouter struct {
	client *intenthub.Client
	logger *slog.Logger
}

// NewPredictRouter creates a PredictRouter.
func NewPredictRouter(client *intenthub.Client) *PredictRouter {
	return &PredictRouter{client: client, logger: client.Logger()}
}

// Routes returns the chi router for predict endpoints.
func (r *PredictRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", r.Predict)
	return router
}

// Predict handles POST /predict. The response is the full ranked list;
// the first element is the winner, a single fallback entry when nothing
// qualifies.
func (r *PredictRouter) Predict(w http.ResponseWriter, req *http.Request) {
	var body dto.PredictRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	ranked, err := r.client.Predict.Rank(req.Context(), body.Text)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.FromPredictions(ranked))
}
