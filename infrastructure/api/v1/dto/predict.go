package dto

import "github.com/free4inno/intenthub/application/service"

// PredictRequest carries the text to classify.
type PredictRequest struct {
	Text string `json:"text"`
}

// PredictionResponse is one ranked answer. Score is null for the
// fallback entry.
type PredictionResponse struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Score *float64 `json:"score"`
}

// FromPredictions converts a ranked prediction list to its wire form.
func FromPredictions(ranked []service.Prediction) []PredictionResponse {
	out := make([]PredictionResponse, len(ranked))
	for i, p := range ranked {
		out[i] = PredictionResponse{ID: p.RouteID(), Name: p.RouteName(), Score: p.Score()}
	}
	return out
}
