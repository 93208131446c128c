package dto

import "github.com/free4inno/intenthub/application/service"

// HealthResponse reports component readiness.
type HealthResponse struct {
	Status      string `json:"status"`
	VectorIndex bool   `json:"vector_index"`
	Embedder    bool   `json:"embedder"`
	RoutesCount int    `json:"routes_count"`
}

// ReindexRequest selects the synchronizer mode.
type ReindexRequest struct {
	ForceFull bool `json:"force_full"`
}

// ReindexResponse summarizes one synchronizer run.
type ReindexResponse struct {
	RoutesCount         int    `json:"routes_count"`
	TotalPoints         int    `json:"total_points"`
	TotalNegativePoints int    `json:"total_negative_points"`
	Upserted            int    `json:"upserted"`
	Deleted             int    `json:"deleted"`
	Mode                string `json:"mode"`
}

// FromSyncResult converts a synchronizer result to its wire form.
func FromSyncResult(r service.SyncResult) ReindexResponse {
	return ReindexResponse{
		RoutesCount:         r.RoutesCount(),
		TotalPoints:         r.TotalPoints(),
		TotalNegativePoints: r.TotalNegativePoints(),
		Upserted:            r.Upserted(),
		Deleted:             r.Deleted(),
		Mode:                string(r.Mode()),
	}
}

// SettingsResponse maps each recognized key to its effective value,
// secrets masked.
type SettingsResponse struct {
	Settings map[string]string `json:"settings"`
}
