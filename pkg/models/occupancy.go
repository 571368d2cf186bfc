package models

// OccupancyStats is the parking occupancy reported by the detector.
// Total is expected to equal Empty+Occupied but the server is trusted as-is.
type OccupancyStats struct {
	Empty    int `json:"empty"`
	Occupied int `json:"occupied"`
	Total    int `json:"total"`
}

// UploadResponse is the body returned by POST /upload.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Empty    int    `json:"empty,omitempty"`
	Occupied int    `json:"occupied,omitempty"`
	Total    int    `json:"total,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Stats projects the counters of a successful upload.
func (r *UploadResponse) Stats() OccupancyStats {
	return OccupancyStats{
		Empty:    r.Empty,
		Occupied: r.Occupied,
		Total:    r.Total,
	}
}

// HealthResponse is the body returned by GET /api/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Model       string `json:"model"`
	ModelLoaded bool   `json:"model_loaded"`
}
