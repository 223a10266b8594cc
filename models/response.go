package models

// Run states reported in ExtractResponse.State.
const (
	StateDone    = "done"
	StateAborted = "aborted"
)

// ExtractResponse is the response for POST /api/v1/extract and the result
// of an async job.
type ExtractResponse struct {
	// Success is true when the run reached the done state, even if some
	// items were skipped.
	Success bool `json:"success"`

	// State is the terminal run state: "done" or "aborted".
	State string `json:"state"`

	// Items holds the extracted records in interaction order.
	Items []MenuItemRecord `json:"items"`

	// Containers is the number of virtualized containers discovered.
	Containers int `json:"containers"`

	// Total is the number of items enumerated. Always equals
	// len(Items) + len(Failures).
	Total int `json:"total"`

	// Failures lists every skipped item.
	Failures []ItemFailure `json:"failures"`

	// Duplicates groups indices into Items whose content is near-identical.
	// Nothing is removed; this is informational.
	Duplicates [][]int `json:"duplicates,omitempty"`

	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated when the run aborted.
	Error *ErrorDetail `json:"error,omitempty"`
}

// Skipped returns the number of skipped items.
func (r *ExtractResponse) Skipped() int {
	return len(r.Failures)
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// NavigationMs covers environment start, connect and page load.
	NavigationMs int64 `json:"navigation_ms"`

	// ExtractionMs covers the scan and every item cycle.
	ExtractionMs int64 `json:"extraction_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string   `json:"status"` // "healthy" or "degraded"
	Uptime   string   `json:"uptime"`
	RunStats RunStats `json:"run_stats"`
	Version  string   `json:"version"`
}

// RunStats reports how many extraction runs are in flight.
type RunStats struct {
	MaxRuns    int `json:"max_runs"`
	ActiveRuns int `json:"active_runs"`
}
