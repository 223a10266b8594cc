package models

// Job statuses.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobPartial    = "partial"
	JobFailed     = "failed"
)

// Job is an asynchronous extraction run.
type Job struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	URL       string           `json:"url"`
	CreatedAt int64            `json:"created_at"`
	DoneAt    int64            `json:"done_at,omitempty"`
	Result    *ExtractResponse `json:"result,omitempty"`
}

// JobResponse is the response for POST /api/v1/jobs.
type JobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// JobStatusFor maps a finished response to a job status.
func JobStatusFor(resp *ExtractResponse) string {
	switch {
	case resp == nil || !resp.Success:
		return JobFailed
	case len(resp.Failures) > 0:
		return JobPartial
	default:
		return JobCompleted
	}
}
