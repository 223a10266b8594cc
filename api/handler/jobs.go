package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/menugrab/models"
	"github.com/use-agent/menugrab/webhook"
)

// jobTTL is how long a job stays retrievable after it was created.
const jobTTL = time.Hour

// JobStore holds in-flight and finished extraction jobs. Jobs are stored
// as immutable snapshots; a status change replaces the stored value.
type JobStore struct {
	jobs    sync.Map // id -> *models.Job
	webhook *webhook.Sender
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewJobStore creates a JobStore and starts expiring old jobs until ctx is
// done.
func NewJobStore(ctx context.Context, sender *webhook.Sender, logger *slog.Logger) *JobStore {
	if logger == nil {
		logger = slog.Default()
	}
	if sender == nil {
		sender = &webhook.Sender{Logger: logger}
	}
	s := &JobStore{webhook: sender, logger: logger}
	go s.expireLoop(ctx)
	return s
}

// Get returns the job with id.
func (s *JobStore) Get(id string) (*models.Job, bool) {
	v, ok := s.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*models.Job), true
}

// Wait blocks until every started job has finished.
func (s *JobStore) Wait() {
	s.wg.Wait()
}

func (s *JobStore) expire(cutoff time.Time) {
	s.jobs.Range(func(key, value any) bool {
		if value.(*models.Job).CreatedAt < cutoff.Unix() {
			s.jobs.Delete(key)
		}
		return true
	})
}

func (s *JobStore) expireLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.expire(time.Now().Add(-jobTTL))
		case <-ctx.Done():
			return
		}
	}
}

// start registers a job for req and runs it in the background.
func (s *JobStore) start(ex Extractor, req models.ExtractRequest) *models.Job {
	job := &models.Job{
		ID:        "job-" + uuid.NewString(),
		Status:    models.JobProcessing,
		URL:       req.URL,
		CreatedAt: time.Now().Unix(),
	}
	s.jobs.Store(job.ID, job)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ex, *job, req)
	}()
	return job
}

// run executes the extraction detached from the submitting request.
func (s *JobStore) run(ex Extractor, job models.Job, req models.ExtractRequest) {
	resp, err := ex.Extract(context.Background(), &req)
	if resp == nil {
		resp = &models.ExtractResponse{State: models.StateAborted}
		if err != nil {
			resp.Error = models.AsScrapeError(err).ToDetail()
		}
	}

	job.Status = models.JobStatusFor(resp)
	job.DoneAt = time.Now().Unix()
	job.Result = resp
	s.jobs.Store(job.ID, &job)

	s.logger.Info("extraction job finished",
		"id", job.ID,
		"status", job.Status,
		"total", resp.Total,
		"skipped", resp.Skipped(),
	)

	if req.WebhookURL != "" {
		eventType := webhook.EventExtractionCompleted
		if job.Status == models.JobFailed {
			eventType = webhook.EventExtractionFailed
		}
		s.webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      eventType,
			JobID:     job.ID,
			Timestamp: job.DoneAt,
			Data:      &job,
		}, nil)
	}
}

// PostJob returns a handler for POST /api/v1/jobs. It answers immediately
// with the job id; the result is fetched with GET /api/v1/jobs/:id.
func PostJob(ex Extractor, store *JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, err)
			return
		}
		req.Defaults()

		job := store.start(ex, req)
		c.JSON(http.StatusAccepted, models.JobResponse{ID: job.ID, Status: job.Status})
	}
}

// GetJob returns a handler for GET /api/v1/jobs/:id.
func GetJob(store *JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := store.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "job not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}
