package http

import (
	"context"
	"errors"
	"net/http"

	"insightgen/backend/internal/features/headlines/application"
	"insightgen/backend/internal/features/headlines/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobHandler holds the headline service and the job store.
type JobHandler struct {
	headlineService application.HeadlineService
	jobs            *application.JobStore
	logger          *zap.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(headlineService application.HeadlineService, jobs *application.JobStore, logger *zap.Logger) *JobHandler {
	return &JobHandler{headlineService: headlineService, jobs: jobs, logger: logger}
}

// StartJobHandler accepts a deck payload and starts processing it in
// the background, returning the job id immediately.
func (h *JobHandler) StartJobHandler(c *gin.Context) {
	var req domain.DeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Slides) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one slide is required"})
		return
	}

	jobID := uuid.NewString()
	job := h.jobs.Create(jobID, "Deck received, processing started")

	// The request context dies with this handler; the run gets its own.
	go h.runJob(context.Background(), jobID, &req)

	c.JSON(http.StatusOK, gin.H{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": job.Message,
	})
}

func (h *JobHandler) runJob(ctx context.Context, jobID string, req *domain.DeckRequest) {
	slides, metrics, err := h.headlineService.ProcessDeck(ctx, req)
	if err != nil {
		h.logger.Error("deck processing failed", zap.String("job_id", jobID), zap.Error(err))
		h.jobs.Fail(jobID, err.Error())
		return
	}
	h.jobs.Complete(jobID, slides, metrics)
	h.logger.Info("deck processing completed",
		zap.String("job_id", jobID),
		zap.Int("headlines_generated", metrics.HeadlinesGenerated),
		zap.Int("errors", metrics.Errors))
}

// JobStatusHandler reports the status and metrics of a job without the
// slide payload.
func (h *JobHandler) JobStatusHandler(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	job.Slides = nil
	c.JSON(http.StatusOK, job)
}

// JobResultHandler returns the processed slides of a completed job.
func (h *JobHandler) JobResultHandler(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if job.Status != domain.JobCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job not completed yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":  job.ID,
		"slides":  job.Slides,
		"metrics": job.Metrics,
	})
}

// ListJobsHandler lists all jobs with their status.
func (h *JobHandler) ListJobsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.jobs.List()})
}

// DeleteJobHandler removes a job and its stored result.
func (h *JobHandler) DeleteJobHandler(c *gin.Context) {
	if err := h.jobs.Delete(c.Param("id")); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job deleted successfully"})
}
