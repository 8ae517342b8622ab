package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type IngestionJobsHandler struct {
	log     *logger.Logger
	jobRepo repos.IngestionJobRepo
}

func NewIngestionJobsHandler(baseLog *logger.Logger, jobRepo repos.IngestionJobRepo) *IngestionJobsHandler {
	return &IngestionJobsHandler{
		log:     baseLog.With("handler", "IngestionJobsHandler"),
		jobRepo: jobRepo,
	}
}

// GET /api/ingestion_jobs
func (h *IngestionJobsHandler) List(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}
	limit, offset := pageParams(c)

	jobs, err := h.jobRepo.List(c.Request.Context(), nil, &current, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_jobs_failed", err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs})
}

// GET /api/ingestion_jobs/:id
func (h *IngestionJobsHandler) GetByID(c *gin.Context) {
	job, ok := h.loadOwned(c)
	if !ok {
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// GET /api/ingestion_jobs/:id/status
//
// Polling shape for upload progress: just the lifecycle fields.
func (h *IngestionJobsHandler) Status(c *gin.Context) {
	job, ok := h.loadOwned(c)
	if !ok {
		return
	}
	RespondOK(c, gin.H{
		"status":      job.Status,
		"error":       job.Error,
		"started_at":  job.StartedAt,
		"finished_at": job.FinishedAt,
	})
}

func (h *IngestionJobsHandler) loadOwned(c *gin.Context) (*types.IngestionJob, bool) {
	current, ok := requireUser(c)
	if !ok {
		return nil, false
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return nil, false
	}

	job, err := h.jobRepo.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_job_failed", err)
		return nil, false
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("ingestion job %s not found", jobID))
		return nil, false
	}
	if job.OwnerID != nil && *job.OwnerID != current {
		RespondError(c, http.StatusForbidden, "not_job_owner", fmt.Errorf("not authorized for this job"))
		return nil, false
	}
	return job, true
}
