package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/analysis"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type AnalysisHandler struct {
	log      *logger.Logger
	analysis analysis.Service
	jobRepo  repos.AnalysisJobRepo
}

func NewAnalysisHandler(
	baseLog *logger.Logger,
	analysisService analysis.Service,
	jobRepo repos.AnalysisJobRepo,
) *AnalysisHandler {
	return &AnalysisHandler{
		log:      baseLog.With("handler", "AnalysisHandler"),
		analysis: analysisService,
		jobRepo:  jobRepo,
	}
}

type analysisRequest struct {
	TaskType        string   `json:"task_type"`
	Question        *string  `json:"question"`
	DocumentIDs     []string `json:"document_ids"`
	MaxChunksPerDoc int      `json:"max_chunks_per_doc"`
}

// POST /api/analysis
//
// Records a pending job and returns immediately; the background worker
// runs the report and writes the result onto the row.
func (h *AnalysisHandler) Start(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}

	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	docIDs := make([]uuid.UUID, 0, len(req.DocumentIDs))
	for _, raw := range req.DocumentIDs {
		docID, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
			return
		}
		docIDs = append(docIDs, docID)
	}

	job, err := h.analysis.Enqueue(c.Request.Context(), analysis.EnqueueInput{
		OwnerID:         &current,
		TaskType:        req.TaskType,
		Question:        req.Question,
		DocumentIDs:     docIDs,
		MaxChunksPerDoc: req.MaxChunksPerDoc,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "enqueue_analysis_failed", err)
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// GET /api/analysis
func (h *AnalysisHandler) List(c *gin.Context) {
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

// GET /api/analysis/:id
func (h *AnalysisHandler) GetByID(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}

	job, err := h.jobRepo.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_job_failed", err)
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("analysis job %s not found", jobID))
		return
	}
	if job.OwnerID != nil && *job.OwnerID != current {
		RespondError(c, http.StatusForbidden, "not_job_owner", fmt.Errorf("not authorized for this job"))
		return
	}
	RespondOK(c, gin.H{"job": job})
}
