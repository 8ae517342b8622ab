package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type QueryLogsHandler struct {
	log          *logger.Logger
	queryLogRepo repos.QueryLogRepo
}

func NewQueryLogsHandler(baseLog *logger.Logger, queryLogRepo repos.QueryLogRepo) *QueryLogsHandler {
	return &QueryLogsHandler{
		log:          baseLog.With("handler", "QueryLogsHandler"),
		queryLogRepo: queryLogRepo,
	}
}

// GET /api/query_logs
func (h *QueryLogsHandler) List(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}
	target := current
	if override := strings.TrimSpace(c.Query("user_id")); override != "" {
		target = override
	}
	limit, offset := pageParams(c)

	logs, err := h.queryLogRepo.List(c.Request.Context(), nil, &target, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_query_logs_failed", err)
		return
	}
	RespondOK(c, gin.H{"query_logs": logs})
}
