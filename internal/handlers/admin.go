package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/config"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/ingestion"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type AdminHandler struct {
	log       *logger.Logger
	cfg       config.Config
	ingestion ingestion.Service
}

func NewAdminHandler(baseLog *logger.Logger, cfg config.Config, ingestionService ingestion.Service) *AdminHandler {
	return &AdminHandler{
		log:       baseLog.With("handler", "AdminHandler"),
		cfg:       cfg,
		ingestion: ingestionService,
	}
}

// POST /api/admin/reset
//
// Wipes every table, the vector collection and the bucket. Locked to
// dev-like environments.
func (h *AdminHandler) Reset(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}
	if !h.cfg.IsDevLike() {
		RespondError(c, http.StatusForbidden, "reset_forbidden",
			fmt.Errorf("reset not permitted outside development/test environments"))
		return
	}

	if err := h.ingestion.Reset(c.Request.Context()); err != nil {
		RespondError(c, http.StatusInternalServerError, "reset_failed", err)
		return
	}

	h.log.Warn("admin reset completed", "user_id", current)
	RespondOK(c, gin.H{"status": "reset complete"})
}
