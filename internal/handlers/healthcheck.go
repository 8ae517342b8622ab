package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ReadyChecker is implemented by backing components that can probe their
// own connectivity.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// ModelStatus is the slice of the language-model client the readiness
// check needs. The model is never probed live; an unconfigured key just
// reports skipped.
type ModelStatus interface {
	Configured() bool
}

type componentStatus struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type ReadyHandler struct {
	db    *gorm.DB
	index ReadyChecker
	store ReadyChecker
	ai    ModelStatus
}

func NewReadyHandler(db *gorm.DB, index, store ReadyChecker, ai ModelStatus) *ReadyHandler {
	return &ReadyHandler{db: db, index: index, store: store, ai: ai}
}

// GET /ready
func (h *ReadyHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	checks := map[string]componentStatus{
		"database":       h.checkDatabase(ctx),
		"qdrant":         checkComponent(ctx, h.index),
		"object_storage": checkComponent(ctx, h.store),
		"openai":         h.checkModel(),
	}

	status := "ok"
	for _, result := range checks {
		if result.Status != "ok" {
			status = "degraded"
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "checks": checks})
}

func (h *ReadyHandler) checkDatabase(ctx context.Context) componentStatus {
	if h.db == nil {
		return componentStatus{Status: "error", Detail: "database not configured"}
	}
	if err := h.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		return componentStatus{Status: "error", Detail: err.Error()}
	}
	return componentStatus{Status: "ok"}
}

func checkComponent(ctx context.Context, checker ReadyChecker) componentStatus {
	if checker == nil {
		return componentStatus{Status: "error", Detail: "not configured"}
	}
	if err := checker.Ready(ctx); err != nil {
		return componentStatus{Status: "error", Detail: err.Error()}
	}
	return componentStatus{Status: "ok"}
}

func (h *ReadyHandler) checkModel() componentStatus {
	if h.ai == nil || !h.ai.Configured() {
		return componentStatus{Status: "skipped", Detail: "API key not configured"}
	}
	return componentStatus{Status: "ok"}
}
