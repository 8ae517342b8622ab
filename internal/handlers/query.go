package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/retrieval"
)

type QueryHandler struct {
	log       *logger.Logger
	retrieval retrieval.Service
}

func NewQueryHandler(baseLog *logger.Logger, retrievalService retrieval.Service) *QueryHandler {
	return &QueryHandler{
		log:       baseLog.With("handler", "QueryHandler"),
		retrieval: retrievalService,
	}
}

type queryRequest struct {
	Question       string   `json:"question" binding:"required"`
	ConversationID *string  `json:"conversation_id"`
	TopK           int      `json:"top_k"`
	DocumentIDs    []string `json:"document_ids"`
	MinScore       *float64 `json:"min_score"`
	UserID         *string  `json:"user_id"`
}

// POST /api/query
func (h *QueryHandler) Query(c *gin.Context) {
	in, ok := h.bindAsk(c, nil)
	if !ok {
		return
	}

	res, err := h.retrieval.Answer(c.Request.Context(), in)
	if err != nil {
		respondQueryError(c, err)
		return
	}
	RespondOK(c, res)
}

// POST /api/query/stream
//
// Streams the completion as SSE: one "delta" event per model fragment and
// a final "done" event carrying the same envelope the plain query returns.
// Errors before the first byte are plain JSON; after that they arrive as
// an "error" event since the status line is already gone.
func (h *QueryHandler) QueryStream(c *gin.Context) {
	in, ok := h.bindAsk(c, nil)
	if !ok {
		return
	}

	streaming := false
	emit := func(event string, payload any) {
		if !streaming {
			streaming = true
			c.Writer.Header().Set("Cache-Control", "no-cache")
			c.Writer.Header().Set("Connection", "keep-alive")
		}
		c.SSEvent(event, payload)
		c.Writer.Flush()
	}

	res, err := h.retrieval.StreamAnswer(c.Request.Context(), in, func(delta string) {
		emit("delta", gin.H{"text": delta})
	})
	if err != nil {
		if streaming {
			h.log.Warn("stream failed mid-flight", "error", err)
			emit("error", gin.H{"message": err.Error()})
			return
		}
		respondQueryError(c, err)
		return
	}
	emit("done", res)
}

// POST /api/conversations/:id/query
//
// Same as /api/query with the conversation taken from the path; a
// conversation_id in the body is ignored in favor of the path.
func (h *QueryHandler) QueryConversation(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}

	in, ok := h.bindAsk(c, &convID)
	if !ok {
		return
	}

	res, err := h.retrieval.Answer(c.Request.Context(), in)
	if err != nil {
		respondQueryError(c, err)
		return
	}
	RespondOK(c, res)
}

// bindAsk validates the request body into an AskInput. A false return means
// the error response was already written. forceConv pins the conversation
// regardless of the body.
func (h *QueryHandler) bindAsk(c *gin.Context, forceConv *uuid.UUID) (retrieval.AskInput, bool) {
	var zero retrieval.AskInput

	current, ok := requireUser(c)
	if !ok {
		return zero, false
	}

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return zero, false
	}
	if strings.TrimSpace(req.Question) == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("question required"))
		return zero, false
	}

	in := retrieval.AskInput{
		Question: req.Question,
		TopK:     req.TopK,
		MinScore: req.MinScore,
	}

	if forceConv != nil {
		in.ConversationID = forceConv
	} else if req.ConversationID != nil && *req.ConversationID != "" {
		convID, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
			return zero, false
		}
		in.ConversationID = &convID
	}

	for _, raw := range req.DocumentIDs {
		docID, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
			return zero, false
		}
		in.DocumentIDs = append(in.DocumentIDs, docID)
	}

	if req.UserID != nil && *req.UserID != "" {
		in.UserID = req.UserID
	} else {
		in.UserID = &current
	}
	return in, true
}

func respondQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrConversationNotFound):
		RespondError(c, http.StatusNotFound, "conversation_not_found", err)
	case errors.Is(err, types.ErrEmbeddingUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "embedding_unavailable", err)
	default:
		RespondError(c, http.StatusInternalServerError, "query_failed", err)
	}
}
