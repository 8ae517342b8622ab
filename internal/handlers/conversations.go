package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type ConversationsHandler struct {
	log *logger.Logger
	db  *gorm.DB

	conversationRepo repos.ConversationRepo
	messageRepo      repos.MessageRepo
	queryLogRepo     repos.QueryLogRepo
}

func NewConversationsHandler(
	baseLog *logger.Logger,
	db *gorm.DB,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	queryLogRepo repos.QueryLogRepo,
) *ConversationsHandler {
	return &ConversationsHandler{
		log:              baseLog.With("handler", "ConversationsHandler"),
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		queryLogRepo:     queryLogRepo,
	}
}

// GET /api/conversations
//
// Lists the caller's conversations newest-activity first. A user_id query
// parameter switches the target user, mirroring the development header.
func (h *ConversationsHandler) List(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}
	target := current
	if override := strings.TrimSpace(c.Query("user_id")); override != "" {
		target = override
	}
	limit, offset := pageParams(c)

	convs, err := h.conversationRepo.List(c.Request.Context(), nil, &target, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_conversations_failed", err)
		return
	}
	RespondOK(c, gin.H{"conversations": convs})
}

type createConversationRequest struct {
	Title *string `json:"title"`
}

// POST /api/conversations
func (h *ConversationsHandler) Create(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}

	// An empty body is a valid create; only malformed JSON is rejected.
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	conv, err := h.conversationRepo.Create(c.Request.Context(), nil, &types.Conversation{
		OwnerID: &current,
		Title:   req.Title,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "create_conversation_failed", err)
		return
	}
	RespondOK(c, gin.H{"conversation": conv})
}

// GET /api/conversations/:id
func (h *ConversationsHandler) GetByID(c *gin.Context) {
	conv, ok := h.loadOwned(c)
	if !ok {
		return
	}
	RespondOK(c, gin.H{"conversation": conv})
}

// GET /api/conversations/:id/messages
func (h *ConversationsHandler) Messages(c *gin.Context) {
	conv, ok := h.loadOwned(c)
	if !ok {
		return
	}

	msgs, err := h.messageRepo.ListByConversation(c.Request.Context(), nil, conv.ID, 0, 0)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_messages_failed", err)
		return
	}
	RespondOK(c, gin.H{"messages": msgs})
}

type updateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

// PATCH /api/conversations/:id/title
func (h *ConversationsHandler) UpdateTitle(c *gin.Context) {
	conv, ok := h.loadOwned(c)
	if !ok {
		return
	}

	var req updateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	ctx := c.Request.Context()
	err := h.conversationRepo.UpdateFields(ctx, nil, conv.ID, map[string]interface{}{
		"title": req.Title,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "update_conversation_failed", err)
		return
	}

	updated, err := h.conversationRepo.GetByID(ctx, nil, conv.ID)
	if err != nil || updated == nil {
		RespondError(c, http.StatusInternalServerError, "reload_conversation_failed", err)
		return
	}
	RespondOK(c, gin.H{"conversation": updated})
}

// DELETE /api/conversations/:id
//
// Query logs survive the delete with their conversation reference cleared;
// the messages go with the conversation.
func (h *ConversationsHandler) Delete(c *gin.Context) {
	conv, ok := h.loadOwned(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := h.queryLogRepo.DetachConversation(ctx, tx, conv.ID); err != nil {
			return fmt.Errorf("detach query logs: %w", err)
		}
		if err := h.messageRepo.DeleteByConversation(ctx, tx, conv.ID); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		return h.conversationRepo.Delete(ctx, tx, conv.ID)
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "delete_conversation_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}

// loadOwned resolves :id and applies the ownership guard shared by the
// single-conversation routes. A false return means the response was
// already written.
func (h *ConversationsHandler) loadOwned(c *gin.Context) (*types.Conversation, bool) {
	current, ok := requireUser(c)
	if !ok {
		return nil, false
	}

	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return nil, false
	}

	conv, err := h.conversationRepo.GetByID(c.Request.Context(), nil, convID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_conversation_failed", err)
		return nil, false
	}
	if conv == nil {
		RespondError(c, http.StatusNotFound, "conversation_not_found", types.ErrConversationNotFound)
		return nil, false
	}
	if conv.OwnerID != nil && *conv.OwnerID != current {
		RespondError(c, http.StatusForbidden, "not_conversation_owner", fmt.Errorf("not authorized for this conversation"))
		return nil, false
	}
	return conv, true
}
