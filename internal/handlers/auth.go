package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/auth"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type AuthHandler struct {
	log    *logger.Logger
	tokens *auth.Tokens
}

func NewAuthHandler(baseLog *logger.Logger, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{
		log:    baseLog.With("handler", "AuthHandler"),
		tokens: tokens,
	}
}

type loginRequest struct {
	UserID           string `json:"user_id" binding:"required"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

// POST /auth/login
//
// Demo login: signs a token for whatever user id the caller claims. Not an
// identity check; replace with a real identity provider before exposing it.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.ExpiresInMinutes <= 0 {
		req.ExpiresInMinutes = 60
	}

	token, err := h.tokens.Mint(req.UserID, time.Duration(req.ExpiresInMinutes)*time.Minute)
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			RespondError(c, http.StatusInternalServerError, "auth_not_configured", err)
			return
		}
		h.log.Error("token mint failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "token_mint_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}
