// Package handlers holds the gin handlers behind the document QA API.
// Failures share one envelope so clients can always read error.message
// and error.code.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/middleware"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// pageParams reads limit/offset query parameters with the bounds every
// list endpoint shares: limit defaults to 50 and is clamped to [1,200],
// offset is never negative.
func pageParams(c *gin.Context) (limit, offset int) {
	limit = 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	return limit, offset
}

// requireUser returns the identity the auth middleware attached. A miss
// means the route was mounted outside the guarded group.
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok || userID == "" {
		RespondError(c, http.StatusUnauthorized, "unauthenticated",
			fmt.Errorf("no authenticated user on request"))
		return "", false
	}
	return userID, true
}
