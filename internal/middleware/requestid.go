package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/ctxutil"
)

const requestIDHeader = "X-Request-ID"

// AttachRequestContext tags every request with an id, taken from the
// X-Request-ID header when the caller supplied one, and echoes it back
// on the response so a failing call can be found in the logs.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{RequestID: requestID})
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}
