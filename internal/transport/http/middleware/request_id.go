package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/clientdesk/internal/infra/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with a correlation id, honoring one supplied
// by an upstream proxy. The id rides the request context (consumed by the
// access log and logger.WithContext) and is echoed on the response so clients
// can quote it when reporting failed logins.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, id)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), logger.RequestIDKey{}, id))

		c.Next()
	}
}
