package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorCase binds a sentinel error to the HTTP status and message it should
// produce.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError walks the cases in order and writes the first match.
// Unmatched errors are logged and collapsed into an opaque 500 so internal
// failure detail never reaches the client.
func RespondWithMappedError(c *gin.Context, log *zap.Logger, err error, cases ...ErrorCase) {
	for _, cs := range cases {
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	if log != nil {
		log.Error("unhandled request error", zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
}
