package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/clientdesk/internal/transport/http/middleware"
)

// AccountHandler serves the account projection endpoints.
type AccountHandler struct {
	logger *zap.Logger
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(log *zap.Logger) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountHandler{logger: log}
}

// Describe handles GET /api/v1/account. The account aggregate is attached to
// the request by the auth chain; the handler only shapes the response.
func (h *AccountHandler) Describe(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	c.JSON(http.StatusOK, newAccountResponse(account))
}
