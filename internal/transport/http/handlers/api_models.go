package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/transport/http/middleware"
)

// ErrorResponse is the uniform error payload for the API surface.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse builds an error payload carrying the request trace id.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// LoginRequest carries the credentials for session establishment.
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// SessionResponse is the public descriptor of a session. The bearer token is
// included only on creation; every later read returns the descriptor without
// it.
type SessionResponse struct {
	ID          string     `json:"id"`
	StartTime   time.Time  `json:"startTime"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Subject     string     `json:"subject"`
	Roles       []string   `json:"roles"`
	AccessToken string     `json:"accessToken,omitempty"`
}

// StatusResponse is the generic success acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse reports liveness or readiness of the service.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// AccountResponse is the public projection of an account aggregate.
type AccountResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Status      string    `json:"status"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newSessionResponse(session *domain.Session, includeToken bool) SessionResponse {
	roles := session.Roles
	if roles == nil {
		roles = []string{}
	}

	resp := SessionResponse{
		ID:        session.ID,
		StartTime: session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
		Subject:   session.Subject,
		Roles:     roles,
	}
	if includeToken {
		resp.AccessToken = session.Token
	}
	return resp
}

func newAccountResponse(account *domain.Account) AccountResponse {
	roles := account.Roles
	if roles == nil {
		roles = []string{}
	}

	return AccountResponse{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Status:      string(account.Status),
		Roles:       roles,
		CreatedAt:   account.CreatedAt,
	}
}
