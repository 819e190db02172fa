package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/clientdesk/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID propagation.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key for trace ID.
	TraceIDKey = "trace_id"

	authStateKey = "clientdesk/auth_state"
)

// AuthFailure records why credential extraction or lookup did not yield a
// session. Set during Authenticate, consumed by the gates that actually
// require authentication.
type AuthFailure string

const (
	// AuthFailureNone means no failure has been recorded.
	AuthFailureNone AuthFailure = ""
	// AuthFailureNoCredentials means the request presented no credentials at
	// all (including malformed ones, which are deliberately indistinguishable).
	AuthFailureNoCredentials AuthFailure = "no_credentials"
	// AuthFailureInvalidCredentials means credentials were presented but did
	// not resolve to a live session.
	AuthFailureInvalidCredentials AuthFailure = "invalid_credentials"
)

// AuthState is the typed per-request authentication state, set at most once
// per request by Authenticate.
type AuthState struct {
	Session   *domain.Session
	Failure   AuthFailure
	attempted bool
	account   *domain.Account
}

func authState(c *gin.Context) *AuthState {
	if value, exists := c.Get(authStateKey); exists {
		if state, ok := value.(*AuthState); ok {
			return state
		}
	}

	state := &AuthState{}
	c.Set(authStateKey, state)
	return state
}

// SessionFromContext returns the authenticated session attached to the
// request, if any.
func SessionFromContext(c *gin.Context) (*domain.Session, bool) {
	state := authState(c)
	if state.Session == nil {
		return nil, false
	}
	return state.Session, true
}

// AccountFromContext returns the resolved account aggregate attached by
// IncludeAccount, if any.
func AccountFromContext(c *gin.Context) (*domain.Account, bool) {
	state := authState(c)
	if state.account == nil {
		return nil, false
	}
	return state.account, true
}

// EnrichContext assigns a trace ID to each request and echoes it back.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}
