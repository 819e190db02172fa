package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/clientdesk/internal/core/port"
	"github.com/arklim/clientdesk/internal/repository"
)

// ErrorResponse mirrors the handlers error payload so the auth gates can
// respond without importing the handlers package.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// Authenticate runs credential extraction and session lookup at most once per
// request. Extractors are tried in order; the first one that finds usable
// credentials wins. Lookup failures are recorded on the request state rather
// than failing the request, so optional-auth endpoints can proceed as
// anonymous. Store outages abort with a 5xx instead of deauthenticating.
func Authenticate(log *zap.Logger, extractors ...CredentialExtractor) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		state := authState(c)
		if state.attempted {
			c.Next()
			return
		}
		state.attempted = true

		var resolver SessionResolver
		for _, extract := range extractors {
			if r, ok := extract(c); ok {
				resolver = r
				break
			}
		}

		if resolver == nil {
			state.Failure = AuthFailureNoCredentials
			c.Next()
			return
		}

		session, err := resolver(c.Request.Context())
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				state.Failure = AuthFailureInvalidCredentials
			case errors.Is(err, repository.ErrUnavailable):
				log.Error("session lookup failed: store unavailable", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable,
					newErrorResponse(c, "session store unavailable"))
				return
			default:
				log.Error("session lookup failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
				return
			}
		} else {
			state.Session = session
		}

		c.Next()
	}
}

// RequireAuthentication fails the request unless a session is attached.
// The 401 body distinguishes "nothing was presented" from "what was presented
// did not resolve".
func RequireAuthentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := authState(c)
		if state.Session == nil {
			abortUnauthenticated(c, state)
			return
		}
		c.Next()
	}
}

// RequireRoles builds on RequireAuthentication and fails with 403 unless the
// session's role snapshot intersects the required set.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := authState(c)
		if state.Session == nil {
			abortUnauthenticated(c, state)
			return
		}

		if !state.Session.HasAnyRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient role"))
			return
		}

		c.Next()
	}
}

// IncludeAccount resolves the full account aggregate for the authenticated
// subject and attaches it to the request. The resolution is cached on the
// request state so repeated gates in one chain hit the resolver once.
func IncludeAccount(resolver port.AccountResolver, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		state := authState(c)
		if state.Session == nil {
			abortUnauthenticated(c, state)
			return
		}

		if state.account != nil {
			c.Next()
			return
		}

		account, err := resolver.Resolve(c.Request.Context(), state.Session.Subject)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				// Session outlived its account; treat as stale credentials.
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "authentication failed"))
			case errors.Is(err, repository.ErrUnavailable):
				log.Error("account resolution failed: store unavailable", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable,
					newErrorResponse(c, "account store unavailable"))
			default:
				log.Error("account resolution failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "account resolution failed"))
			}
			return
		}

		state.account = account
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, state *AuthState) {
	message := "authentication required"
	if state.Failure == AuthFailureInvalidCredentials {
		message = "invalid or expired credentials"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, message))
}
