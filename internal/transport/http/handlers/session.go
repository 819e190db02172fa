package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/infra/config"
	"github.com/arklim/clientdesk/internal/repository"
	"github.com/arklim/clientdesk/internal/transport/http/middleware"
	"github.com/arklim/clientdesk/internal/usecase"
)

// SessionHandler serves the session lifecycle endpoints.
type SessionHandler struct {
	auth     *usecase.AuthService
	sessions *usecase.SessionService
	cookie   config.SessionSettings
	logger   *zap.Logger
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(auth *usecase.AuthService, sessions *usecase.SessionService, cookie config.SessionSettings, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{auth: auth, sessions: sessions, cookie: cookie, logger: log}
}

// Login handles POST /api/v1/session. On success it sets the session cookie
// and returns the descriptor with the bearer token. This is the only place
// the token crosses the wire.
func (h *SessionHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body"))
		return
	}

	session, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		IP:         c.ClientIP(),
		RememberMe: req.RememberMe,
	})
	if err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "credentials.invalid"},
			ErrorCase{Err: usecase.ErrInactiveAccount, Status: http.StatusUnauthorized, Message: "account.inactive"},
			ErrorCase{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "session store unavailable"},
		)
		return
	}

	h.setSessionCookie(c, session)
	c.JSON(http.StatusOK, newSessionResponse(session, true))
}

// Describe handles GET /api/v1/session, returning the descriptor of the
// authenticated session without the token.
func (h *SessionHandler) Describe(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session, false))
}

// Refresh handles PUT /api/v1/session, sliding the expiration window of the
// authenticated session forward and re-issuing the cookie to match.
func (h *SessionHandler) Refresh(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	refreshed, err := h.sessions.RefreshSession(c.Request.Context(), *session)
	if err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: repository.ErrNotFound, Status: http.StatusUnauthorized, Message: "invalid or expired credentials"},
			ErrorCase{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "session store unavailable"},
		)
		return
	}

	h.setSessionCookie(c, refreshed)
	c.JSON(http.StatusOK, newSessionResponse(refreshed, false))
}

// Logout handles DELETE /api/v1/session. Revocation is idempotent: the
// response is a success whether or not the record still existed, and the
// cookie is cleared either way. Note the route itself requires a live
// credential, so replaying a logout with an already-revoked token is
// rejected at the auth gate with 401 before reaching this handler.
func (h *SessionHandler) Logout(c *gin.Context) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if _, err := h.sessions.RevokeSession(c.Request.Context(), *session); err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "session store unavailable"},
		)
		return
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, StatusResponse{Status: "success"})
}

// ImpersonateRequest carries the target subject for an administrative
// impersonation session.
type ImpersonateRequest struct {
	Subject  string `json:"subject" binding:"required"`
	Duration int64  `json:"durationSeconds"`
}

// Impersonate handles POST /api/v1/admin/impersonate. The route is gated on
// the ADMIN role; the minted session is returned with its token but no cookie
// is set, so the operator's own session stays intact.
func (h *SessionHandler) Impersonate(c *gin.Context) {
	var req ImpersonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body"))
		return
	}

	session, err := h.auth.Impersonate(c.Request.Context(), req.Subject, c.ClientIP(), time.Duration(req.Duration)*time.Second)
	if err != nil {
		RespondWithMappedError(c, h.logger, err,
			ErrorCase{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "account not found"},
			ErrorCase{Err: usecase.ErrInactiveAccount, Status: http.StatusConflict, Message: "account is not active"},
			ErrorCase{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "session store unavailable"},
		)
		return
	}

	c.JSON(http.StatusCreated, newSessionResponse(session, true))
}

func (h *SessionHandler) setSessionCookie(c *gin.Context, session *domain.Session) {
	maxAge := 0
	if session.Expires() {
		maxAge = int(time.Until(*session.ExpiresAt).Seconds())
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		h.cookie.CookieName,
		session.Subject+":"+session.ID,
		maxAge,
		"/",
		h.cookie.CookieDomain,
		h.secureCookie(c),
		true,
	)
}

func (h *SessionHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.CookieName, "", -1, "/", h.cookie.CookieDomain, h.secureCookie(c), true)
}

func (h *SessionHandler) secureCookie(c *gin.Context) bool {
	return h.cookie.CookieSecure || c.Request.TLS != nil
}
