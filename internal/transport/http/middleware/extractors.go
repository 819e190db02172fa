package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/core/port"
)

// SessionResolver performs the deferred store lookup for extracted
// credentials. Extraction never touches the store; requests with no
// credentials must not pay for a round trip.
type SessionResolver func(ctx context.Context) (*domain.Session, error)

// CredentialExtractor parses a transport credential out of the request.
// It reports whether usable credentials were present; malformed credentials
// count as absent so the wire format is never leaked through error messages.
type CredentialExtractor func(c *gin.Context) (SessionResolver, bool)

// CookieExtractor reads the session cookie, which carries the subject and
// session id as a colon-delimited pair addressing the id index.
func CookieExtractor(store port.SessionStore, cookieName string) CredentialExtractor {
	return func(c *gin.Context) (SessionResolver, bool) {
		raw, err := c.Cookie(cookieName)
		if err != nil || raw == "" {
			return nil, false
		}

		subject, id, ok := strings.Cut(raw, ":")
		if !ok || subject == "" || id == "" {
			return nil, false
		}

		return func(ctx context.Context) (*domain.Session, error) {
			return store.GetByID(ctx, subject, id)
		}, true
	}
}

// BearerExtractor reads the Authorization header, accepting exactly the form
// "Bearer <token>" with a case-insensitive scheme.
func BearerExtractor(store port.SessionStore) CredentialExtractor {
	return func(c *gin.Context) (SessionResolver, bool) {
		header := c.GetHeader("Authorization")
		if header == "" {
			return nil, false
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return nil, false
		}

		token := parts[1]
		return func(ctx context.Context) (*domain.Session, error) {
			return store.GetByToken(ctx, token)
		}, true
	}
}
