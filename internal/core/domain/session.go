package domain

import "time"

// Session is the stored unit of authentication state. The ID travels in the
// session cookie together with the subject, the Token travels alone in the
// Authorization header; neither credential is derivable from the other.
type Session struct {
	ID        string
	Token     string
	Subject   string
	IssuedAt  time.Time
	Duration  time.Duration
	ExpiresAt *time.Time
	Roles     []string
	IP        string
}

// Expires reports whether the session was issued with a finite lifetime.
// Sessions with zero duration live until explicitly revoked.
func (s Session) Expires() bool {
	return s.ExpiresAt != nil
}

// HasExpired applies the logical-expiry rule: a session past its expiry moment
// is treated as absent even if the backing store has not reaped it yet.
func (s Session) HasExpired(at time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(at)
}

// HasAnyRole reports whether the role snapshot intersects the required set.
func (s Session) HasAnyRole(required ...string) bool {
	if len(required) == 0 {
		return true
	}
	held := make(map[string]struct{}, len(s.Roles))
	for _, role := range s.Roles {
		held[role] = struct{}{}
	}
	for _, role := range required {
		if _, ok := held[role]; ok {
			return true
		}
	}
	return false
}

// WithExpiry returns a copy carrying a recomputed lifetime anchored at the
// supplied moment. Used by refresh; id, token and roles are preserved.
func (s Session) WithExpiry(at time.Time, duration time.Duration) Session {
	refreshed := s
	refreshed.Duration = duration
	if duration > 0 {
		expiresAt := at.Add(duration)
		refreshed.ExpiresAt = &expiresAt
	} else {
		refreshed.ExpiresAt = nil
	}
	return refreshed
}
