package port

import (
	"context"
	"time"

	"github.com/arklim/clientdesk/internal/core/domain"
)

// SessionStore persists session records under two independent indexes: a
// record entry addressed by (subject, id) and a redirect entry addressed by
// the opaque bearer token. Implementations keep both indexes consistent; a
// record is either reachable through both or through neither.
//
// Lookup methods return repository.ErrNotFound for absent or logically
// expired records and repository.ErrUnavailable when the backing store cannot
// be reached. Callers must treat the two very differently: an outage never
// means "no session".
type SessionStore interface {
	// Put writes the record under both indexes atomically.
	Put(ctx context.Context, session domain.Session) error

	// GetByID resolves the record entry for the cookie flow.
	GetByID(ctx context.Context, subject, id string) (*domain.Session, error)

	// GetByToken resolves through the token redirect for the bearer flow.
	GetByToken(ctx context.Context, token string) (*domain.Session, error)

	// Delete removes the record from both indexes, reporting whether a record
	// was actually present. Deleting an absent record is not an error.
	Delete(ctx context.Context, session domain.Session) (bool, error)

	// Refresh slides the expiration window forward by newDuration, preserving
	// id, token and role snapshot. Refreshing a non-expiring session is a
	// no-op; refreshing an absent or expired one yields ErrNotFound.
	Refresh(ctx context.Context, session domain.Session, newDuration time.Duration) (*domain.Session, error)
}
