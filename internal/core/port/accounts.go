package port

import (
	"context"

	"github.com/arklim/clientdesk/internal/core/domain"
)

// AccountResolver loads account aggregates for session subjects. Resolution
// failures follow the repository error contract: ErrNotFound for unknown
// accounts, ErrUnavailable for backing store outages.
type AccountResolver interface {
	Resolve(ctx context.Context, id string) (*domain.Account, error)
	ResolveByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// CredentialVerifier checks a primary credential for a subject. An unknown
// subject or wrong credential verifies as false; errors are reserved for
// verification infrastructure failures.
type CredentialVerifier interface {
	VerifyPassword(ctx context.Context, subject, plaintext string) (bool, error)
}
