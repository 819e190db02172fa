package port

import (
	"context"

	"github.com/arklim/clientdesk/internal/core/domain"
)

// EventPublisher broadcasts session lifecycle changes to interested systems.
type EventPublisher interface {
	PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error
	PublishSessionRefreshed(ctx context.Context, event domain.SessionRefreshedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
}
