package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured, typically in development.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging-only event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, subject string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("subject", subject),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishSessionStarted logs session.started events.
func (p *StubPublisher) PublishSessionStarted(_ context.Context, event domain.SessionStartedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"roles":      event.Roles,
		"expires_at": event.ExpiresAt,
	}
	p.logEvent("session.started", event.Subject, event.IssuedAt, payload)
	return nil
}

// PublishSessionRefreshed logs session.refreshed events.
func (p *StubPublisher) PublishSessionRefreshed(_ context.Context, event domain.SessionRefreshedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"expires_at": event.ExpiresAt,
	}
	p.logEvent("session.refreshed", event.Subject, event.RefreshedAt, payload)
	return nil
}

// PublishSessionRevoked logs session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"reason":     event.Reason,
	}
	p.logEvent("session.revoked", event.Subject, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
