package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/core/port"
	"github.com/arklim/clientdesk/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Subject   string            `json:"subject,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType, subject string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	metadata := map[string]string{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Subject:   subject,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(subject),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSessionStarted publishes session.started events.
func (p *EventPublisher) PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error {
	payload := struct {
		SessionID string     `json:"session_id"`
		Subject   string     `json:"subject"`
		IP        string     `json:"ip,omitempty"`
		Roles     []string   `json:"roles"`
		IssuedAt  time.Time  `json:"issued_at"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}{
		SessionID: event.SessionID,
		Subject:   event.Subject,
		IP:        event.IP,
		Roles:     event.Roles,
		IssuedAt:  event.IssuedAt,
		ExpiresAt: event.ExpiresAt,
	}
	return p.publish(ctx, "session.started", event.Subject, event.IssuedAt, payload)
}

// PublishSessionRefreshed publishes session.refreshed events.
func (p *EventPublisher) PublishSessionRefreshed(ctx context.Context, event domain.SessionRefreshedEvent) error {
	payload := struct {
		SessionID   string     `json:"session_id"`
		Subject     string     `json:"subject"`
		RefreshedAt time.Time  `json:"refreshed_at"`
		ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	}{
		SessionID:   event.SessionID,
		Subject:     event.Subject,
		RefreshedAt: event.RefreshedAt,
		ExpiresAt:   event.ExpiresAt,
	}
	return p.publish(ctx, "session.refreshed", event.Subject, event.RefreshedAt, payload)
}

// PublishSessionRevoked publishes session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID string    `json:"session_id"`
		Subject   string    `json:"subject"`
		RevokedAt time.Time `json:"revoked_at"`
		Reason    string    `json:"reason,omitempty"`
	}{
		SessionID: event.SessionID,
		Subject:   event.Subject,
		RevokedAt: event.RevokedAt,
		Reason:    event.Reason,
	}
	return p.publish(ctx, "session.revoked", event.Subject, event.RevokedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
