package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/core/port"
	"github.com/arklim/clientdesk/internal/infra/security"
)

const defaultCredentialBytes = 48

// SessionService is the only component allowed to create, refresh and revoke
// sessions. Policy lives here; the store stays a dumb dual-index keyspace.
type SessionService struct {
	store           port.SessionStore
	events          port.EventPublisher
	logger          *zap.Logger
	credentialBytes int
	now             func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(store port.SessionStore, events port.EventPublisher, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &SessionService{
		store:           store,
		events:          events,
		logger:          logger,
		credentialBytes: defaultCredentialBytes,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the internal clock for deterministic tests.
func (s *SessionService) WithClock(clock func() time.Time) *SessionService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// StartSessionInput carries issuance parameters for a new session.
type StartSessionInput struct {
	Subject  string
	IP       string
	Duration time.Duration
	Roles    []string
}

// StartSession mints a fresh id/token pair, persists the record under both
// indexes and publishes a lifecycle event. The raw token is returned to the
// caller exactly once; it is never recoverable afterwards.
func (s *SessionService) StartSession(ctx context.Context, in StartSessionInput) (*domain.Session, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if in.Duration < 0 {
		return nil, fmt.Errorf("duration must not be negative")
	}

	id, err := security.GenerateSecureToken(s.credentialBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	token, err := security.GenerateSecureToken(s.credentialBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	session := domain.Session{
		ID:       id,
		Token:    token,
		Subject:  in.Subject,
		IssuedAt: now,
		Roles:    append([]string(nil), in.Roles...),
		IP:       in.IP,
	}
	session = session.WithExpiry(now, in.Duration)

	if err := s.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.publishStarted(ctx, session)

	s.logger.Info("session started",
		zap.String("subject", session.Subject),
		zap.Timep("expires_at", session.ExpiresAt),
		zap.Strings("roles", session.Roles),
	)

	return &session, nil
}

// GetByID resolves a session via the cookie-flow index.
func (s *SessionService) GetByID(ctx context.Context, subject, id string) (*domain.Session, error) {
	return s.store.GetByID(ctx, subject, id)
}

// GetByToken resolves a session via the bearer-flow index.
func (s *SessionService) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return s.store.GetByToken(ctx, token)
}

// RefreshSession slides the expiration window forward, preserving id, token
// and role snapshot. Safe under concurrent calls for the same record: writes
// are last-write-wins and never torn, so the surviving expiry reflects one of
// the callers' extensions. Refreshing a non-expiring session is a no-op.
func (s *SessionService) RefreshSession(ctx context.Context, session domain.Session) (*domain.Session, error) {
	refreshed, err := s.store.Refresh(ctx, session, session.Duration)
	if err != nil {
		return nil, err
	}

	if refreshed.Expires() {
		s.publishRefreshed(ctx, *refreshed)
	}

	return refreshed, nil
}

// RevokeSession removes the record from both indexes. The returned flag tells
// the caller whether anything was actually removed; revoking an already-gone
// session is still a success.
func (s *SessionService) RevokeSession(ctx context.Context, session domain.Session) (bool, error) {
	removed, err := s.store.Delete(ctx, session)
	if err != nil {
		return false, err
	}

	if removed {
		s.publishRevoked(ctx, session)
	}

	s.logger.Info("session revoked",
		zap.String("subject", session.Subject),
		zap.Bool("removed", removed),
	)

	return removed, nil
}

func (s *SessionService) publishStarted(ctx context.Context, session domain.Session) {
	if s.events == nil {
		return
	}
	event := domain.SessionStartedEvent{
		SessionID: session.ID,
		Subject:   session.Subject,
		IP:        session.IP,
		Roles:     session.Roles,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.events.PublishSessionStarted(ctx, event); err != nil {
		s.logger.Warn("failed to publish session started event", zap.Error(err))
	}
}

func (s *SessionService) publishRefreshed(ctx context.Context, session domain.Session) {
	if s.events == nil {
		return
	}
	event := domain.SessionRefreshedEvent{
		SessionID:   session.ID,
		Subject:     session.Subject,
		RefreshedAt: s.now(),
		ExpiresAt:   session.ExpiresAt,
	}
	if err := s.events.PublishSessionRefreshed(ctx, event); err != nil {
		s.logger.Warn("failed to publish session refreshed event", zap.Error(err))
	}
}

func (s *SessionService) publishRevoked(ctx context.Context, session domain.Session) {
	if s.events == nil {
		return
	}
	event := domain.SessionRevokedEvent{
		SessionID: session.ID,
		Subject:   session.Subject,
		RevokedAt: s.now(),
		Reason:    "logout",
	}
	if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Warn("failed to publish session revoked event", zap.Error(err))
	}
}
