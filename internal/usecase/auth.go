package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/core/port"
	"github.com/arklim/clientdesk/internal/infra/logger"
	"github.com/arklim/clientdesk/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account may not authenticate.
	ErrInactiveAccount = errors.New("account is not active")
)

// AuthService owns login policy: it verifies the primary credential through
// the injected verifier, snapshots roles from the account aggregate and hands
// issuance to the SessionService.
type AuthService struct {
	accounts      port.AccountResolver
	verifier      port.CredentialVerifier
	sessions      *SessionService
	defaultTTL    time.Duration
	rememberMeTTL time.Duration
	logger        *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	accounts port.AccountResolver,
	verifier port.CredentialVerifier,
	sessions *SessionService,
	defaultTTL, rememberMeTTL time.Duration,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		accounts:      accounts,
		verifier:      verifier,
		sessions:      sessions,
		defaultTTL:    defaultTTL,
		rememberMeTTL: rememberMeTTL,
		logger:        log,
	}
}

// LoginInput carries the credentials presented to the login endpoint.
type LoginInput struct {
	Email      string
	Password   string
	IP         string
	RememberMe bool
}

// Login validates the credentials and starts a session for the account.
// The role set is snapshotted at issuance; later role changes on the account
// do not affect sessions already in flight.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*domain.Session, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.ResolveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("resolve account: %w", err)
	}

	ok, err := s.verifier.VerifyPassword(ctx, account.ID, in.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Info("login rejected",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("ip", logger.MaskIP(in.IP)),
		)
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive() {
		return nil, ErrInactiveAccount
	}

	duration := s.defaultTTL
	if in.RememberMe {
		duration = s.rememberMeTTL
	}

	return s.sessions.StartSession(ctx, StartSessionInput{
		Subject:  account.ID,
		IP:       in.IP,
		Duration: duration,
		Roles:    account.Roles,
	})
}

// Impersonate starts a session for an arbitrary subject without a credential
// check. Reserved for administrative flows; callers enforce authorization.
func (s *AuthService) Impersonate(ctx context.Context, subject, ip string, duration time.Duration) (*domain.Session, error) {
	account, err := s.accounts.Resolve(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	if !account.IsActive() {
		return nil, ErrInactiveAccount
	}

	if duration <= 0 {
		duration = s.defaultTTL
	}

	return s.sessions.StartSession(ctx, StartSessionInput{
		Subject:  account.ID,
		IP:       ip,
		Duration: duration,
		Roles:    account.Roles,
	})
}
