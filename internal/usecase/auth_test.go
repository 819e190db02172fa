package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/repository"
)

type fakeAccounts struct {
	byID    map[string]*domain.Account
	byEmail map[string]*domain.Account
}

func (f *fakeAccounts) Resolve(_ context.Context, id string) (*domain.Account, error) {
	if account, ok := f.byID[id]; ok {
		return account, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccounts) ResolveByEmail(_ context.Context, email string) (*domain.Account, error) {
	if account, ok := f.byEmail[email]; ok {
		return account, nil
	}
	return nil, repository.ErrNotFound
}

type fakeVerifier struct {
	password string
	err      error
}

func (f *fakeVerifier) VerifyPassword(_ context.Context, _ string, plaintext string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return plaintext == f.password, nil
}

func testAccount(status domain.AccountStatus) *domain.Account {
	return &domain.Account{
		ID:          "acct-1",
		Email:       "jordan@example.com",
		DisplayName: "Jordan",
		Status:      status,
		Roles:       []string{"USER", "SUPPORT"},
		CreatedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestAuthService(account *domain.Account, verifier *fakeVerifier) (*AuthService, *fakeSessionStore) {
	accounts := &fakeAccounts{
		byID:    map[string]*domain.Account{},
		byEmail: map[string]*domain.Account{},
	}
	if account != nil {
		accounts.byID[account.ID] = account
		accounts.byEmail[account.Email] = account
	}

	store := newFakeSessionStore(nil)
	sessions := NewSessionService(store, nil, nil)
	return NewAuthService(accounts, verifier, sessions, time.Hour, 14*24*time.Hour, nil), store
}

func TestLoginSuccess(t *testing.T) {
	service, _ := newTestAuthService(testAccount(domain.AccountStatusActive), &fakeVerifier{password: "hunter2"})

	session, err := service.Login(context.Background(), LoginInput{
		Email:    "jordan@example.com",
		Password: "hunter2",
		IP:       "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if session.Subject != "acct-1" {
		t.Fatalf("unexpected subject %q", session.Subject)
	}
	if session.ExpiresAt == nil || session.ExpiresAt.Sub(session.IssuedAt) != time.Hour {
		t.Fatal("expected default 1h lifetime")
	}
	if len(session.Roles) != 2 || session.Roles[0] != "USER" {
		t.Fatalf("expected role snapshot, got %v", session.Roles)
	}
}

func TestLoginRememberMeExtendsLifetime(t *testing.T) {
	service, _ := newTestAuthService(testAccount(domain.AccountStatusActive), &fakeVerifier{password: "hunter2"})

	session, err := service.Login(context.Background(), LoginInput{
		Email:      "jordan@example.com",
		Password:   "hunter2",
		RememberMe: true,
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got := session.ExpiresAt.Sub(session.IssuedAt); got != 14*24*time.Hour {
		t.Fatalf("expected 14d lifetime, got %v", got)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	service, store := newTestAuthService(testAccount(domain.AccountStatusActive), &fakeVerifier{password: "hunter2"})

	_, err := service.Login(context.Background(), LoginInput{
		Email:    "jordan@example.com",
		Password: "wrong",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if store.putCalls != 0 {
		t.Fatal("no session must be created on failed login")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	service, _ := newTestAuthService(testAccount(domain.AccountStatusActive), &fakeVerifier{password: "hunter2"})

	_, err := service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "hunter2",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	for _, status := range []domain.AccountStatus{domain.AccountStatusInactive, domain.AccountStatusBanned} {
		service, _ := newTestAuthService(testAccount(status), &fakeVerifier{password: "hunter2"})

		_, err := service.Login(context.Background(), LoginInput{
			Email:    "jordan@example.com",
			Password: "hunter2",
		})
		if !errors.Is(err, ErrInactiveAccount) {
			t.Fatalf("status %s: expected ErrInactiveAccount, got %v", status, err)
		}
	}
}

func TestLoginBlankCredentials(t *testing.T) {
	service, _ := newTestAuthService(testAccount(domain.AccountStatusActive), &fakeVerifier{password: "hunter2"})

	if _, err := service.Login(context.Background(), LoginInput{Email: " ", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for blank email, got %v", err)
	}
	if _, err := service.Login(context.Background(), LoginInput{Email: "jordan@example.com"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for blank password, got %v", err)
	}
}

func TestImpersonate(t *testing.T) {
	service, _ := newTestAuthService(testAccount(domain.AccountStatusActive), &fakeVerifier{})

	session, err := service.Impersonate(context.Background(), "acct-1", "198.51.100.4", 30*time.Minute)
	if err != nil {
		t.Fatalf("Impersonate failed: %v", err)
	}
	if got := session.ExpiresAt.Sub(session.IssuedAt); got != 30*time.Minute {
		t.Fatalf("expected 30m lifetime, got %v", got)
	}

	if _, err := service.Impersonate(context.Background(), "missing", "", 0); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown subject, got %v", err)
	}
}
