package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/repository"
)

func newMockRepository(t *testing.T) (*AccountRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	return newAccountRepository(mock), mock
}

func TestAccountRepository_Resolve(t *testing.T) {
	repo, mock := newMockRepository(t)

	createdAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, email, display_name, status, created_at FROM accounts").
		WithArgs("account-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "display_name", "status", "created_at"}).
			AddRow("account-1", "jo@example.com", "Jo", domain.AccountStatusActive, createdAt))

	mock.ExpectQuery("SELECT r.name FROM account_roles ar JOIN roles r").
		WithArgs("account-1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("ADMIN").AddRow("CLIENT"))

	account, err := repo.Resolve(context.Background(), "account-1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if account.Email != "jo@example.com" || !account.IsActive() {
		t.Fatalf("unexpected account: %+v", account)
	}
	if len(account.Roles) != 2 || account.Roles[0] != "ADMIN" {
		t.Fatalf("unexpected roles: %v", account.Roles)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_ResolveMissing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT id, email, display_name, status, created_at FROM accounts").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "display_name", "status", "created_at"}))

	_, err := repo.Resolve(context.Background(), "ghost")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_PasswordHash(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT password_hash FROM accounts").
		WithArgs("account-1").
		WillReturnRows(pgxmock.NewRows([]string{"password_hash"}).AddRow("$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"))

	hash, err := repo.PasswordHash(context.Background(), "account-1")
	if err != nil {
		t.Fatalf("PasswordHash returned error: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected a stored hash")
	}
}
