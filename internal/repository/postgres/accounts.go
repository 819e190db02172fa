package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/clientdesk/internal/core/domain"
	"github.com/arklim/clientdesk/internal/repository"
)

// pgQuerier is the subset of pgxpool.Pool the repository needs. It also
// matches pgxmock, which backs the repository tests.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository is a read-only projection over the account tables owned by
// the client-record domain. The session subsystem resolves accounts through it
// but never writes them.
type AccountRepository struct {
	exec    pgQuerier
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account resolver.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(exec pgQuerier) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Resolve fetches the account aggregate for the supplied subject.
func (r *AccountRepository) Resolve(ctx context.Context, subject string) (*domain.Account, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, repository.ErrNotFound
	}
	return r.fetch(ctx, squirrel.Eq{"id": subject})
}

// ResolveByEmail fetches the account aggregate by its login email.
func (r *AccountRepository) ResolveByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if strings.TrimSpace(email) == "" {
		return nil, repository.ErrNotFound
	}
	return r.fetch(ctx, squirrel.Expr("lower(email) = lower(?)", email))
}

// PasswordHash returns the stored credential hash for the subject, consumed by
// the credential verifier ahead of session issuance.
func (r *AccountRepository) PasswordHash(ctx context.Context, subject string) (string, error) {
	query := r.builder.Select("password_hash").
		From("accounts").
		Where(squirrel.Eq{"id": subject})

	sql, args, err := query.ToSql()
	if err != nil {
		return "", fmt.Errorf("build password hash query: %w", err)
	}

	var hash string
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("query password hash: %w", err)
	}

	return hash, nil
}

func (r *AccountRepository) fetch(ctx context.Context, predicate any) (*domain.Account, error) {
	query := r.builder.Select("id", "email", "display_name", "status", "created_at").
		From("accounts").
		Where(predicate)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build account query: %w", err)
	}

	var account domain.Account
	row := r.exec.QueryRow(ctx, sql, args...)
	if err := row.Scan(&account.ID, &account.Email, &account.DisplayName, &account.Status, &account.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}

	roles, err := r.roles(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Roles = roles

	return &account, nil
}

func (r *AccountRepository) roles(ctx context.Context, accountID string) ([]string, error) {
	query := r.builder.Select("r.name").
		From("account_roles ar").
		Join("roles r ON r.id = ar.role_id").
		Where(squirrel.Eq{"ar.account_id": accountID}).
		OrderBy("r.name")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build roles query: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]string, 0, 4)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}
