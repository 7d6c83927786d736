package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tsena-dev/backend/internal/domain/account"
)

const (
	getAccountByIDSQL = `SELECT id, email, name, role, created_at
		FROM accounts WHERE id = $1`

	createAccountSQL = `INSERT INTO accounts (id, email, name, role)
		VALUES ($1, $2, $3, $4)`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository backed by PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByID returns a single account by its identifier. Malformed ids read as
// not found rather than erroring at the database.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, account.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, getAccountByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting account %q: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("getting account %q: %w", id, err)
	}
	return &a, nil
}

// Create persists a new account.
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	_, err := r.pool.Exec(ctx, createAccountSQL, a.ID, a.Email, a.Name, string(a.Role))
	if err != nil {
		return fmt.Errorf("creating account %q: %w", a.ID, err)
	}
	return nil
}

func scanAccount(row pgx.CollectableRow) (account.Account, error) {
	var (
		a    account.Account
		role string
	)
	err := row.Scan(&a.ID, &a.Email, &a.Name, &role, &a.CreatedAt)
	a.Role = account.Role(role)
	return a, err
}
