package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

type accountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository backed by Postgres.
func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, username, email, password_hash, avatar_url, avatar_object, created_at`

func scanAccount(row scanner) (*entity.Account, error) {
	var a entity.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.AvatarURL, &a.AvatarObject, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) Create(ctx context.Context, a *entity.Account) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (id, username, email, password_hash, avatar_url, avatar_object)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		a.ID, a.Username, a.Email, a.PasswordHash, a.AvatarURL, a.AvatarObject,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", classify(err))
	}
	return nil
}

func (r *accountRepository) Update(ctx context.Context, a *entity.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET username = $1, email = $2, password_hash = $3, avatar_url = $4, avatar_object = $5 WHERE id = $6`,
		a.Username, a.Email, a.PasswordHash, a.AvatarURL, a.AvatarObject, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", classify(err))
	}
	return requireAffected(res)
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, strings.TrimSpace(email))
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *accountRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1 AND id <> $2)`, email, exceptID)
}

func (r *accountRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1 AND id <> $2)`, username, exceptID)
}

func (r *accountRepository) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check account uniqueness: %w", err)
	}
	return ok, nil
}
