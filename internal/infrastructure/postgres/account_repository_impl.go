package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ramadhanik/account-service/internal/domain/entity"
	"github.com/ramadhanik/account-service/internal/domain/repository"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type AccountRepository struct {
	db DB
}

func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, email, password_hash, name, terms, date_of_birth, is_active, is_admin, last_login, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, name, terms, date_of_birth)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, is_admin, created_at, updated_at
	`, a.Email, a.PasswordHash, a.Name, a.Terms, a.DateOfBirth)

	if err := row.Scan(&a.ID, &a.IsActive, &a.IsAdmin, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	return r.scanOne(r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.scanOne(r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1
	`, email))
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $1, updated_at = $2
		WHERE id = $3
	`, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateLastLogin stamps last_login and returns the refreshed row.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id int64) (*entity.Account, error) {
	return r.scanOne(r.db.QueryRow(ctx, `
		UPDATE accounts
		SET last_login = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns+`
	`, id))
}

// EnsureAdmin upserts an administrator account and returns its id. The
// conflict target must name the lower(email) expression index, not the bare
// column, or Postgres rejects the statement.
func (r *AccountRepository) EnsureAdmin(ctx context.Context, email, passwordHash, name string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, name, terms, is_admin)
		VALUES ($1, $2, $3, TRUE, TRUE)
		ON CONFLICT ((lower(email))) DO UPDATE SET is_admin = TRUE
		RETURNING id
	`, email, passwordHash, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *AccountRepository) scanOne(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Terms, &a.DateOfBirth,
		&a.IsActive, &a.IsAdmin, &a.LastLogin, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
