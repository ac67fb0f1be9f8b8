package repository

import (
	"context"
	"errors"

	"github.com/ramadhanik/account-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned when the unique email constraint rejects a create.
	ErrDuplicateEmail = errors.New("email already registered")
)

// AccountRepository defines the interface for account-related database operations.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id int64) (*entity.Account, error)
}
