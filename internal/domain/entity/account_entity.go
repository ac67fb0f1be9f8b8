package entity

import (
	"time"
)

// Account is the aggregate root for the account domain.
// PasswordHash holds the bcrypt hash and must never be serialized outward.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Terms        bool
	DateOfBirth  *time.Time
	IsActive     bool
	IsAdmin      bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
