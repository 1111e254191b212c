package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/tally/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is what the services persist accounts through. Drivers implement
// it; a Tx offers the same repositories and cannot open a nested Tx.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx begins a transaction. Commit or Rollback must follow.
	Tx(ctx context.Context) (Tx, error)

	// WithTx commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping backs the readiness probe.
	Ping(ctx context.Context) error
}

// Tx is a Store bound to one transaction.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser fails with ErrAlreadyExists when the email is taken.
	// Callers assign u.ID.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash replaces the stored hash and touches updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
}
