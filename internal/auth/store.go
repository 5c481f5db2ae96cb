package auth

import "context"

// UserStore persists user records. Implementations must enforce username
// and email uniqueness atomically at the storage layer: a second Create
// with a colliding value fails with ErrDuplicateUsername or
// ErrDuplicateEmail even under concurrent writers. A separate
// exists-then-insert sequence is not an acceptable implementation.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// LinkProvider records the federated provider subject for an
	// existing user and marks the account as provider-managed.
	LinkProvider(ctx context.Context, userID string, provider Provider, providerID string) error
}
