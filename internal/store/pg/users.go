package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iprashant14/medimeet-backend/internal/auth"
	"github.com/iprashant14/medimeet-backend/internal/ids"
)

type UserStore struct {
	db *sql.DB
}

var _ auth.UserStore = (*UserStore)(nil)

func (us *UserStore) Create(ctx context.Context, u *auth.User) error {
	if us.db == nil {
		return errors.New("database connection unavailable")
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	err := us.db.QueryRowContext(ctx, `
		insert into users (id, username, email, password_hash, auth_provider, provider_id)
		values ($1, lower($2), lower($3), $4, $5, nullif($6,''))
		returning created_at, updated_at
	`, u.ID, u.Username, u.Email, u.PasswordHash, string(u.Provider), u.ProviderID).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			switch pgErr.ConstraintName {
			case emailConstraint:
				return auth.ErrDuplicateEmail
			default:
				return auth.ErrDuplicateUsername
			}
		}
		return err
	}
	return nil
}

const userColumns = `id, username, email, password_hash, auth_provider, coalesce(provider_id,''), created_at, updated_at`

func (us *UserStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return us.one(ctx, `select `+userColumns+` from users where id = $1`, id)
}

func (us *UserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return us.one(ctx, `select `+userColumns+` from users where username = lower($1)`, username)
}

func (us *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return us.one(ctx, `select `+userColumns+` from users where email = lower($1)`, email)
}

func (us *UserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return us.exists(ctx, `select exists(select 1 from users where username = lower($1))`, username)
}

func (us *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return us.exists(ctx, `select exists(select 1 from users where email = lower($1))`, email)
}

func (us *UserStore) LinkProvider(ctx context.Context, userID string, provider auth.Provider, providerID string) error {
	if us.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := us.db.ExecContext(ctx, `
		update users
		set auth_provider = $2, provider_id = $3, updated_at = now()
		where id = $1
	`, userID, string(provider), providerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (us *UserStore) one(ctx context.Context, query string, arg string) (*auth.User, error) {
	if us.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		u        auth.User
		provider string
	)
	err := us.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &provider, &u.ProviderID, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Provider = auth.Provider(provider)
	return &u, nil
}

func (us *UserStore) exists(ctx context.Context, query string, arg string) (bool, error) {
	if us.db == nil {
		return false, errors.New("database connection unavailable")
	}
	var found bool
	if err := us.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
