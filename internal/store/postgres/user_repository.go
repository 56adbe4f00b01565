package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfleet/openfleet/internal/identity"
)

// UserRepository implements identity.UserRepository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{pool: db.Pool()}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	query := `
		SELECT id, email, display_name, super_admin, active,
		       failed_login_attempts, locked_until, created_at, updated_at
		FROM users
		WHERE id = $1`

	var u identity.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.SuperAdmin,
		&u.Active,
		&u.FailedLoginAttempts,
		&u.LockedUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	query := `
		SELECT id, email, display_name, super_admin, active,
		       failed_login_attempts, locked_until, created_at, updated_at
		FROM users
		WHERE email = $1`

	var u identity.User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.SuperAdmin,
		&u.Active,
		&u.FailedLoginAttempts,
		&u.LockedUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

func (r *UserRepository) GetCredentials(ctx context.Context, userID int64) (*identity.Credentials, error) {
	query := `SELECT user_id, password_hash FROM user_credentials WHERE user_id = $1`

	var c identity.Credentials
	err := r.pool.QueryRow(ctx, query, userID).Scan(&c.UserID, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	return &c, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `
		INSERT INTO user_credentials (user_id, password_hash, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

func (r *UserRepository) UpdateLockout(ctx context.Context, userID int64, attempts int, lockedUntil *time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = $2, locked_until = $3, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, userID, attempts, lockedUntil)
	if err != nil {
		return fmt.Errorf("failed to update lockout state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}

	return nil
}
