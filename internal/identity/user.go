package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user is inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrAccountLocked      = errors.New("account is locked")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// User represents an authenticated principal.
// SuperAdmin is a global flag: it bypasses tenant membership checks
// but never tenant existence checks.
type User struct {
	ID                  int64
	Email               string
	DisplayName         string
	SuperAdmin          bool
	Active              bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Credentials represents user authentication credentials
type Credentials struct {
	UserID       int64
	PasswordHash string
	UpdatedAt    time.Time
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetCredentials retrieves credentials for a user
	GetCredentials(ctx context.Context, userID int64) (*Credentials, error)

	// UpdatePassword replaces the stored password hash
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	// UpdateLockout updates failed attempt counter and lockout expiry
	UpdateLockout(ctx context.Context, userID int64, attempts int, lockedUntil *time.Time) error
}
