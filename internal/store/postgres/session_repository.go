package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfleet/openfleet/internal/session"
)

// SessionRepository implements session.Repository backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool()}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO sessions (token, user_id, tenant_id, ip_address, user_agent, active, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		s.Token,
		s.UserID,
		s.TenantID,
		s.IPAddress,
		s.UserAgent,
		s.Active,
		s.ExpiresAt,
		s.CreatedAt,
		s.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*session.Session, error) {
	query := `
		SELECT token, user_id, tenant_id, ip_address, user_agent, active, expires_at, created_at, last_seen_at
		FROM sessions
		WHERE token = $1`

	var s session.Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.Token,
		&s.UserID,
		&s.TenantID,
		&s.IPAddress,
		&s.UserAgent,
		&s.Active,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &s, nil
}

func (r *SessionRepository) Touch(ctx context.Context, token string, seenAt time.Time) error {
	query := `UPDATE sessions SET last_seen_at = $2 WHERE token = $1 AND active = TRUE`

	_, err := r.pool.Exec(ctx, query, token, seenAt)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return nil
}

// Deactivate marks a session inactive. Deactivating an already inactive or
// unknown session is not an error.
func (r *SessionRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE sessions SET active = FALSE WHERE token = $1`

	_, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}

	return nil
}

func (r *SessionRepository) RebindTenant(ctx context.Context, token string, tenantID *int64) error {
	query := `UPDATE sessions SET tenant_id = $2 WHERE token = $1 AND active = TRUE`

	tag, err := r.pool.Exec(ctx, query, token, tenantID)
	if err != nil {
		return fmt.Errorf("failed to rebind session tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrSessionNotFound
	}

	return nil
}

func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE sessions SET active = FALSE WHERE active = TRUE AND expires_at <= $1`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
