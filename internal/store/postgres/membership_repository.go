package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfleet/openfleet/internal/tenant"
)

// MembershipRepository implements tenant.MembershipRepository backed by PostgreSQL.
type MembershipRepository struct {
	pool *pgxpool.Pool
}

func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{pool: db.Pool()}
}

func (r *MembershipRepository) Get(ctx context.Context, tenantID, userID int64) (*tenant.Membership, error) {
	query := `
		SELECT id, tenant_id, user_id, role, active, is_primary, grants, created_at
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2`

	var m tenant.Membership
	err := r.pool.QueryRow(ctx, query, tenantID, userID).Scan(
		&m.ID,
		&m.TenantID,
		&m.UserID,
		&m.Role,
		&m.Active,
		&m.Primary,
		&m.Grants,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return &m, nil
}

func (r *MembershipRepository) ListForUser(ctx context.Context, userID int64) ([]*tenant.Membership, error) {
	query := `
		SELECT id, tenant_id, user_id, role, active, is_primary, grants, created_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY id`

	return r.list(ctx, query, userID)
}

func (r *MembershipRepository) ListForTenant(ctx context.Context, tenantID int64) ([]*tenant.Membership, error) {
	query := `
		SELECT id, tenant_id, user_id, role, active, is_primary, grants, created_at
		FROM memberships
		WHERE tenant_id = $1
		ORDER BY id`

	return r.list(ctx, query, tenantID)
}

func (r *MembershipRepository) list(ctx context.Context, query string, arg any) ([]*tenant.Membership, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*tenant.Membership
	for rows.Next() {
		var m tenant.Membership
		err := rows.Scan(
			&m.ID,
			&m.TenantID,
			&m.UserID,
			&m.Role,
			&m.Active,
			&m.Primary,
			&m.Grants,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}

	return memberships, nil
}

func (r *MembershipRepository) Create(ctx context.Context, m *tenant.Membership) error {
	query := `
		INSERT INTO memberships (tenant_id, user_id, role, active, is_primary, grants)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		m.TenantID,
		m.UserID,
		m.Role,
		m.Active,
		m.Primary,
		m.Grants,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}

	return nil
}

func (r *MembershipRepository) UpdateGrants(ctx context.Context, tenantID, userID int64, grants []string) error {
	query := `
		UPDATE memberships
		SET grants = $3
		WHERE tenant_id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, tenantID, userID, grants)
	if err != nil {
		return fmt.Errorf("failed to update grants: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrMembershipNotFound
	}

	return nil
}
