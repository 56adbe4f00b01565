package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfleet/openfleet/internal/tenant"
)

// TenantRepository implements tenant.Repository backed by PostgreSQL.
type TenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{pool: db.Pool()}
}

func (r *TenantRepository) GetByID(ctx context.Context, id int64) (*tenant.Tenant, error) {
	query := `
		SELECT id, slug, name, active, created_at, updated_at
		FROM tenants
		WHERE id = $1`

	var t tenant.Tenant
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Slug,
		&t.Name,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &t, nil
}

func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	query := `
		SELECT id, slug, name, active, created_at, updated_at
		FROM tenants
		WHERE slug = $1`

	var t tenant.Tenant
	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&t.ID,
		&t.Slug,
		&t.Name,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant by slug: %w", err)
	}

	return &t, nil
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := `
		INSERT INTO tenants (slug, name, active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, t.Slug, t.Name, t.Active).Scan(
		&t.ID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	query := `
		UPDATE tenants
		SET slug = $2, name = $3, active = $4, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, t.ID, t.Slug, t.Name, t.Active)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}

	return nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*tenant.Tenant, error) {
	query := `
		SELECT id, slug, name, active, created_at, updated_at
		FROM tenants
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}

	return tenants, nil
}
