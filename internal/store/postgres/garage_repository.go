package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfleet/openfleet/internal/fleet"
)

// GarageRepository implements fleet.GarageRepository backed by PostgreSQL.
type GarageRepository struct {
	pool *pgxpool.Pool
}

func NewGarageRepository(db *DB) *GarageRepository {
	return &GarageRepository{pool: db.Pool()}
}

func (r *GarageRepository) Create(ctx context.Context, g *fleet.Garage) error {
	query := `
		INSERT INTO garages (tenant_id, name, address, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, g.TenantID, g.Name, g.Address, g.Capacity).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create garage: %w", err)
	}

	return nil
}

func (r *GarageRepository) GetByID(ctx context.Context, tenantID, id int64) (*fleet.Garage, error) {
	query := `
		SELECT id, tenant_id, name, address, capacity, created_at, updated_at
		FROM garages
		WHERE tenant_id = $1 AND id = $2`

	var g fleet.Garage
	err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(
		&g.ID,
		&g.TenantID,
		&g.Name,
		&g.Address,
		&g.Capacity,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fleet.ErrGarageNotFound
		}
		return nil, fmt.Errorf("failed to get garage: %w", err)
	}

	return &g, nil
}

func (r *GarageRepository) Update(ctx context.Context, g *fleet.Garage) error {
	query := `
		UPDATE garages
		SET name = $3, address = $4, capacity = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, g.TenantID, g.ID, g.Name, g.Address, g.Capacity)
	if err != nil {
		return fmt.Errorf("failed to update garage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fleet.ErrGarageNotFound
	}

	return nil
}

func (r *GarageRepository) Delete(ctx context.Context, tenantID, id int64) error {
	query := `DELETE FROM garages WHERE tenant_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete garage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fleet.ErrGarageNotFound
	}

	return nil
}

func (r *GarageRepository) ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]*fleet.Garage, error) {
	query := `
		SELECT id, tenant_id, name, address, capacity, created_at, updated_at
		FROM garages
		WHERE tenant_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list garages: %w", err)
	}
	defer rows.Close()

	var garages []*fleet.Garage
	for rows.Next() {
		var g fleet.Garage
		err := rows.Scan(
			&g.ID,
			&g.TenantID,
			&g.Name,
			&g.Address,
			&g.Capacity,
			&g.CreatedAt,
			&g.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan garage: %w", err)
		}
		garages = append(garages, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate garages: %w", err)
	}

	return garages, nil
}
