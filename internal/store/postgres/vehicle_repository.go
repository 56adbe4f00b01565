package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfleet/openfleet/internal/fleet"
)

// VehicleRepository implements fleet.VehicleRepository backed by PostgreSQL.
type VehicleRepository struct {
	pool *pgxpool.Pool
}

func NewVehicleRepository(db *DB) *VehicleRepository {
	return &VehicleRepository{pool: db.Pool()}
}

func (r *VehicleRepository) Create(ctx context.Context, v *fleet.Vehicle) error {
	query := `
		INSERT INTO vehicles (tenant_id, registration, make, model, year, mileage, garage_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		v.TenantID,
		v.Registration,
		v.Make,
		v.Model,
		v.Year,
		v.Mileage,
		v.GarageID,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	return nil
}

func (r *VehicleRepository) GetByID(ctx context.Context, tenantID, id int64) (*fleet.Vehicle, error) {
	query := `
		SELECT id, tenant_id, registration, make, model, year, mileage, garage_id, created_at, updated_at
		FROM vehicles
		WHERE tenant_id = $1 AND id = $2`

	var v fleet.Vehicle
	err := r.pool.QueryRow(ctx, query, tenantID, id).Scan(
		&v.ID,
		&v.TenantID,
		&v.Registration,
		&v.Make,
		&v.Model,
		&v.Year,
		&v.Mileage,
		&v.GarageID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fleet.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}

	return &v, nil
}

func (r *VehicleRepository) Update(ctx context.Context, v *fleet.Vehicle) error {
	query := `
		UPDATE vehicles
		SET registration = $3, make = $4, model = $5, year = $6, mileage = $7, garage_id = $8, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query,
		v.TenantID,
		v.ID,
		v.Registration,
		v.Make,
		v.Model,
		v.Year,
		v.Mileage,
		v.GarageID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fleet.ErrVehicleNotFound
	}

	return nil
}

func (r *VehicleRepository) Delete(ctx context.Context, tenantID, id int64) error {
	query := `DELETE FROM vehicles WHERE tenant_id = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fleet.ErrVehicleNotFound
	}

	return nil
}

func (r *VehicleRepository) ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]*fleet.Vehicle, error) {
	query := `
		SELECT id, tenant_id, registration, make, model, year, mileage, garage_id, created_at, updated_at
		FROM vehicles
		WHERE tenant_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*fleet.Vehicle
	for rows.Next() {
		var v fleet.Vehicle
		err := rows.Scan(
			&v.ID,
			&v.TenantID,
			&v.Registration,
			&v.Make,
			&v.Model,
			&v.Year,
			&v.Mileage,
			&v.GarageID,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vehicles: %w", err)
	}

	return vehicles, nil
}
