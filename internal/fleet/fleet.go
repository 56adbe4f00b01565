package fleet

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrGarageNotFound  = errors.New("garage not found")
)

// Vehicle is a tenant-owned fleet vehicle
type Vehicle struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenant_id"`
	Registration string    `json:"registration"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Mileage      int       `json:"mileage"`
	GarageID     *int64    `json:"garage_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Garage is a tenant-owned maintenance site
type Garage struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VehicleRepository defines vehicle persistence. Every operation is keyed by
// tenant so a row from another tenant is indistinguishable from a missing
// one.
type VehicleRepository interface {
	Create(ctx context.Context, v *Vehicle) error
	GetByID(ctx context.Context, tenantID, id int64) (*Vehicle, error)
	Update(ctx context.Context, v *Vehicle) error
	Delete(ctx context.Context, tenantID, id int64) error
	ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]*Vehicle, error)
}

// GarageRepository defines garage persistence
type GarageRepository interface {
	Create(ctx context.Context, g *Garage) error
	GetByID(ctx context.Context, tenantID, id int64) (*Garage, error)
	Update(ctx context.Context, g *Garage) error
	Delete(ctx context.Context, tenantID, id int64) error
	ListByTenant(ctx context.Context, tenantID int64, limit, offset int) ([]*Garage, error)
}
