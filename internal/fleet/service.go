// Copyright 2026 The OpenFleet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fleet

import (
	"context"
	"fmt"
	"time"
)

// Service provides fleet business logic. tenantID always comes from the
// access gate's bound context; the service never derives it on its own.
type Service struct {
	vehicles VehicleRepository
	garages  GarageRepository
}

// NewService creates a fleet service
func NewService(vehicles VehicleRepository, garages GarageRepository) *Service {
	return &Service{vehicles: vehicles, garages: garages}
}

// CreateVehicle creates a vehicle in the tenant's fleet
func (s *Service) CreateVehicle(ctx context.Context, tenantID int64, v *Vehicle) (*Vehicle, error) {
	if v.Registration == "" {
		return nil, fmt.Errorf("vehicle registration is required")
	}
	now := time.Now()
	v.TenantID = tenantID
	v.CreatedAt = now
	v.UpdatedAt = now

	if err := s.vehicles.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return v, nil
}

// GetVehicle retrieves one vehicle within the tenant
func (s *Service) GetVehicle(ctx context.Context, tenantID, id int64) (*Vehicle, error) {
	return s.vehicles.GetByID(ctx, tenantID, id)
}

// UpdateVehicle updates a vehicle within the tenant
func (s *Service) UpdateVehicle(ctx context.Context, tenantID int64, v *Vehicle) error {
	existing, err := s.vehicles.GetByID(ctx, tenantID, v.ID)
	if err != nil {
		return err
	}
	v.TenantID = existing.TenantID
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = time.Now()
	return s.vehicles.Update(ctx, v)
}

// DeleteVehicle removes a vehicle from the tenant's fleet
func (s *Service) DeleteVehicle(ctx context.Context, tenantID, id int64) error {
	return s.vehicles.Delete(ctx, tenantID, id)
}

// ListVehicles lists the tenant's vehicles with pagination
func (s *Service) ListVehicles(ctx context.Context, tenantID int64, limit, offset int) ([]*Vehicle, error) {
	return s.vehicles.ListByTenant(ctx, tenantID, limit, offset)
}

// CreateGarage creates a garage for the tenant
func (s *Service) CreateGarage(ctx context.Context, tenantID int64, g *Garage) (*Garage, error) {
	if g.Name == "" {
		return nil, fmt.Errorf("garage name is required")
	}
	now := time.Now()
	g.TenantID = tenantID
	g.CreatedAt = now
	g.UpdatedAt = now

	if err := s.garages.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create garage: %w", err)
	}
	return g, nil
}

// GetGarage retrieves one garage within the tenant
func (s *Service) GetGarage(ctx context.Context, tenantID, id int64) (*Garage, error) {
	return s.garages.GetByID(ctx, tenantID, id)
}

// UpdateGarage updates a garage within the tenant
func (s *Service) UpdateGarage(ctx context.Context, tenantID int64, g *Garage) error {
	existing, err := s.garages.GetByID(ctx, tenantID, g.ID)
	if err != nil {
		return err
	}
	g.TenantID = existing.TenantID
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = time.Now()
	return s.garages.Update(ctx, g)
}

// DeleteGarage removes a garage
func (s *Service) DeleteGarage(ctx context.Context, tenantID, id int64) error {
	return s.garages.Delete(ctx, tenantID, id)
}

// ListGarages lists the tenant's garages with pagination
func (s *Service) ListGarages(ctx context.Context, tenantID int64, limit, offset int) ([]*Garage, error) {
	return s.garages.ListByTenant(ctx, tenantID, limit, offset)
}
