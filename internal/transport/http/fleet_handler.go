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

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openfleet/openfleet/internal/fleet"
	"github.com/openfleet/openfleet/internal/observability/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxPageSize)
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// VehicleRequest represents vehicle create/update data
type VehicleRequest struct {
	Registration string `json:"registration"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Mileage      int    `json:"mileage"`
	GarageID     *int64 `json:"garage_id"`
}

// ListVehicles lists the tenant's vehicles
func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	vehicles, err := h.fleetService.ListVehicles(r.Context(), access.TenantID(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list vehicles", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	if vehicles == nil {
		vehicles = []*fleet.Vehicle{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
}

// GetVehicle returns one vehicle
func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Bad Request", "A valid vehicle id is required.")
		return
	}

	v, err := h.fleetService.GetVehicle(r.Context(), access.TenantID(), id)
	if err != nil {
		if errors.Is(err, fleet.ErrVehicleNotFound) {
			respondError(w, http.StatusNotFound, "Not Found", "The requested vehicle does not exist.")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get vehicle", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}

	respondJSON(w, http.StatusOK, v)
}

// CreateVehicle creates a vehicle in the tenant
func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	var req VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Registration == "" {
		respondError(w, http.StatusBadRequest, "Bad Request", "A registration is required.")
		return
	}

	v, err := h.fleetService.CreateVehicle(r.Context(), access.TenantID(), &fleet.Vehicle{
		Registration: req.Registration,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Mileage:      req.Mileage,
		GarageID:     req.GarageID,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create vehicle", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create vehicle.")
		return
	}

	respondJSON(w, http.StatusCreated, v)
}

// UpdateVehicle updates a vehicle
func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Bad Request", "A valid vehicle id is required.")
		return
	}

	var req VehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Registration == "" {
		respondError(w, http.StatusBadRequest, "Bad Request", "A registration is required.")
		return
	}

	v := &fleet.Vehicle{
		ID:           id,
		Registration: req.Registration,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Mileage:      req.Mileage,
		GarageID:     req.GarageID,
	}
	if err := h.fleetService.UpdateVehicle(r.Context(), access.TenantID(), v); err != nil {
		if errors.Is(err, fleet.ErrVehicleNotFound) {
			respondError(w, http.StatusNotFound, "Not Found", "The requested vehicle does not exist.")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update vehicle", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update vehicle.")
		return
	}

	respondJSON(w, http.StatusOK, v)
}

// DeleteVehicle removes a vehicle
func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Bad Request", "A valid vehicle id is required.")
		return
	}

	if err := h.fleetService.DeleteVehicle(r.Context(), access.TenantID(), id); err != nil {
		if errors.Is(err, fleet.ErrVehicleNotFound) {
			respondError(w, http.StatusNotFound, "Not Found", "The requested vehicle does not exist.")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete vehicle", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete vehicle.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "vehicle deleted"})
}

// GarageRequest represents garage create/update data
type GarageRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Capacity int    `json:"capacity"`
}

// ListGarages lists the tenant's garages
func (h *Handler) ListGarages(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	garages, err := h.fleetService.ListGarages(r.Context(), access.TenantID(), limit, offset)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list garages", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	if garages == nil {
		garages = []*fleet.Garage{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"garages": garages})
}

// GetGarage returns one garage
func (h *Handler) GetGarage(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Bad Request", "A valid garage id is required.")
		return
	}

	g, err := h.fleetService.GetGarage(r.Context(), access.TenantID(), id)
	if err != nil {
		if errors.Is(err, fleet.ErrGarageNotFound) {
			respondError(w, http.StatusNotFound, "Not Found", "The requested garage does not exist.")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get garage", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}

	respondJSON(w, http.StatusOK, g)
}

// CreateGarage creates a garage in the tenant
func (h *Handler) CreateGarage(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	var req GarageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, "Bad Request", "A name is required.")
		return
	}

	g, err := h.fleetService.CreateGarage(r.Context(), access.TenantID(), &fleet.Garage{
		Name:     req.Name,
		Address:  req.Address,
		Capacity: req.Capacity,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create garage", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create garage.")
		return
	}

	respondJSON(w, http.StatusCreated, g)
}

// UpdateGarage updates a garage
func (h *Handler) UpdateGarage(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Bad Request", "A valid garage id is required.")
		return
	}

	var req GarageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondError(w, http.StatusBadRequest, "Bad Request", "A name is required.")
		return
	}

	g := &fleet.Garage{
		ID:       id,
		Name:     req.Name,
		Address:  req.Address,
		Capacity: req.Capacity,
	}
	if err := h.fleetService.UpdateGarage(r.Context(), access.TenantID(), g); err != nil {
		if errors.Is(err, fleet.ErrGarageNotFound) {
			respondError(w, http.StatusNotFound, "Not Found", "The requested garage does not exist.")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update garage", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update garage.")
		return
	}

	respondJSON(w, http.StatusOK, g)
}

// DeleteGarage removes a garage
func (h *Handler) DeleteGarage(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Bad Request", "A valid garage id is required.")
		return
	}

	if err := h.fleetService.DeleteGarage(r.Context(), access.TenantID(), id); err != nil {
		if errors.Is(err, fleet.ErrGarageNotFound) {
			respondError(w, http.StatusNotFound, "Not Found", "The requested garage does not exist.")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete garage", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete garage.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "garage deleted"})
}
