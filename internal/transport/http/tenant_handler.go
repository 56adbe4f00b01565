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

	"github.com/openfleet/openfleet/internal/audit"
	"github.com/openfleet/openfleet/internal/authz"
	"github.com/openfleet/openfleet/internal/observability/logger"
	"github.com/openfleet/openfleet/internal/tenant"
)

// ListMembers lists the memberships of the current tenant
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	memberships, err := h.memberships.ListForTenant(r.Context(), access.TenantID())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tenant members", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	if memberships == nil {
		memberships = []*tenant.Membership{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"members": memberships})
}

// UpdateGrantsRequest carries the full replacement grant set for a member
type UpdateGrantsRequest struct {
	Grants []string `json:"grants"`
}

// UpdateMemberGrants replaces a member's explicit grant set. Grants are
// validated as "resource:action" pairs before being stored; an unknown pair
// rejects the whole request.
func (h *Handler) UpdateMemberGrants(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "Bad Request", "A valid user id is required.")
		return
	}

	var req UpdateGrantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Bad Request", "Invalid request body.")
		return
	}

	for _, g := range req.Grants {
		if _, err := authz.ParseResourceAction(g); err != nil {
			respondError(w, http.StatusBadRequest, "Bad Request", "Unknown grant "+strconv.Quote(g)+".")
			return
		}
	}

	previous, err := h.memberships.Get(r.Context(), access.TenantID(), userID)
	if err != nil {
		if errors.Is(err, tenant.ErrMembershipNotFound) {
			respondError(w, http.StatusNotFound, "Not Found", "The user is not a member of this tenant.")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load membership", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}

	if err := h.memberships.UpdateGrants(r.Context(), access.TenantID(), userID, req.Grants); err != nil {
		if errors.Is(err, tenant.ErrMembershipNotFound) {
			respondError(w, http.StatusNotFound, "Not Found", "The user is not a member of this tenant.")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update grants", logger.Error(err), logger.TenantID(access.TenantID()))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update grants.")
		return
	}

	h.auditGrantChanges(r, access.User().ID, access.TenantID(), userID, previous.Grants, req.Grants)

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"grants":  req.Grants,
	})
}

// auditGrantChanges emits one event per grant added or revoked
func (h *Handler) auditGrantChanges(r *http.Request, actorID, tenantID, userID int64, before, after []string) {
	old := make(map[string]struct{}, len(before))
	for _, g := range before {
		old[g] = struct{}{}
	}
	next := make(map[string]struct{}, len(after))
	for _, g := range after {
		next[g] = struct{}{}
	}

	for g := range next {
		if _, existed := old[g]; !existed {
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeGrantAdded,
				TenantID:  tenantID,
				ActorID:   actorID,
				Resource:  g,
				IPAddress: getIPAddress(r),
				Metadata:  map[string]any{"user_id": userID},
			})
		}
	}
	for g := range old {
		if _, kept := next[g]; !kept {
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeGrantRevoked,
				TenantID:  tenantID,
				ActorID:   actorID,
				Resource:  g,
				IPAddress: getIPAddress(r),
				Metadata:  map[string]any{"user_id": userID},
			})
		}
	}
}
