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

	"github.com/openfleet/openfleet/internal/audit"
	"github.com/openfleet/openfleet/internal/identity"
	"github.com/openfleet/openfleet/internal/observability/logger"
	"github.com/openfleet/openfleet/internal/tenant"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and creates a session bound to the user's
// default tenant, or to no tenant when none qualifies.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Bad Request", "Invalid request body.")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrAccountLocked) {
			respondError(w, http.StatusForbidden, "Access Denied", "Account is temporarily locked.")
			return
		}
		respondError(w, http.StatusUnauthorized, "Authentication Required", "Invalid credentials.")
		return
	}

	var tenantID *int64
	defaultTenant, err := h.resolver.DefaultForUser(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to resolve default tenant at login",
			logger.Error(err),
			logger.UserID(user.ID),
		)
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	if defaultTenant != nil {
		tenantID = &defaultTenant.ID
	}

	sess, err := h.sessionService.Create(r.Context(), user.ID, tenantID, getIPAddress(r), r.UserAgent())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create session", logger.Error(err), logger.UserID(user.ID))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}

	h.setSessionCookie(w, sess.Token)

	resp := map[string]any{
		"user_id":      user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
	}
	if defaultTenant != nil {
		resp["tenant_id"] = defaultTenant.ID
		resp["tenant_slug"] = defaultTenant.Slug
	}
	respondJSON(w, http.StatusOK, resp)
}

// Logout destroys the current session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	sess := access.Session()

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLogout,
		ActorID:   access.User().ID,
		Resource:  "session",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	if err := h.sessionService.Destroy(r.Context(), sess.Token); err != nil {
		slog.ErrorContext(r.Context(), "failed to destroy session", logger.Error(err))
	}

	h.clearSessionCookie(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// GetCurrentUser returns the authenticated principal and its session binding
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	user := access.User()
	resp := map[string]any{
		"user_id":      user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"super_admin":  user.SuperAdmin,
	}
	if tid := access.Session().TenantID; tid != nil {
		resp["tenant_id"] = *tid
	}
	respondJSON(w, http.StatusOK, resp)
}

// ChangePasswordRequest represents password change data
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword changes the user password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Bad Request", "Invalid request body.")
		return
	}

	err := h.identityService.ChangePassword(r.Context(), access.User().ID, req.OldPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "Authentication Required", "Invalid old password.")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "Bad Request", "New password does not meet security requirements.")
		default:
			respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to change password.")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password changed successfully",
	})
}

// MyTenants lists the tenants the principal can work in
func (h *Handler) MyTenants(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	memberships, err := h.memberships.ListForUser(r.Context(), access.User().ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list memberships", logger.Error(err), logger.UserID(access.User().ID))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}

	type tenantEntry struct {
		TenantID int64  `json:"tenant_id"`
		Slug     string `json:"slug"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		Primary  bool   `json:"primary"`
	}

	entries := make([]tenantEntry, 0, len(memberships))
	for _, m := range memberships {
		if !m.Active {
			continue
		}
		t, err := h.tenants.GetByID(r.Context(), m.TenantID)
		if err != nil {
			if errors.Is(err, tenant.ErrTenantNotFound) {
				continue
			}
			slog.ErrorContext(r.Context(), "failed to load tenant", logger.Error(err), logger.TenantID(m.TenantID))
			respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
			return
		}
		if !t.Active {
			continue
		}
		entries = append(entries, tenantEntry{
			TenantID: t.ID,
			Slug:     t.Slug,
			Name:     t.Name,
			Role:     m.Role,
			Primary:  m.Primary,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"tenants": entries})
}

// SwitchTenantRequest names the target tenant
type SwitchTenantRequest struct {
	TenantID int64 `json:"tenant_id"`
}

// SwitchTenant rebinds the current session to another tenant after checking
// the principal may access it.
func (h *Handler) SwitchTenant(w http.ResponseWriter, r *http.Request) {
	access, ok := mustAccess(w, r)
	if !ok {
		return
	}

	var req SwitchTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TenantID <= 0 {
		respondError(w, http.StatusBadRequest, "Bad Request", "A valid tenant_id is required.")
		return
	}

	target, err := h.tenants.GetByID(r.Context(), req.TenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "Not Found", "The requested tenant does not exist.")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load tenant", logger.Error(err), logger.TenantID(req.TenantID))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}

	allowed, err := h.evaluator.CanAccessTenant(r.Context(), access.User(), target)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to evaluate tenant access", logger.Error(err), logger.TenantID(target.ID))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	if !allowed {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeAccessDenied,
			TenantID:  target.ID,
			ActorID:   access.User().ID,
			Resource:  "tenant_switch",
			IPAddress: getIPAddress(r),
			UserAgent: r.UserAgent(),
		})
		respondError(w, http.StatusForbidden, "Access Denied", "You do not have access to this tenant.")
		return
	}

	if err := h.sessionService.SwitchTenant(r.Context(), access.Session().Token, target.ID); err != nil {
		slog.ErrorContext(r.Context(), "failed to switch tenant", logger.Error(err), logger.TenantID(target.ID))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeTenantSwitched,
		TenantID:  target.ID,
		ActorID:   access.User().ID,
		Resource:  "session",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"tenant_id":   target.ID,
		"tenant_slug": target.Slug,
	})
}

// PasswordResetRequest carries the account email
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset issues a reset token. The response never discloses
// whether the account exists.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondError(w, http.StatusBadRequest, "Bad Request", "An email address is required.")
		return
	}

	token, err := h.identityService.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue reset token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
		return
	}
	if token != "" {
		// Delivery is out of band; the token never appears in the response.
		slog.DebugContext(r.Context(), "password reset token issued", logger.Email(req.Email))
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "if the account exists, a password reset link has been sent",
	})
}

// PasswordResetConfirm carries a reset token and the new password
type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword consumes a reset token and sets a new password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirm
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Bad Request", "Invalid request body.")
		return
	}

	err := h.identityService.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidResetToken):
			respondError(w, http.StatusBadRequest, "Bad Request", "The reset token is invalid or expired.")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "Bad Request", "New password does not meet security requirements.")
		default:
			respondError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to reset password.")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "password reset successfully",
	})
}
