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
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/openfleet/openfleet/internal/accessgate"
	"github.com/openfleet/openfleet/internal/audit"
	"github.com/openfleet/openfleet/internal/authz"
	"github.com/openfleet/openfleet/internal/fleet"
	"github.com/openfleet/openfleet/internal/identity"
	"github.com/openfleet/openfleet/internal/session"
	"github.com/openfleet/openfleet/internal/tenant"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	gate            *accessgate.Gate
	identityService *identity.Service
	sessionService  *session.Service
	fleetService    *fleet.Service
	resolver        *tenant.Resolver
	evaluator       *authz.Evaluator
	tenants         tenant.Repository
	memberships     tenant.MembershipRepository
	auditLogger     audit.Logger
	sessionConfig   SessionConfig
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
	MaxAge         int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	gate *accessgate.Gate,
	identityService *identity.Service,
	sessionService *session.Service,
	fleetService *fleet.Service,
	resolver *tenant.Resolver,
	evaluator *authz.Evaluator,
	tenants tenant.Repository,
	memberships tenant.MembershipRepository,
	auditLogger audit.Logger,
	sessionConfig SessionConfig,
) *Handler {
	return &Handler{
		gate:            gate,
		identityService: identityService,
		sessionService:  sessionService,
		fleetService:    fleetService,
		resolver:        resolver,
		evaluator:       evaluator,
		tenants:         tenants,
		memberships:     memberships,
		auditLogger:     auditLogger,
		sessionConfig:   sessionConfig,
	}
}

// NewRouter creates a new HTTP router. apiPrefix is the mount point for the
// gated API surface; everything outside it bypasses the gate.
func NewRouter(h *Handler, rateLimiter *RateLimiter, apiPrefix string) *chi.Mux {
	prefix := strings.TrimSuffix(apiPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route(prefix, func(r chi.Router) {
		// Anonymous endpoints
		r.Post("/auth/login", h.Login)
		r.Post("/auth/password-reset/request", h.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", h.ResetPassword)

		// Authenticated, tenant-agnostic endpoints
		r.Group(func(r chi.Router) {
			r.Use(h.Gated(accessgate.Options{TenantAgnostic: true}))
			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.GetCurrentUser)
			r.Post("/auth/change-password", h.ChangePassword)
			r.Get("/tenants/mine", h.MyTenants)
			r.Post("/tenants/switch", h.SwitchTenant)
		})

		// Tenant-scoped fleet endpoints
		r.Route("/vehicles", func(r chi.Router) {
			r.With(h.Require(authz.ResourceVehicle, authz.ActionRead)).Get("/", h.ListVehicles)
			r.With(h.Require(authz.ResourceVehicle, authz.ActionRead)).Get("/{id}", h.GetVehicle)
			r.With(h.Require(authz.ResourceVehicle, authz.ActionCreate)).Post("/", h.CreateVehicle)
			r.With(h.Require(authz.ResourceVehicle, authz.ActionUpdate)).Put("/{id}", h.UpdateVehicle)
			r.With(h.Require(authz.ResourceVehicle, authz.ActionDelete)).Delete("/{id}", h.DeleteVehicle)
		})
		r.Route("/garages", func(r chi.Router) {
			r.With(h.Require(authz.ResourceGarage, authz.ActionRead)).Get("/", h.ListGarages)
			r.With(h.Require(authz.ResourceGarage, authz.ActionRead)).Get("/{id}", h.GetGarage)
			r.With(h.Require(authz.ResourceGarage, authz.ActionCreate)).Post("/", h.CreateGarage)
			r.With(h.Require(authz.ResourceGarage, authz.ActionUpdate)).Put("/{id}", h.UpdateGarage)
			r.With(h.Require(authz.ResourceGarage, authz.ActionDelete)).Delete("/{id}", h.DeleteGarage)
		})

		// Tenant administration
		r.Route("/members", func(r chi.Router) {
			r.Use(h.RequireTenantAction(authz.TenantActionManageUsers))
			r.Get("/", h.ListMembers)
			r.Put("/{userID}/grants", h.UpdateMemberGrants)
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "openfleet",
	})
}

// Helper functions
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    token,
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: h.sessionConfig.CookieHTTPOnly,
		SameSite: h.sessionConfig.CookieSameSite,
		MaxAge:   h.sessionConfig.MaxAge,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   h.sessionConfig.CookieName,
		Value:  "",
		Path:   h.sessionConfig.CookiePath,
		Domain: h.sessionConfig.CookieDomain,
		MaxAge: -1,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError emits the stable error shape the browser client relies on.
func respondError(w http.ResponseWriter, status int, title, message string) {
	respondJSON(w, status, accessgate.ErrorBody{
		Success: false,
		Error:   title,
		Message: message,
		Code:    status,
	})
}

func respondGateError(w http.ResponseWriter, gerr *accessgate.GateError) {
	respondJSON(w, gerr.Status, gerr.Body())
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
