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

package accessgate

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/openfleet/openfleet/internal/audit"
	"github.com/openfleet/openfleet/internal/authz"
	"github.com/openfleet/openfleet/internal/identity"
	"github.com/openfleet/openfleet/internal/observability/logger"
	"github.com/openfleet/openfleet/internal/observability/metrics"
	"github.com/openfleet/openfleet/internal/session"
	"github.com/openfleet/openfleet/internal/tenant"
)

// Gate is the single authorization entry point. Every transport adapter
// calls Authorize and translates its structured result; none of them carries
// resolution, validation or permission logic of its own.
type Gate struct {
	sessions    *session.Service
	users       *identity.Service
	resolver    *tenant.Resolver
	evaluator   *authz.Evaluator
	auditLogger audit.Logger
	gateMetrics *metrics.GateMetrics

	cookieName      string
	tokenQueryParam string
}

// Config holds gate wiring
type Config struct {
	CookieName      string
	TokenQueryParam string
}

// New creates an access gate
func New(
	sessions *session.Service,
	users *identity.Service,
	resolver *tenant.Resolver,
	evaluator *authz.Evaluator,
	auditLogger audit.Logger,
	gateMetrics *metrics.GateMetrics,
	cfg Config,
) *Gate {
	return &Gate{
		sessions:        sessions,
		users:           users,
		resolver:        resolver,
		evaluator:       evaluator,
		auditLogger:     auditLogger,
		gateMetrics:     gateMetrics,
		cookieName:      cfg.CookieName,
		tokenQueryParam: cfg.TokenQueryParam,
	}
}

// Options declare what a route requires from the gate. The zero value is the
// strictest common case: authenticated, tenant-scoped, no specific
// permission beyond tenant access.
type Options struct {
	// TenantAgnostic marks routes that operate without a tenant context
	// (listing the principal's own tenants, logout). Such routes are
	// explicitly exempt from tenant resolution, never silently tolerant of
	// a missing tenant.
	TenantAgnostic bool

	// Permission, when set, requires the resource/action pair on top of
	// tenant access.
	Permission *authz.ResourceAction

	// TenantAction, when set, requires a tenant-scoped management action.
	TenantAction *authz.TenantAction
}

// Authorize runs the gate state machine for a request, terminal on first
// failure: authenticate session, resolve tenant, check tenant access, then
// the optional finer-grained permission. On success the returned Access is
// the only handle downstream code has on principal and tenant.
func (g *Gate) Authorize(r *http.Request, opts Options) (*Access, *GateError) {
	ctx := r.Context()

	// AuthenticateSession
	token := session.TokenFromRequest(r, g.cookieName, g.tokenQueryParam)
	if token == "" {
		g.record(r, KindAuthenticationRequired)
		return nil, authenticationRequired("Authentication is required to access this resource.")
	}

	sess, err := g.sessions.Validate(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionExpired):
			g.auditLogger.Log(ctx, audit.Event{
				Type:      audit.TypeSessionExpired,
				Resource:  "session",
				IPAddress: r.RemoteAddr,
				UserAgent: r.UserAgent(),
			})
			g.record(r, KindAuthenticationRequired)
			return nil, authenticationRequired("Your session has expired.")
		case errors.Is(err, session.ErrSessionInvalid):
			g.record(r, KindAuthenticationRequired)
			return nil, authenticationRequired("Invalid session.")
		default:
			return nil, g.internal(r, err, 0, 0)
		}
	}

	user, err := g.users.GetUser(ctx, sess.UserID)
	if err != nil || !user.Active {
		g.record(r, KindAuthenticationRequired)
		return nil, authenticationRequired("Invalid session.")
	}

	if opts.TenantAgnostic {
		g.record(r, "authorized")
		return &Access{user: user, session: sess}, nil
	}

	// ResolveTenant
	t, err := g.resolver.Resolve(ctx, r, user.ID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			g.record(r, KindTenantNotFound)
			return nil, tenantNotFound()
		}
		return nil, g.internal(r, err, user.ID, 0)
	}
	if t == nil {
		g.record(r, KindTenantContextRequired)
		return nil, tenantContextRequired()
	}

	// CheckTenantAccess
	ok, err := g.evaluator.CanAccessTenant(ctx, user, t)
	if err != nil {
		return nil, g.internal(r, err, user.ID, t.ID)
	}
	if !ok {
		g.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeAccessDenied,
			TenantID:  t.ID,
			ActorID:   user.ID,
			Resource:  r.URL.Path,
			IPAddress: r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
		g.record(r, KindAccessDenied)
		return nil, accessDenied()
	}

	// CheckResourcePermission
	if opts.Permission != nil {
		allowed, err := g.evaluator.Evaluate(ctx, user, t, *opts.Permission)
		if err != nil {
			return nil, g.internal(r, err, user.ID, t.ID)
		}
		if !allowed {
			g.denyPermission(r, user, t, opts.Permission.String())
			return nil, permissionDenied(string(opts.Permission.Action) + " " + string(opts.Permission.Resource) + " records")
		}
	}
	if opts.TenantAction != nil {
		allowed, err := g.evaluator.EvaluateTenantAction(ctx, user, t, *opts.TenantAction)
		if err != nil {
			return nil, g.internal(r, err, user.ID, t.ID)
		}
		if !allowed {
			g.denyPermission(r, user, t, string(*opts.TenantAction))
			return nil, permissionDenied("perform " + string(*opts.TenantAction))
		}
	}

	membership, err := g.evaluator.Membership(ctx, user.ID, t.ID)
	if err != nil {
		return nil, g.internal(r, err, user.ID, t.ID)
	}

	g.record(r, "authorized")
	return &Access{user: user, tenant: t, membership: membership, session: sess}, nil
}

func (g *Gate) denyPermission(r *http.Request, user *identity.User, t *tenant.Tenant, what string) {
	g.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypePermissionDenied,
		TenantID:  t.ID,
		ActorID:   user.ID,
		Resource:  what,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{"path": r.URL.Path},
	})
	g.record(r, KindPermissionDenied)
}

// internal logs an unexpected collaborator fault with full request context
// and converts it to a generic 500 that leaks nothing to the client.
func (g *Gate) internal(r *http.Request, err error, userID, tenantID int64) *GateError {
	slog.ErrorContext(r.Context(), "access gate internal fault",
		logger.Error(err),
		logger.UserID(userID),
		logger.TenantID(tenantID),
		logger.Path(r.URL.Path),
		logger.Method(r.Method),
	)
	g.record(r, KindInternal)
	return internalFault(err)
}

func (g *Gate) record(r *http.Request, outcome Kind) {
	g.gateMetrics.RecordDecision(r.Context(), string(outcome))
}
