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

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfleet/openfleet/internal/identity"
	"github.com/openfleet/openfleet/internal/tenant"
)

// Evaluator is the single permission decision point. Every enforcement
// adapter calls into it; none re-implements its table.
type Evaluator struct {
	memberships tenant.MembershipRepository
}

// NewEvaluator creates a permission evaluator
func NewEvaluator(memberships tenant.MembershipRepository) *Evaluator {
	return &Evaluator{memberships: memberships}
}

// CanAccessTenant reports whether a user may operate inside a tenant at all.
// True iff the user is a global super-admin, or an active membership links
// the user to the tenant and the tenant itself is active. This check gates
// every tenant-scoped operation and runs before any finer-grained one.
func (e *Evaluator) CanAccessTenant(ctx context.Context, user *identity.User, t *tenant.Tenant) (bool, error) {
	if user == nil || t == nil {
		return false, nil
	}
	if user.SuperAdmin {
		return true, nil
	}
	if !t.Active {
		return false, nil
	}

	m, err := e.activeMembership(ctx, t.ID, user.ID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// Evaluate decides whether a user may perform a resource action within a
// tenant. It short-circuits to false when CanAccessTenant fails. With tenant
// access established: super-admins are always allowed; otherwise the
// membership's explicit grants for the resource type are authoritative, and
// absent any, the role default applies.
func (e *Evaluator) Evaluate(ctx context.Context, user *identity.User, t *tenant.Tenant, ra ResourceAction) (bool, error) {
	ok, err := e.CanAccessTenant(ctx, user, t)
	if err != nil || !ok {
		return false, err
	}
	if user.SuperAdmin {
		return true, nil
	}

	m, err := e.activeMembership(ctx, t.ID, user.ID)
	if err != nil || m == nil {
		return false, err
	}

	if allowed, explicit := explicitGrant(m.Grants, ra); explicit {
		return allowed, nil
	}
	return roleAllows(m.Role, ra), nil
}

// EvaluateTenantAction decides a tenant-scoped management action. Unknown
// action names were already rejected at parse time; anything reaching this
// point with an unrecognized value still denies.
func (e *Evaluator) EvaluateTenantAction(ctx context.Context, user *identity.User, t *tenant.Tenant, action TenantAction) (bool, error) {
	ok, err := e.CanAccessTenant(ctx, user, t)
	if err != nil || !ok {
		return false, err
	}
	if user.SuperAdmin {
		return true, nil
	}

	m, err := e.activeMembership(ctx, t.ID, user.ID)
	if err != nil || m == nil {
		return false, err
	}
	return roleAllowsTenantAction(m.Role, action), nil
}

// Membership returns the active membership backing a user's access to a
// tenant, or nil for super-admins operating without one.
func (e *Evaluator) Membership(ctx context.Context, userID, tenantID int64) (*tenant.Membership, error) {
	return e.activeMembership(ctx, tenantID, userID)
}

func (e *Evaluator) activeMembership(ctx context.Context, tenantID, userID int64) (*tenant.Membership, error) {
	m, err := e.memberships.Get(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, tenant.ErrMembershipNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if !m.Active {
		return nil, nil
	}
	return m, nil
}

// explicitGrant scans a membership's grant strings for entries touching the
// requested resource type. When any exist they are authoritative: the pair
// must match exactly. Grant strings that do not parse are ignored, which
// means deny.
func explicitGrant(grants []string, ra ResourceAction) (allowed, explicit bool) {
	for _, g := range grants {
		parsed, err := ParseResourceAction(g)
		if err != nil {
			continue
		}
		if parsed.Resource != ra.Resource {
			continue
		}
		explicit = true
		if parsed.Action == ra.Action {
			return true, true
		}
	}
	return false, explicit
}
