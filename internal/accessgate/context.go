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
	"context"

	"github.com/openfleet/openfleet/internal/identity"
	"github.com/openfleet/openfleet/internal/session"
	"github.com/openfleet/openfleet/internal/tenant"
)

// Access is the request-scoped result of a successful gate pass. Its fields
// are unexported so no other package can fabricate one: downstream handlers
// receive principal and tenant exclusively through the gate.
type Access struct {
	user       *identity.User
	tenant     *tenant.Tenant
	membership *tenant.Membership
	session    *session.Session
}

// User returns the authenticated principal
func (a *Access) User() *identity.User {
	return a.user
}

// Tenant returns the tenant the request was authorized against, or nil for a
// tenant-agnostic pass.
func (a *Access) Tenant() *tenant.Tenant {
	return a.tenant
}

// TenantID returns the bound tenant id, or 0 for a tenant-agnostic pass
func (a *Access) TenantID() int64 {
	if a.tenant == nil {
		return 0
	}
	return a.tenant.ID
}

// Membership returns the membership backing the tenant access, or nil for
// super-admins operating without one and for tenant-agnostic passes.
func (a *Access) Membership() *tenant.Membership {
	return a.membership
}

// Session returns the validated session
func (a *Access) Session() *session.Session {
	return a.session
}

type accessContextKey struct{}

// WithAccess binds a gate result into a request context
func WithAccess(ctx context.Context, access *Access) context.Context {
	return context.WithValue(ctx, accessContextKey{}, access)
}

// FromContext extracts the gate result from a request context
func FromContext(ctx context.Context) (*Access, bool) {
	access, ok := ctx.Value(accessContextKey{}).(*Access)
	return access, ok && access != nil
}
