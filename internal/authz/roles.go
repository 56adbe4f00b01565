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

// -----------------------------------------------------------------------------
// Membership Role Constants
// These are the canonical role names stored on membership records.
// -----------------------------------------------------------------------------

const (
	// RoleMember is the ordinary membership role.
	// Default permissions: read on every resource type. Anything further
	// requires an explicit grant on the membership.
	RoleMember = "member"

	// RoleTenantAdmin is the tenant administrator role.
	// Default permissions: all CRUD actions on every resource type plus the
	// manage_users, manage_settings and tenant_admin tenant-scoped actions.
	RoleTenantAdmin = "tenant_admin"
)

// roleAllows returns the role-derived default for a resource/action pair,
// consulted only when the membership carries no explicit grant for the
// resource type. Unrecognized roles deny.
func roleAllows(role string, ra ResourceAction) bool {
	switch role {
	case RoleTenantAdmin:
		return true
	case RoleMember:
		return ra.Action == ActionRead
	}
	return false
}

// roleAllowsTenantAction returns the role-derived default for a tenant-scoped
// management action. tenant_super_admin is never implied by a role; it
// requires the global super-admin flag or an explicit grant mechanism outside
// role defaults.
func roleAllowsTenantAction(role string, action TenantAction) bool {
	if role != RoleTenantAdmin {
		return false
	}
	switch action {
	case TenantActionManageUsers, TenantActionManageSettings, TenantActionAdmin:
		return true
	case TenantActionSuperAdmin:
		return false
	}
	return false
}
