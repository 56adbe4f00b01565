package tenant

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrMembershipNotFound = errors.New("membership not found")
)

// Tenant represents an isolated organization context. All business data is
// scoped to exactly one tenant.
type Tenant struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership ties a user to a tenant with a role, an active flag and an
// optional set of fine-grained "resource:action" grants. A membership grants
// anything only while both it and its tenant are active.
type Membership struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	Primary   bool      `json:"is_primary"`
	Grants    []string  `json:"grants,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the interface for tenant storage
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Create(ctx context.Context, tenant *Tenant) error
	Update(ctx context.Context, tenant *Tenant) error
	List(ctx context.Context) ([]*Tenant, error)
}

// MembershipRepository defines the interface for user-tenant membership storage
type MembershipRepository interface {
	// Get retrieves the membership linking a user to a tenant
	Get(ctx context.Context, tenantID, userID int64) (*Membership, error)

	// ListForUser retrieves all memberships of a user, ordered by id ascending
	ListForUser(ctx context.Context, userID int64) ([]*Membership, error)

	// ListForTenant retrieves all memberships of a tenant
	ListForTenant(ctx context.Context, tenantID int64) ([]*Membership, error)

	// Create creates a new membership
	Create(ctx context.Context, m *Membership) error

	// UpdateGrants replaces the fine-grained grant set of a membership
	UpdateGrants(ctx context.Context, tenantID, userID int64, grants []string) error
}
