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

package tenant

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTenantRepo struct {
	byID   map[int64]*Tenant
	bySlug map[string]*Tenant
}

func newMockTenantRepo(tenants ...*Tenant) *mockTenantRepo {
	r := &mockTenantRepo{
		byID:   make(map[int64]*Tenant),
		bySlug: make(map[string]*Tenant),
	}
	for _, t := range tenants {
		r.byID[t.ID] = t
		r.bySlug[t.Slug] = t
	}
	return r
}

func (r *mockTenantRepo) GetByID(_ context.Context, id int64) (*Tenant, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

func (r *mockTenantRepo) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	t, ok := r.bySlug[slug]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

func (r *mockTenantRepo) Create(_ context.Context, t *Tenant) error {
	r.byID[t.ID] = t
	r.bySlug[t.Slug] = t
	return nil
}

func (r *mockTenantRepo) Update(_ context.Context, t *Tenant) error {
	r.byID[t.ID] = t
	return nil
}

func (r *mockTenantRepo) List(_ context.Context) ([]*Tenant, error) {
	var out []*Tenant
	for _, t := range r.byID {
		out = append(out, t)
	}
	return out, nil
}

type mockMembershipRepo struct {
	forUser map[int64][]*Membership
}

func (r *mockMembershipRepo) Get(_ context.Context, tenantID, userID int64) (*Membership, error) {
	for _, m := range r.forUser[userID] {
		if m.TenantID == tenantID {
			return m, nil
		}
	}
	return nil, ErrMembershipNotFound
}

func (r *mockMembershipRepo) ListForUser(_ context.Context, userID int64) ([]*Membership, error) {
	return r.forUser[userID], nil
}

func (r *mockMembershipRepo) ListForTenant(_ context.Context, tenantID int64) ([]*Membership, error) {
	var out []*Membership
	for _, ms := range r.forUser {
		for _, m := range ms {
			if m.TenantID == tenantID {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (r *mockMembershipRepo) Create(_ context.Context, m *Membership) error {
	r.forUser[m.UserID] = append(r.forUser[m.UserID], m)
	return nil
}

func (r *mockMembershipRepo) UpdateGrants(_ context.Context, tenantID, userID int64, grants []string) error {
	for _, m := range r.forUser[userID] {
		if m.TenantID == tenantID {
			m.Grants = grants
			return nil
		}
	}
	return ErrMembershipNotFound
}

func newTestResolver(tenants *mockTenantRepo, memberships *mockMembershipRepo) *Resolver {
	if memberships == nil {
		memberships = &mockMembershipRepo{forUser: make(map[int64][]*Membership)}
	}
	return NewResolver(tenants, memberships, "X-Tenant-ID", "tenant_id", []string{"www", "admin"})
}

func TestResolver_HeaderWinsOverEverything(t *testing.T) {
	repo := newMockTenantRepo(
		&Tenant{ID: 1, Slug: "acme", Active: true},
		&Tenant{ID: 2, Slug: "globex", Active: true},
	)
	r := newTestResolver(repo, nil)

	req := httptest.NewRequest("GET", "http://globex.fleet.example/api/v1/vehicles?tenant_id=2", nil)
	req.Header.Set("X-Tenant-ID", "1")

	resolved, err := r.Resolve(context.Background(), req, 0)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, int64(1), resolved.ID)
}

func TestResolver_QueryBeatsSubdomain(t *testing.T) {
	repo := newMockTenantRepo(
		&Tenant{ID: 1, Slug: "acme", Active: true},
		&Tenant{ID: 2, Slug: "globex", Active: true},
	)
	r := newTestResolver(repo, nil)

	req := httptest.NewRequest("GET", "http://globex.fleet.example/api/v1/vehicles?tenant_id=1", nil)

	resolved, err := r.Resolve(context.Background(), req, 0)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, int64(1), resolved.ID)
}

func TestResolver_ExplicitInvalidReferenceFailsClosed(t *testing.T) {
	repo := newMockTenantRepo(&Tenant{ID: 1, Slug: "acme", Active: true})
	memberships := &mockMembershipRepo{forUser: map[int64][]*Membership{
		7: {{ID: 1, TenantID: 1, UserID: 7, Role: "member", Active: true, Primary: true}},
	}}
	r := newTestResolver(repo, memberships)

	// Unknown id: must not fall through to the user's default membership.
	req := httptest.NewRequest("GET", "/api/v1/vehicles", nil)
	req.Header.Set("X-Tenant-ID", "999")
	resolved, err := r.Resolve(context.Background(), req, 7)
	assert.ErrorIs(t, err, ErrTenantNotFound)
	assert.Nil(t, resolved)

	// Malformed id likewise.
	req = httptest.NewRequest("GET", "/api/v1/vehicles?tenant_id=acme", nil)
	resolved, err = r.Resolve(context.Background(), req, 7)
	assert.ErrorIs(t, err, ErrTenantNotFound)
	assert.Nil(t, resolved)
}

func TestResolver_ExplicitMayReturnInactiveTenant(t *testing.T) {
	repo := newMockTenantRepo(&Tenant{ID: 3, Slug: "dormant", Active: false})
	r := newTestResolver(repo, nil)

	req := httptest.NewRequest("GET", "/api/v1/vehicles", nil)
	req.Header.Set("X-Tenant-ID", "3")

	resolved, err := r.Resolve(context.Background(), req, 0)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.False(t, resolved.Active)
}

func TestResolver_Subdomain(t *testing.T) {
	// Tenants with reserved slugs exist here on purpose: the subdomain path
	// must skip www/admin even when such a tenant row is present.
	repo := newMockTenantRepo(
		&Tenant{ID: 1, Slug: "acme", Active: true},
		&Tenant{ID: 2, Slug: "www", Active: true},
		&Tenant{ID: 3, Slug: "admin", Active: true},
	)
	r := newTestResolver(repo, nil)

	tests := []struct {
		name string
		host string
		want int64
	}{
		{"three labels resolve", "acme.fleet.example", 1},
		{"port is ignored", "acme.fleet.example:8443", 1},
		{"two labels never resolve", "fleet.example", 0},
		{"reserved www is skipped", "www.fleet.example", 0},
		{"reserved admin is skipped", "admin.fleet.example", 0},
		{"unknown slug falls through", "nosuch.fleet.example", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://"+tc.host+"/api/v1/vehicles", nil)
			resolved, err := r.Resolve(context.Background(), req, 0)
			require.NoError(t, err)
			if tc.want == 0 {
				assert.Nil(t, resolved)
			} else {
				require.NotNil(t, resolved)
				assert.Equal(t, tc.want, resolved.ID)
			}
		})
	}
}

func TestResolver_DefaultPrefersPrimaryMembership(t *testing.T) {
	repo := newMockTenantRepo(
		&Tenant{ID: 1, Slug: "acme", Active: true},
		&Tenant{ID: 2, Slug: "globex", Active: true},
	)
	memberships := &mockMembershipRepo{forUser: map[int64][]*Membership{
		7: {
			{ID: 1, TenantID: 1, UserID: 7, Role: "member", Active: true},
			{ID: 2, TenantID: 2, UserID: 7, Role: "member", Active: true, Primary: true},
		},
	}}
	r := newTestResolver(repo, memberships)

	req := httptest.NewRequest("GET", "http://fleet.example/api/v1/vehicles", nil)
	resolved, err := r.Resolve(context.Background(), req, 7)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, int64(2), resolved.ID)
}

func TestResolver_DefaultSkipsInactive(t *testing.T) {
	repo := newMockTenantRepo(
		&Tenant{ID: 1, Slug: "dormant", Active: false},
		&Tenant{ID: 2, Slug: "globex", Active: true},
	)
	memberships := &mockMembershipRepo{forUser: map[int64][]*Membership{
		7: {
			// Primary points at an inactive tenant, so the non-primary
			// active one wins.
			{ID: 1, TenantID: 1, UserID: 7, Role: "member", Active: true, Primary: true},
			{ID: 2, TenantID: 2, UserID: 7, Role: "member", Active: true},
		},
		8: {
			// Only an inactive membership: no default at all.
			{ID: 3, TenantID: 2, UserID: 8, Role: "member", Active: false},
		},
	}}
	r := newTestResolver(repo, memberships)

	req := httptest.NewRequest("GET", "http://fleet.example/api/v1/vehicles", nil)
	resolved, err := r.Resolve(context.Background(), req, 7)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, int64(2), resolved.ID)

	resolved, err = r.Resolve(context.Background(), req, 8)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolver_AnonymousWithoutSignalsResolvesNothing(t *testing.T) {
	repo := newMockTenantRepo(&Tenant{ID: 1, Slug: "acme", Active: true})
	r := newTestResolver(repo, nil)

	req := httptest.NewRequest("GET", "http://fleet.example/api/v1/vehicles", nil)
	resolved, err := r.Resolve(context.Background(), req, 0)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolver_DefaultForUser(t *testing.T) {
	repo := newMockTenantRepo(&Tenant{ID: 1, Slug: "acme", Active: true})
	memberships := &mockMembershipRepo{forUser: map[int64][]*Membership{
		7: {{ID: 1, TenantID: 1, UserID: 7, Role: "member", Active: true}},
	}}
	r := newTestResolver(repo, memberships)

	resolved, err := r.DefaultForUser(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, int64(1), resolved.ID)

	resolved, err = r.DefaultForUser(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}
