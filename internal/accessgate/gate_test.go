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
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfleet/openfleet/internal/audit"
	"github.com/openfleet/openfleet/internal/authz"
	"github.com/openfleet/openfleet/internal/identity"
	"github.com/openfleet/openfleet/internal/session"
	"github.com/openfleet/openfleet/internal/tenant"
)

type mockUserRepo struct {
	users map[int64]*identity.User
}

func (r *mockUserRepo) GetByID(_ context.Context, id int64) (*identity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (r *mockUserRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (r *mockUserRepo) GetCredentials(_ context.Context, userID int64) (*identity.Credentials, error) {
	return nil, identity.ErrUserNotFound
}

func (r *mockUserRepo) UpdatePassword(_ context.Context, userID int64, hash string) error {
	return nil
}

func (r *mockUserRepo) UpdateLockout(_ context.Context, userID int64, attempts int, until *time.Time) error {
	return nil
}

type mockTenantRepo struct {
	byID   map[int64]*tenant.Tenant
	bySlug map[string]*tenant.Tenant
}

func (r *mockTenantRepo) GetByID(_ context.Context, id int64) (*tenant.Tenant, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (r *mockTenantRepo) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	t, ok := r.bySlug[slug]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (r *mockTenantRepo) Create(_ context.Context, t *tenant.Tenant) error { return nil }
func (r *mockTenantRepo) Update(_ context.Context, t *tenant.Tenant) error { return nil }
func (r *mockTenantRepo) List(_ context.Context) ([]*tenant.Tenant, error) {
	return nil, nil
}

type mockMembershipRepo struct {
	memberships []*tenant.Membership
}

func (r *mockMembershipRepo) Get(_ context.Context, tenantID, userID int64) (*tenant.Membership, error) {
	for _, m := range r.memberships {
		if m.TenantID == tenantID && m.UserID == userID {
			return m, nil
		}
	}
	return nil, tenant.ErrMembershipNotFound
}

func (r *mockMembershipRepo) ListForUser(_ context.Context, userID int64) ([]*tenant.Membership, error) {
	var out []*tenant.Membership
	for _, m := range r.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *mockMembershipRepo) ListForTenant(_ context.Context, tenantID int64) ([]*tenant.Membership, error) {
	return nil, nil
}

func (r *mockMembershipRepo) Create(_ context.Context, m *tenant.Membership) error {
	r.memberships = append(r.memberships, m)
	return nil
}

func (r *mockMembershipRepo) UpdateGrants(_ context.Context, tenantID, userID int64, grants []string) error {
	return nil
}

type mockSessionRepo struct {
	sessions map[string]*session.Session
}

func (r *mockSessionRepo) Create(_ context.Context, s *session.Session) error {
	r.sessions[s.Token] = s
	return nil
}

func (r *mockSessionRepo) GetByToken(_ context.Context, token string) (*session.Session, error) {
	s, ok := r.sessions[token]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

func (r *mockSessionRepo) Touch(_ context.Context, token string, seenAt time.Time) error {
	return nil
}

func (r *mockSessionRepo) Deactivate(_ context.Context, token string) error {
	if s, ok := r.sessions[token]; ok {
		s.Active = false
	}
	return nil
}

func (r *mockSessionRepo) RebindTenant(_ context.Context, token string, tenantID *int64) error {
	return nil
}

func (r *mockSessionRepo) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// gateFixture wires a gate over in-memory state:
//
//	tenant 1 "acme"    active, user 10 member, user 11 tenant_admin
//	tenant 2 "dormant" inactive, user 10 member
//	user 13 super-admin with no memberships
type gateFixture struct {
	gate        *Gate
	sessionRepo *mockSessionRepo
	tokenSeq    int
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	users := &mockUserRepo{users: map[int64]*identity.User{
		10: {ID: 10, Email: "member@acme.test", Active: true},
		11: {ID: 11, Email: "admin@acme.test", Active: true},
		12: {ID: 12, Email: "gone@acme.test", Active: false},
		13: {ID: 13, Email: "root@fleet.test", Active: true, SuperAdmin: true},
	}}
	tenants := &mockTenantRepo{
		byID: map[int64]*tenant.Tenant{
			1: {ID: 1, Slug: "acme", Active: true},
			2: {ID: 2, Slug: "dormant", Active: false},
		},
		bySlug: map[string]*tenant.Tenant{
			"acme":    {ID: 1, Slug: "acme", Active: true},
			"dormant": {ID: 2, Slug: "dormant", Active: false},
		},
	}
	memberships := &mockMembershipRepo{memberships: []*tenant.Membership{
		{ID: 1, TenantID: 1, UserID: 10, Role: authz.RoleMember, Active: true, Primary: true},
		{ID: 2, TenantID: 1, UserID: 11, Role: authz.RoleTenantAdmin, Active: true},
		{ID: 3, TenantID: 2, UserID: 10, Role: authz.RoleMember, Active: true},
	}}
	sessionRepo := &mockSessionRepo{sessions: make(map[string]*session.Session)}

	hasher := identity.NewPasswordHasher(8192, 1, 1, 16, 32)
	identityService := identity.NewService(
		users, hasher, audit.NewSlogLogger(), 3, 5*time.Minute,
		identity.NewResetTokenIssuer("test-secret", time.Hour),
	)
	sessionService := session.NewService(sessionRepo, 24*time.Hour)
	resolver := tenant.NewResolver(tenants, memberships, "X-Tenant-ID", "tenant_id", []string{"www", "admin"})
	evaluator := authz.NewEvaluator(memberships)

	gate := New(
		sessionService, identityService, resolver, evaluator,
		audit.NewSlogLogger(), nil,
		Config{CookieName: "session_token", TokenQueryParam: "session_token"},
	)
	return &gateFixture{gate: gate, sessionRepo: sessionRepo}
}

func (f *gateFixture) session(userID int64, expiresAt time.Time) *session.Session {
	f.tokenSeq++
	s := &session.Session{
		Token:      fmt.Sprintf("tok-%d", f.tokenSeq),
		UserID:     userID,
		Active:     true,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now(),
		LastSeenAt: time.Now(),
	}
	f.sessionRepo.sessions[s.Token] = s
	return s
}

func request(token, host, path string) *http.Request {
	req := httptest.NewRequest("GET", "http://"+host+path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestGate_NoTokenIsUnauthorized(t *testing.T) {
	f := newGateFixture(t)

	access, gerr := f.gate.Authorize(request("", "fleet.test", "/api/v1/vehicles"), Options{})
	require.NotNil(t, gerr)
	assert.Nil(t, access)
	assert.Equal(t, KindAuthenticationRequired, gerr.Kind)
	assert.Equal(t, http.StatusUnauthorized, gerr.Status)

	body := gerr.Body()
	assert.False(t, body.Success)
	assert.Equal(t, "Authentication Required", body.Error)
	assert.Equal(t, http.StatusUnauthorized, body.Code)
}

func TestGate_ExpiredSessionIsDeactivatedAndUnauthorized(t *testing.T) {
	f := newGateFixture(t)
	sess := f.session(10, time.Now().Add(-time.Minute))

	_, gerr := f.gate.Authorize(request(sess.Token, "fleet.test", "/api/v1/vehicles"), Options{})
	require.NotNil(t, gerr)
	assert.Equal(t, KindAuthenticationRequired, gerr.Kind)
	assert.Equal(t, "Your session has expired.", gerr.Message)
	assert.False(t, f.sessionRepo.sessions[sess.Token].Active)

	// The retired session still reports expiry on revalidation.
	_, gerr = f.gate.Authorize(request(sess.Token, "fleet.test", "/api/v1/vehicles"), Options{})
	require.NotNil(t, gerr)
	assert.Equal(t, KindAuthenticationRequired, gerr.Kind)
	assert.Equal(t, "Your session has expired.", gerr.Message)
	assert.False(t, f.sessionRepo.sessions[sess.Token].Active)
}

func TestGate_InactiveUserIsUnauthorized(t *testing.T) {
	f := newGateFixture(t)
	sess := f.session(12, time.Now().Add(time.Hour))

	_, gerr := f.gate.Authorize(request(sess.Token, "fleet.test", "/api/v1/vehicles"), Options{})
	require.NotNil(t, gerr)
	assert.Equal(t, KindAuthenticationRequired, gerr.Kind)
}

func TestGate_UnknownExplicitTenantIsNotFound(t *testing.T) {
	f := newGateFixture(t)
	sess := f.session(10, time.Now().Add(time.Hour))

	req := request(sess.Token, "fleet.test", "/api/v1/vehicles")
	req.Header.Set("X-Tenant-ID", "999")

	_, gerr := f.gate.Authorize(req, Options{})
	require.NotNil(t, gerr)
	assert.Equal(t, KindTenantNotFound, gerr.Kind)
	assert.Equal(t, http.StatusNotFound, gerr.Status)
}

func TestGate_ResolvedDefaultWhenNoSignal(t *testing.T) {
	f := newGateFixture(t)
	sess := f.session(10, time.Now().Add(time.Hour))

	access, gerr := f.gate.Authorize(request(sess.Token, "fleet.test", "/api/v1/vehicles"), Options{})
	require.Nil(t, gerr)
	require.NotNil(t, access)
	assert.Equal(t, int64(1), access.TenantID())
	require.NotNil(t, access.Membership())
	assert.Equal(t, authz.RoleMember, access.Membership().Role)
}

func TestGate_NoTenantContextIsBadRequest(t *testing.T) {
	f := newGateFixture(t)
	// Super-admin has no memberships, so nothing resolves implicitly.
	sess := f.session(13, time.Now().Add(time.Hour))

	_, gerr := f.gate.Authorize(request(sess.Token, "fleet.test", "/api/v1/vehicles"), Options{})
	require.NotNil(t, gerr)
	assert.Equal(t, KindTenantContextRequired, gerr.Kind)
	assert.Equal(t, http.StatusBadRequest, gerr.Status)
}

func TestGate_InactiveTenantIsAccessDenied(t *testing.T) {
	f := newGateFixture(t)
	sess := f.session(10, time.Now().Add(time.Hour))

	// Subdomain resolves the inactive tenant; the access check denies it.
	req := request(sess.Token, "dormant.fleet.test", "/api/v1/vehicles")
	_, gerr := f.gate.Authorize(req, Options{})
	require.NotNil(t, gerr)
	assert.Equal(t, KindAccessDenied, gerr.Kind)
	assert.Equal(t, http.StatusForbidden, gerr.Status)
}

func TestGate_NonMemberIsAccessDenied(t *testing.T) {
	f := newGateFixture(t)
	// User 11 has no membership in tenant 2.
	sess := f.session(11, time.Now().Add(time.Hour))

	req := request(sess.Token, "fleet.test", "/api/v1/vehicles")
	req.Header.Set("X-Tenant-ID", "2")
	_, gerr := f.gate.Authorize(req, Options{})
	require.NotNil(t, gerr)
	assert.Equal(t, KindAccessDenied, gerr.Kind)
}

func TestGate_MemberIsReadOnly(t *testing.T) {
	f := newGateFixture(t)
	sess := f.session(10, time.Now().Add(time.Hour))

	read := authz.ResourceAction{Resource: authz.ResourceVehicle, Action: authz.ActionRead}
	access, gerr := f.gate.Authorize(
		request(sess.Token, "acme.fleet.test", "/api/v1/vehicles"),
		Options{Permission: &read},
	)
	require.Nil(t, gerr)
	assert.Equal(t, int64(1), access.TenantID())

	del := authz.ResourceAction{Resource: authz.ResourceVehicle, Action: authz.ActionDelete}
	_, gerr = f.gate.Authorize(
		request(sess.Token, "acme.fleet.test", "/api/v1/vehicles/1"),
		Options{Permission: &del},
	)
	require.NotNil(t, gerr)
	assert.Equal(t, KindPermissionDenied, gerr.Kind)
	assert.Equal(t, http.StatusForbidden, gerr.Status)
}

func TestGate_TenantAdminPassesTenantAction(t *testing.T) {
	f := newGateFixture(t)
	adminSess := f.session(11, time.Now().Add(time.Hour))
	memberSess := f.session(10, time.Now().Add(time.Hour))

	manage := authz.TenantActionManageUsers
	access, gerr := f.gate.Authorize(
		request(adminSess.Token, "acme.fleet.test", "/api/v1/members"),
		Options{TenantAction: &manage},
	)
	require.Nil(t, gerr)
	assert.Equal(t, authz.RoleTenantAdmin, access.Membership().Role)

	_, gerr = f.gate.Authorize(
		request(memberSess.Token, "acme.fleet.test", "/api/v1/members"),
		Options{TenantAction: &manage},
	)
	require.NotNil(t, gerr)
	assert.Equal(t, KindPermissionDenied, gerr.Kind)
}

func TestGate_SuperAdminWithoutMembership(t *testing.T) {
	f := newGateFixture(t)
	sess := f.session(13, time.Now().Add(time.Hour))

	del := authz.ResourceAction{Resource: authz.ResourceVehicle, Action: authz.ActionDelete}
	req := request(sess.Token, "fleet.test", "/api/v1/vehicles/1")
	req.Header.Set("X-Tenant-ID", "1")

	access, gerr := f.gate.Authorize(req, Options{Permission: &del})
	require.Nil(t, gerr)
	assert.Equal(t, int64(1), access.TenantID())
	assert.Nil(t, access.Membership())
	assert.True(t, access.User().SuperAdmin)
}

func TestGate_TenantAgnosticPass(t *testing.T) {
	f := newGateFixture(t)
	// Super-admin with no memberships would fail tenant resolution, but an
	// exempt route does not attempt it.
	sess := f.session(13, time.Now().Add(time.Hour))

	access, gerr := f.gate.Authorize(
		request(sess.Token, "fleet.test", "/api/v1/tenants/mine"),
		Options{TenantAgnostic: true},
	)
	require.Nil(t, gerr)
	assert.Nil(t, access.Tenant())
	assert.Zero(t, access.TenantID())
	assert.Equal(t, int64(13), access.User().ID)
	require.NotNil(t, access.Session())
}

func TestAccess_FromContextRoundTrip(t *testing.T) {
	access := &Access{user: &identity.User{ID: 10}}
	ctx := WithAccess(context.Background(), access)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, access, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
