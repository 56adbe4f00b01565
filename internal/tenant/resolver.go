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
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Resolver derives the tenant context of a request. Precedence, first match
// wins: explicit header, explicit query parameter, host subdomain, then the
// principal's default membership. An explicit numeric reference that does not
// exist fails the whole resolution; it never silently degrades to a later
// step.
type Resolver struct {
	tenants       Repository
	memberships   MembershipRepository
	headerName    string
	queryParam    string
	reservedSlugs map[string]struct{}
}

// NewResolver creates a tenant resolver
func NewResolver(tenants Repository, memberships MembershipRepository, headerName, queryParam string, reservedSlugs []string) *Resolver {
	reserved := make(map[string]struct{}, len(reservedSlugs))
	for _, s := range reservedSlugs {
		reserved[strings.ToLower(s)] = struct{}{}
	}
	return &Resolver{
		tenants:       tenants,
		memberships:   memberships,
		headerName:    headerName,
		queryParam:    queryParam,
		reservedSlugs: reserved,
	}
}

// Resolve returns the tenant a request addresses, or nil when no tenant
// signal is present and the user has no usable default membership. The
// returned tenant may be inactive; activity is an access decision, not a
// resolution one. Pass userID <= 0 for anonymous resolution.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request, userID int64) (*Tenant, error) {
	// 1. Explicit tenant header
	if raw := strings.TrimSpace(req.Header.Get(r.headerName)); raw != "" {
		return r.resolveExplicit(ctx, raw)
	}

	// 2. Explicit tenant query parameter
	if raw := strings.TrimSpace(req.URL.Query().Get(r.queryParam)); raw != "" {
		return r.resolveExplicit(ctx, raw)
	}

	// 3. Host subdomain
	if t, err := r.resolveSubdomain(ctx, req.Host); err != nil {
		return nil, err
	} else if t != nil {
		return t, nil
	}

	// 4. Default membership of the principal
	if userID > 0 {
		return r.resolveDefault(ctx, userID)
	}

	return nil, nil
}

// DefaultForUser returns the user's implicit default tenant, or nil when no
// active membership points at an active tenant. Used at login to pick the
// initial session binding.
func (r *Resolver) DefaultForUser(ctx context.Context, userID int64) (*Tenant, error) {
	return r.resolveDefault(ctx, userID)
}

// resolveExplicit handles an explicit numeric tenant reference. A malformed
// or unknown reference fails closed.
func (r *Resolver) resolveExplicit(ctx context.Context, raw string) (*Tenant, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: invalid tenant reference %q", ErrTenantNotFound, raw)
	}

	t, err := r.tenants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTenantNotFound, id)
		}
		return nil, fmt.Errorf("failed to look up tenant %d: %w", id, err)
	}
	return t, nil
}

// resolveSubdomain extracts a candidate slug from the request host. A host
// needs at least 3 labels for its first label to count as a slug; reserved
// slugs never resolve. A candidate that matches no tenant falls through to
// the next resolution step rather than failing.
func (r *Resolver) resolveSubdomain(ctx context.Context, host string) (*Tenant, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return nil, nil
	}

	slug := labels[0]
	if slug == "" {
		return nil, nil
	}
	if _, reserved := r.reservedSlugs[slug]; reserved {
		return nil, nil
	}

	t, err := r.tenants.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up tenant slug %q: %w", slug, err)
	}
	return t, nil
}

// resolveDefault picks the user's implicit default tenant: among active
// memberships, a primary one wins, otherwise the lowest membership id. Only
// tenants that exist and are active qualify as defaults; this is a
// convenience fallback and must never surface a tenant the later access
// check would not even recognize.
func (r *Resolver) resolveDefault(ctx context.Context, userID int64) (*Tenant, error) {
	memberships, err := r.memberships.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships for user %d: %w", userID, err)
	}

	var candidates []*Membership
	for _, m := range memberships {
		if m.Active {
			candidates = append(candidates, m)
		}
	}
	// Primary flag is authoritative for default selection; the stored data
	// does not enforce its uniqueness, so the first primary by id wins.
	ordered := make([]*Membership, 0, len(candidates))
	for _, m := range candidates {
		if m.Primary {
			ordered = append(ordered, m)
		}
	}
	for _, m := range candidates {
		if !m.Primary {
			ordered = append(ordered, m)
		}
	}

	for _, m := range ordered {
		t, err := r.tenants.GetByID(ctx, m.TenantID)
		if err != nil {
			if errors.Is(err, ErrTenantNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to look up tenant %d: %w", m.TenantID, err)
		}
		if t.Active {
			return t, nil
		}
	}

	return nil, nil
}
