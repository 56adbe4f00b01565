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

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openfleet/openfleet/internal/observability/logger"
)

// Service validates, issues and retires sessions.
type Service struct {
	repo     Repository
	lifetime time.Duration
	now      func() time.Time
}

// NewService creates a new session service
func NewService(repo Repository, lifetime time.Duration) *Service {
	return &Service{
		repo:     repo,
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Create issues a new session for a user. tenantID may be nil for a
// tenant-agnostic session.
func (s *Service) Create(ctx context.Context, userID int64, tenantID *int64, ipAddress, userAgent string) (*Session, error) {
	now := s.now()
	sess := &Session{
		Token:      uuid.NewString(),
		UserID:     userID,
		TenantID:   tenantID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Active:     true,
		ExpiresAt:  now.Add(s.lifetime),
		CreatedAt:  now,
		LastSeenAt: now,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Validate resolves a token to an active, unexpired session. An expired
// session is deactivated on detection; the corrective write is best-effort
// and idempotent, so concurrent detection never turns into an error and
// never masks the expiry result. A valid session gets its last-seen
// timestamp refreshed, also best-effort; expiry itself is never extended.
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	sess, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	// Expiry is checked before the active flag so that revalidating an
	// already-deactivated expired session still reports expiry, not a
	// generic invalid session.
	if sess.IsExpired(s.now()) {
		if err := s.repo.Deactivate(ctx, token); err != nil {
			slog.WarnContext(ctx, "failed to deactivate expired session",
				logger.SessionToken(token),
				logger.Error(err),
			)
		}
		return nil, ErrSessionExpired
	}

	if !sess.Active {
		return nil, ErrSessionInvalid
	}

	if err := s.repo.Touch(ctx, token, s.now()); err != nil {
		// Last-seen is telemetry, not a correctness field
		slog.WarnContext(ctx, "failed to touch session",
			logger.SessionToken(token),
			logger.Error(err),
		)
	}

	return sess, nil
}

// Destroy deactivates a session on logout
func (s *Service) Destroy(ctx context.Context, token string) error {
	if err := s.repo.Deactivate(ctx, token); err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}

// SwitchTenant rebinds an existing session to another tenant. The caller is
// responsible for having checked that the user may access the target tenant.
func (s *Service) SwitchTenant(ctx context.Context, token string, tenantID int64) error {
	if err := s.repo.RebindTenant(ctx, token, &tenantID); err != nil {
		return fmt.Errorf("failed to rebind session tenant: %w", err)
	}
	return nil
}

// CleanupExpired deactivates all sessions past their expiry
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}
	return n, nil
}
