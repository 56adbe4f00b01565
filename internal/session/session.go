package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Domain errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionInvalid  = errors.New("session invalid")
)

// Session is the server-side record backing an issued token. TenantID is the
// tenant the session was last bound to; it may be nil for a tenant-agnostic
// session and is rebound on tenant switch without reissuing the token.
type Session struct {
	Token      string
	UserID     int64
	TenantID   *int64
	IPAddress  string
	UserAgent  string
	Active     bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// IsExpired checks if the session has expired. Expiry is fixed at issuance;
// there is no sliding renewal.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Repository defines the interface for session persistence. Sessions are
// never physically deleted by this subsystem, only deactivated.
type Repository interface {
	// Create persists a new session
	Create(ctx context.Context, sess *Session) error

	// GetByToken retrieves a session by its opaque token
	GetByToken(ctx context.Context, token string) (*Session, error)

	// Touch updates the last-seen timestamp
	Touch(ctx context.Context, token string, seenAt time.Time) error

	// Deactivate clears the active flag. Deactivating an already-inactive
	// session is a no-op, not an error.
	Deactivate(ctx context.Context, token string) error

	// RebindTenant updates the tenant a session is bound to
	RebindTenant(ctx context.Context, token string, tenantID *int64) error

	// DeactivateExpired deactivates every active session past its expiry
	// and reports how many rows changed
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenFromRequest extracts the session token from a request. Precedence,
// first match wins: Authorization bearer header, named cookie, named query
// parameter. Returns "" when no source carries a token.
func TokenFromRequest(r *http.Request, cookieName, queryParam string) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			if token := strings.TrimSpace(h[len(prefix):]); token != "" {
				return token
			}
		}
		return ""
	}

	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return strings.TrimSpace(r.URL.Query().Get(queryParam))
}
