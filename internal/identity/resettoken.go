package identity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetTokenIssuer issues and verifies HMAC-signed password reset tokens.
// Tokens are single-purpose: the audience claim pins them to the reset flow
// so a leaked token cannot be replayed anywhere else.
type ResetTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

const resetAudience = "password-reset"

// NewResetTokenIssuer creates a reset token issuer
func NewResetTokenIssuer(secret string, ttl time.Duration) *ResetTokenIssuer {
	return &ResetTokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed reset token for the given user
func (i *ResetTokenIssuer) Issue(userID int64, email string) (string, error) {
	if len(i.secret) == 0 {
		return "", fmt.Errorf("reset token secret is not configured")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Audience:  jwt.ClaimStrings{resetAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return signed, nil
}

// Verify validates a reset token and returns the user it was issued for
func (i *ResetTokenIssuer) Verify(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithAudience(resetAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("invalid reset token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid reset token claims")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid reset token subject: %w", err)
	}
	return userID, nil
}
