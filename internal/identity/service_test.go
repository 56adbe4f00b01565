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

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfleet/openfleet/internal/audit"
)

// MockUserRepository is a simple in-memory implementation of UserRepository
type MockUserRepository struct {
	users       map[int64]*User
	credentials map[int64]*Credentials
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:       make(map[int64]*User),
		credentials: make(map[int64]*Credentials),
	}
}

func (m *MockUserRepository) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserRepository) GetCredentials(_ context.Context, userID int64) (*Credentials, error) {
	c, ok := m.credentials[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return c, nil
}

func (m *MockUserRepository) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	m.credentials[userID] = &Credentials{UserID: userID, PasswordHash: passwordHash}
	return nil
}

func (m *MockUserRepository) UpdateLockout(_ context.Context, userID int64, failedAttempts int, lockedUntil *time.Time) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.FailedLoginAttempts = failedAttempts
	u.LockedUntil = lockedUntil
	return nil
}

func testHasher() *PasswordHasher {
	// Deliberately small parameters to keep the suite fast
	return NewPasswordHasher(8192, 1, 1, 16, 32)
}

func newTestService(repo *MockUserRepository) *Service {
	return NewService(
		repo,
		testHasher(),
		audit.NewSlogLogger(),
		3,
		5*time.Minute,
		NewResetTokenIssuer("test-secret", time.Hour),
	)
}

func seedUser(t *testing.T, repo *MockUserRepository, id int64, email, password string) {
	t.Helper()
	repo.users[id] = &User{ID: id, Email: email, Active: true}
	hash, err := testHasher().Hash(password)
	require.NoError(t, err)
	repo.credentials[id] = &Credentials{UserID: id, PasswordHash: hash}
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("CorrectHorse9")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := h.Verify("CorrectHorse9", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("WrongHorse9", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate_SuccessAndLockout(t *testing.T) {
	repo := NewMockUserRepository()
	seedUser(t, repo, 10, "member@acme.test", "CorrectHorse9")
	s := newTestService(repo)
	ctx := context.Background()

	user, err := s.Authenticate(ctx, "member@acme.test", "CorrectHorse9")
	require.NoError(t, err)
	assert.Equal(t, int64(10), user.ID)

	// Unknown account
	_, err = s.Authenticate(ctx, "nobody@acme.test", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Three failures reach the lockout threshold
	for i := 0; i < 3; i++ {
		_, err = s.Authenticate(ctx, "member@acme.test", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Correct password no longer helps while locked
	_, err = s.Authenticate(ctx, "member@acme.test", "CorrectHorse9")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthenticate_SuccessClearsFailedAttempts(t *testing.T) {
	repo := NewMockUserRepository()
	seedUser(t, repo, 10, "member@acme.test", "CorrectHorse9")
	s := newTestService(repo)
	ctx := context.Background()

	_, _ = s.Authenticate(ctx, "member@acme.test", "wrong")
	_, _ = s.Authenticate(ctx, "member@acme.test", "wrong")
	require.Equal(t, 2, repo.users[10].FailedLoginAttempts)

	_, err := s.Authenticate(ctx, "member@acme.test", "CorrectHorse9")
	require.NoError(t, err)
	assert.Equal(t, 0, repo.users[10].FailedLoginAttempts)
	assert.Nil(t, repo.users[10].LockedUntil)
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	repo := NewMockUserRepository()
	seedUser(t, repo, 10, "gone@acme.test", "CorrectHorse9")
	repo.users[10].Active = false
	s := newTestService(repo)

	_, err := s.Authenticate(context.Background(), "gone@acme.test", "CorrectHorse9")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	repo := NewMockUserRepository()
	seedUser(t, repo, 10, "member@acme.test", "CorrectHorse9")
	s := newTestService(repo)
	ctx := context.Background()

	// Wrong old password
	err := s.ChangePassword(ctx, 10, "wrong", "NewPassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Weak new password
	err = s.ChangePassword(ctx, 10, "CorrectHorse9", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	// Success
	err = s.ChangePassword(ctx, 10, "CorrectHorse9", "NewPassword1")
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "member@acme.test", "NewPassword1")
	assert.NoError(t, err)
}

func TestPasswordReset_Flow(t *testing.T) {
	repo := NewMockUserRepository()
	seedUser(t, repo, 10, "member@acme.test", "CorrectHorse9")
	s := newTestService(repo)
	ctx := context.Background()

	token, err := s.RequestPasswordReset(ctx, "member@acme.test")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, s.ResetPassword(ctx, token, "FreshPassword1"))

	_, err = s.Authenticate(ctx, "member@acme.test", "FreshPassword1")
	assert.NoError(t, err)
}

func TestPasswordReset_UnknownEmailDisclosesNothing(t *testing.T) {
	s := newTestService(NewMockUserRepository())

	token, err := s.RequestPasswordReset(context.Background(), "nobody@acme.test")
	assert.NoError(t, err)
	assert.Empty(t, token)
}

func TestPasswordReset_InvalidToken(t *testing.T) {
	repo := NewMockUserRepository()
	seedUser(t, repo, 10, "member@acme.test", "CorrectHorse9")
	s := newTestService(repo)

	err := s.ResetPassword(context.Background(), "not-a-jwt", "FreshPassword1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetTokenIssuer_RejectsForeignSecret(t *testing.T) {
	issuer := NewResetTokenIssuer("secret-a", time.Hour)
	other := NewResetTokenIssuer("secret-b", time.Hour)

	token, err := issuer.Issue(10, "member@acme.test")
	require.NoError(t, err)

	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(10), userID)

	_, err = other.Verify(token)
	assert.Error(t, err)
}
