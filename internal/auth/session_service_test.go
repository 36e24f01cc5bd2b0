// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxishub/praxis/internal/auth"
)

func newTestUser(t *testing.T, email string) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword("initial-password")
	require.NoError(t, err)
	return &auth.User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleTrainee,
		Approved:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func newSessionFixture(t *testing.T, ttl time.Duration) (*auth.SessionService, *memSessionRepo, *auth.User) {
	t.Helper()
	user := newTestUser(t, "session@example.com")
	users := newMemUserRepo(user)
	sessions := newMemSessionRepo()
	hasher, err := auth.NewSecretHasher([]byte("test-server-key"))
	require.NoError(t, err)
	return auth.NewSessionService(sessions, users, hasher, ttl), sessions, user
}

func TestSessionService_Issue(t *testing.T) {
	ctx := context.Background()
	svc, sessions, user := newSessionFixture(t, time.Hour)

	token, err := svc.Issue(ctx, user.ID, auth.Metadata{UserAgent: "Mozilla/5.0", IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	t.Run("token has the fixed external format", func(t *testing.T) {
		assert.Len(t, token, auth.TokenLength)
	})

	t.Run("stored record holds a digest, not the secret", func(t *testing.T) {
		id, secret, err := auth.ParseToken(token)
		require.NoError(t, err)
		stored, err := sessions.GetByID(ctx, id)
		require.NoError(t, err)
		assert.NotContains(t, stored.SecretDigest, secret)
		assert.Equal(t, user.ID, stored.UserID)
		assert.Equal(t, "Mozilla/5.0", stored.UserAgent)
		assert.Equal(t, "10.0.0.1", stored.IPAddress)
		assert.Nil(t, stored.RevokedAt)
	})
}

func TestSessionService_ValidateAndConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token succeeds exactly once", func(t *testing.T) {
		svc, _, user := newSessionFixture(t, time.Hour)
		token, err := svc.Issue(ctx, user.ID, auth.Metadata{})
		require.NoError(t, err)

		got, next, err := svc.ValidateAndConsume(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.NotEqual(t, token, next)

		_, _, err = svc.ValidateAndConsume(ctx, token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("rotation chain T1 T2 T3", func(t *testing.T) {
		svc, _, user := newSessionFixture(t, time.Hour)
		t1, err := svc.Issue(ctx, user.ID, auth.Metadata{})
		require.NoError(t, err)

		_, t2, err := svc.ValidateAndConsume(ctx, t1)
		require.NoError(t, err)

		_, _, err = svc.ValidateAndConsume(ctx, t1)
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))

		_, t3, err := svc.ValidateAndConsume(ctx, t2)
		require.NoError(t, err)
		assert.NotEqual(t, t2, t3)
	})

	t.Run("rotation preserves client metadata", func(t *testing.T) {
		svc, sessions, user := newSessionFixture(t, time.Hour)
		token, err := svc.Issue(ctx, user.ID, auth.Metadata{UserAgent: "curl/8.0", IPAddress: "192.0.2.1"})
		require.NoError(t, err)

		_, next, err := svc.ValidateAndConsume(ctx, token)
		require.NoError(t, err)

		id, _, err := auth.ParseToken(next)
		require.NoError(t, err)
		stored, err := sessions.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "curl/8.0", stored.UserAgent)
		assert.Equal(t, "192.0.2.1", stored.IPAddress)
	})

	t.Run("expired token is TokenExpired, not InvalidToken", func(t *testing.T) {
		svc, _, user := newSessionFixture(t, time.Millisecond)
		token, err := svc.Issue(ctx, user.ID, auth.Metadata{})
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		_, _, err = svc.ValidateAndConsume(ctx, token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, auth.ErrTokenExpired))
		assert.False(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("tampered secret is InvalidToken", func(t *testing.T) {
		svc, _, user := newSessionFixture(t, time.Hour)
		token, err := svc.Issue(ctx, user.ID, auth.Metadata{})
		require.NoError(t, err)

		id, _, err := auth.ParseToken(token)
		require.NoError(t, err)
		forged, err := auth.GenerateSessionSecret()
		require.NoError(t, err)

		_, _, err = svc.ValidateAndConsume(ctx, auth.FormatToken(id, forged))
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("unknown id is InvalidToken", func(t *testing.T) {
		svc, _, _ := newSessionFixture(t, time.Hour)
		secret, err := auth.GenerateSessionSecret()
		require.NoError(t, err)

		_, _, err = svc.ValidateAndConsume(ctx, auth.FormatToken(ulid.Make(), secret))
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("malformed string is InvalidToken", func(t *testing.T) {
		svc, _, _ := newSessionFixture(t, time.Hour)
		_, _, err := svc.ValidateAndConsume(ctx, "definitely-not-a-token")
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})
}

func TestSessionService_Revoke(t *testing.T) {
	ctx := context.Background()
	svc, _, user := newSessionFixture(t, time.Hour)

	t.Run("revoked token no longer validates", func(t *testing.T) {
		token, err := svc.Issue(ctx, user.ID, auth.Metadata{})
		require.NoError(t, err)

		svc.Revoke(ctx, token)

		_, _, err = svc.ValidateAndConsume(ctx, token)
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	})

	t.Run("garbage and unknown tokens are silent no-ops", func(t *testing.T) {
		svc.Revoke(ctx, "garbage")
		secret, err := auth.GenerateSessionSecret()
		require.NoError(t, err)
		svc.Revoke(ctx, auth.FormatToken(ulid.Make(), secret))
	})
}

func TestSessionService_RevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	svc, sessions, user := newSessionFixture(t, time.Hour)

	var tokens []string
	for range 3 {
		token, err := svc.Issue(ctx, user.ID, auth.Metadata{})
		require.NoError(t, err)
		tokens = append(tokens, token)
	}
	require.Equal(t, 3, sessions.activeCount(user.ID))

	require.NoError(t, svc.RevokeAllForUser(ctx, user.ID))
	assert.Equal(t, 0, sessions.activeCount(user.ID))

	for _, token := range tokens {
		_, _, err := svc.ValidateAndConsume(ctx, token)
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	}
}

func TestSessionService_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	svc, _, user := newSessionFixture(t, time.Millisecond)

	_, err := svc.Issue(ctx, user.ID, auth.Metadata{})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	n, err := svc.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
