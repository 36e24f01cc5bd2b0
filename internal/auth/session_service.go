// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionService owns the full lifecycle of session tokens: issue, validate,
// rotate, revoke. State machine per token is Active -> Revoked (one-way);
// expiry is computed at check time from ExpiresAt, not stored as a state.
type SessionService struct {
	sessions SessionRepository
	users    UserRepository
	hasher   *SecretHasher
	ttl      time.Duration
}

// NewSessionService creates a SessionService. A non-positive ttl falls back
// to DefaultSessionTTL.
func NewSessionService(sessions SessionRepository, users UserRepository, hasher *SecretHasher, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		sessions: sessions,
		users:    users,
		hasher:   hasher,
		ttl:      ttl,
	}
}

// Issue mints a fresh session token for user. The returned string is the only
// copy of the plaintext secret; storage keeps just its keyed digest, so a lost
// token can never be re-derived.
func (s *SessionService) Issue(ctx context.Context, userID ulid.ULID, meta Metadata) (string, error) {
	secret, err := GenerateSessionSecret()
	if err != nil {
		return "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "generate secret").
			Wrap(err)
	}

	session, err := NewSession(userID, s.hasher.Digest(secret), meta.UserAgent, meta.IPAddress, time.Now().Add(s.ttl))
	if err != nil {
		return "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", oops.Code("SESSION_ISSUE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	return FormatToken(session.ID, secret), nil
}

// ValidateAndConsume validates a presented token and rotates it: the
// presented token is revoked and a brand-new one is issued for the same user.
// A stolen-and-reused old token is therefore detectable (its single future
// use already happened) and can never be replayed.
//
// The revoke write lands before the replacement insert so that any later
// validation of the old token observes it as revoked.
func (s *SessionService) ValidateAndConsume(ctx context.Context, token string) (*User, string, error) {
	id, secret, err := ParseToken(token)
	if err != nil {
		return nil, "", err
	}

	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", oops.Code("SESSION_INVALID").Wrap(ErrInvalidToken)
		}
		return nil, "", oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by id").
			Wrap(err)
	}

	if session.RevokedAt != nil {
		return nil, "", oops.Code("SESSION_REVOKED").Wrap(ErrInvalidToken)
	}
	if session.IsExpired() {
		return nil, "", oops.Code("SESSION_EXPIRED").Wrap(ErrTokenExpired)
	}
	if !s.hasher.Verify(secret, session.SecretDigest) {
		return nil, "", oops.Code("SESSION_SECRET_MISMATCH").Wrap(ErrInvalidToken)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", oops.Code("SESSION_ORPHANED").Wrap(ErrInvalidToken)
		}
		return nil, "", oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session owner").
			Wrap(err)
	}

	// Rotate: revoke first, then issue the replacement.
	if err := s.sessions.Revoke(ctx, session.ID, time.Now()); err != nil {
		return nil, "", oops.Code("SESSION_ROTATE_FAILED").
			With("operation", "revoke presented token").
			With("session_id", session.ID.String()).
			Wrap(err)
	}

	next, err := s.Issue(ctx, user.ID, Metadata{UserAgent: session.UserAgent, IPAddress: session.IPAddress})
	if err != nil {
		return nil, "", oops.Code("SESSION_ROTATE_FAILED").
			With("operation", "issue replacement token").
			Wrap(err)
	}

	return user, next, nil
}

// Revoke marks the session behind token as revoked, best-effort. Unparseable
// and unknown tokens are silently ignored; failing loudly on an
// already-invalid token is not useful to a logout caller.
func (s *SessionService) Revoke(ctx context.Context, token string) {
	id, _, err := ParseToken(token)
	if err != nil {
		return
	}
	_ = s.sessions.Revoke(ctx, id, time.Now()) //nolint:errcheck // Best effort, logout succeeds regardless
}

// RevokeAllForUser revokes every still-active session owned by userID. Used
// on credential-changing events so that no other session survives the change.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID ulid.ULID) error {
	if err := s.sessions.RevokeAllForUser(ctx, userID, time.Now()); err != nil {
		return oops.Code("SESSION_REVOKE_ALL_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes expired sessions from storage and returns the count.
// Intended for a periodic cleanup job.
func (s *SessionService) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return n, nil
}
