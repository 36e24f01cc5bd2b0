// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token format. The handed-out string is "<id><sep><secret>": a ULID
// (26 chars, Crockford base32) plus 32 random bytes hex-encoded (64 chars).
// The separator appears in neither alphabet, and the total length is fixed so
// the boundary can reject malformed tokens with a plain length check.
const (
	SessionSecretBytes = 32
	TokenSeparator     = "."
	TokenIDLength      = 26 // ulid.EncodedSize
	TokenSecretLength  = SessionSecretBytes * 2
	TokenLength        = TokenIDLength + len(TokenSeparator) + TokenSecretLength
	DefaultSessionTTL  = 30 * 24 * time.Hour
)

// Session represents one long-lived authenticated session. Only the digest of
// the secret half is stored; the plaintext secret exists in memory just long
// enough to hand the token string to the client.
type Session struct {
	ID           ulid.ULID
	UserID       ulid.ULID
	SecretDigest string
	UserAgent    string // advisory only
	IPAddress    string // advisory only
	ExpiresAt    time.Time
	RevokedAt    *time.Time // nil = active
	CreatedAt    time.Time
}

// NewSession creates a validated Session instance.
// UserAgent and IPAddress are optional and may be empty.
func NewSession(userID ulid.ULID, secretDigest, userAgent, ipAddress string, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if secretDigest == "" {
		return nil, oops.Code("SESSION_INVALID_DIGEST").Errorf("secret digest cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &Session{
		ID:           ulid.Make(),
		UserID:       userID,
		SecretDigest: secretDigest,
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
		ExpiresAt:    expiresAt,
		CreatedAt:    time.Now(),
	}, nil
}

// Active reports whether the session is usable at time now: not revoked and
// not past its expiry. A revoked session is never reactivated.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Metadata carries the advisory client info recorded on issued sessions.
type Metadata struct {
	UserAgent string
	IPAddress string
}

// GenerateSessionSecret creates the random secret half of a session token.
func GenerateSessionSecret() (string, error) {
	buf := make([]byte, SessionSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("SESSION_SECRET_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionSecretBytes).
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}

// FormatToken assembles the external token string from its halves.
func FormatToken(id ulid.ULID, secret string) string {
	return id.String() + TokenSeparator + secret
}

// ParseToken splits a token string into its id and secret halves. Wrong part
// count, empty parts, wrong lengths, and unparseable ids are all rejected.
func ParseToken(token string) (ulid.ULID, string, error) {
	if len(token) != TokenLength {
		return ulid.ULID{}, "", oops.Code("SESSION_TOKEN_MALFORMED").
			With("length", len(token)).
			Wrap(ErrInvalidToken)
	}
	parts := strings.Split(token, TokenSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ulid.ULID{}, "", oops.Code("SESSION_TOKEN_MALFORMED").Wrap(ErrInvalidToken)
	}
	id, err := ulid.Parse(parts[0])
	if err != nil {
		return ulid.ULID{}, "", oops.Code("SESSION_TOKEN_MALFORMED").
			With("operation", "parse token id").
			Wrap(ErrInvalidToken)
	}
	return id, parts[1], nil
}

// SessionRepository manages session persistence. Each call completes or
// fails atomically; no multi-call transactions are required by the core.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByID retrieves a session by its ID.
	// Returns ErrNotFound if no session has the given ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Session, error)

	// Revoke sets RevokedAt for a single session.
	Revoke(ctx context.Context, id ulid.ULID, revokedAt time.Time) error

	// RevokeAllForUser sets RevokedAt on every still-active session owned by
	// userID. Each row's revocation is an independent atomic write.
	RevokeAllForUser(ctx context.Context, userID ulid.ULID, revokedAt time.Time) error

	// DeleteExpired removes all expired sessions and returns the count of
	// deleted records.
	DeleteExpired(ctx context.Context) (int64, error)
}
