// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reset code configuration.
const (
	// ResetCodeLength is the fixed code length.
	ResetCodeLength = 8

	// ResetCodeAlphabet excludes visually confusable glyphs (0/O, 1/I) so
	// codes survive being read off a phone screen and typed back in.
	ResetCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// ResetCodeExpiry is deliberately short: minutes, not days.
	ResetCodeExpiry = 15 * time.Minute
)

// ResetCode represents one password reset attempt window. A code is
// single-use: Used flips to true exactly once, on successful consumption.
type ResetCode struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// NewResetCode creates a ResetCode with a freshly generated code for userID.
func NewResetCode(userID ulid.ULID, expiresAt time.Time) (*ResetCode, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	code, err := GenerateResetCode()
	if err != nil {
		return nil, err
	}

	return &ResetCode{
		ID:        ulid.Make(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpired returns true if the reset code has expired.
func (c *ResetCode) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// GenerateResetCode draws ResetCodeLength characters from ResetCodeAlphabet,
// each chosen with cryptographically strong randomness.
func GenerateResetCode() (string, error) {
	max := big.NewInt(int64(len(ResetCodeAlphabet)))
	buf := make([]byte, ResetCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", oops.Code("RESET_CODE_GENERATE_FAILED").
				With("operation", "crypto/rand.Int").
				Wrap(err)
		}
		buf[i] = ResetCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// Notifier delivers reset codes out-of-band. Fire-and-forget from the core's
// perspective, except that a delivery error must surface to the caller.
type Notifier interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// ResetCodeRepository manages reset code persistence.
type ResetCodeRepository interface {
	// Create stores a new reset code.
	Create(ctx context.Context, code *ResetCode) error

	// GetLatestUnused retrieves the most recently created unused code
	// matching (userID, code). Returns ErrNotFound if none matches.
	GetLatestUnused(ctx context.Context, userID ulid.ULID, code string) (*ResetCode, error)

	// MarkUsed sets Used=true for a code. Terminal; never unset.
	MarkUsed(ctx context.Context, id ulid.ULID) error

	// DeleteExpired removes expired codes and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)
}
