// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// ResetService handles the password reset code flow. State machine per code:
// issued (unused) -> verified (checked, still unused) -> consumed (used),
// with expiry as a time-derived condition at any unconsumed state.
type ResetService struct {
	users    UserRepository
	codes    ResetCodeRepository
	sessions *SessionService
	notifier Notifier
	ttl      time.Duration
}

// NewResetService creates a ResetService. A non-positive ttl falls back to
// ResetCodeExpiry.
func NewResetService(users UserRepository, codes ResetCodeRepository, sessions *SessionService, notifier Notifier, ttl time.Duration) *ResetService {
	if ttl <= 0 {
		ttl = ResetCodeExpiry
	}
	return &ResetService{
		users:    users,
		codes:    codes,
		sessions: sessions,
		notifier: notifier,
		ttl:      ttl,
	}
}

// RequestCode issues a reset code for the account behind email and hands it
// to the notifier. An unknown email is reported distinctly as
// ErrEmailNotFound; whether to reveal that is the boundary's call.
func (s *ResetService) RequestCode(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_EMAIL_NOT_FOUND").Wrap(ErrEmailNotFound)
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	code, err := NewResetCode(user.ID, time.Now().Add(s.ttl))
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "create reset code").
			Wrap(err)
	}

	if err := s.codes.Create(ctx, code); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "persist reset code").
			Wrap(err)
	}

	if err := s.notifier.SendResetCode(ctx, user.Email, code.Code); err != nil {
		return oops.Code("RESET_DELIVERY_FAILED").
			With("operation", "send reset code").
			Wrap(errors.Join(ErrDeliveryFailed, err))
	}

	return nil
}

// VerifyCode checks a code without consuming it, so the UI can show a "code
// accepted" step before the user picks a new password. A code can be verified
// any number of times before final consumption.
func (s *ResetService) VerifyCode(ctx context.Context, email, code string) error {
	_, _, err := s.lookupValid(ctx, email, code)
	return err
}

// ConsumeAndReset finalizes a reset: re-hashes the new password, persists it,
// marks the code used, and revokes every session the user had. The ordering
// (password first, then revoke-all) leaves no window where an old session
// outlives a completed reset. A second call with the same code fails with
// ErrInvalidCode because the code no longer matches the unused lookup.
func (s *ResetService) ConsumeAndReset(ctx context.Context, email, code, newPassword string) error {
	user, rc, err := s.lookupValid(ctx, email, code)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	if err := s.codes.MarkUsed(ctx, rc.ID); err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "mark code used").
			Wrap(err)
	}

	if err := s.sessions.RevokeAllForUser(ctx, user.ID); err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "revoke sessions").
			Wrap(err)
	}

	return nil
}

// DeleteExpired removes expired reset codes and returns the count. Intended
// for periodic cleanup.
func (s *ResetService) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return n, nil
}

// lookupValid resolves the user and their latest unused matching code, and
// applies the shared validity checks for VerifyCode and ConsumeAndReset.
func (s *ResetService) lookupValid(ctx context.Context, email, code string) (*User, *ResetCode, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Same error as a wrong code; no account enumeration via reset.
			return nil, nil, oops.Code("RESET_CODE_INVALID").Wrap(ErrInvalidCode)
		}
		return nil, nil, oops.Code("RESET_VERIFY_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	rc, err := s.codes.GetLatestUnused(ctx, user.ID, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, oops.Code("RESET_CODE_INVALID").Wrap(ErrInvalidCode)
		}
		return nil, nil, oops.Code("RESET_VERIFY_FAILED").
			With("operation", "get latest unused code").
			Wrap(err)
	}

	if rc.IsExpired() {
		return nil, nil, oops.Code("RESET_CODE_EXPIRED").Wrap(ErrCodeExpired)
	}

	return user, rc, nil
}
