// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified when a login email is unknown so that the
// response time stays flat and usernames cannot be enumerated by timing.
// It is a bcrypt hash of random bytes and will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// CredentialVerifier authenticates a login attempt against stored users.
// Pure lookup + compare; no side effects.
type CredentialVerifier struct {
	users UserRepository
}

// NewCredentialVerifier creates a CredentialVerifier.
func NewCredentialVerifier(users UserRepository) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

// Authenticate checks the email/password pair. Unknown email and wrong
// password both return ErrInvalidCredentials; a found-but-unapproved account
// returns ErrPendingApproval since that is not a credential problem.
func (v *CredentialVerifier) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, lookupErr := v.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always run the comparison to keep timing flat for unknown emails.
	valid := VerifyPassword(password, targetHash)

	if !userExists || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}
	if !user.Approved {
		return nil, oops.Code("AUTH_PENDING_APPROVAL").Wrap(ErrPendingApproval)
	}
	return user, nil
}
