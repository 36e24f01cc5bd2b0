// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Sentinel errors for the authentication flows. Services wrap these with
// oops codes; the HTTP boundary matches on them with errors.Is to pick a
// response shape and message key.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The two cases are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPendingApproval means the credentials were fine but the account
	// has not been approved by an admin yet.
	ErrPendingApproval = errors.New("account pending approval")

	// ErrInvalidToken covers malformed, unknown, revoked, and
	// secret-mismatched session tokens.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrTokenExpired is distinct from ErrInvalidToken: an expired session
	// prompts a silent re-login, an invalid one may indicate tampering.
	ErrTokenExpired = errors.New("session token expired")

	// ErrInvalidCode covers unknown, already-used, and mismatched reset codes.
	ErrInvalidCode = errors.New("invalid reset code")

	// ErrCodeExpired means the reset code matched but its window has passed.
	ErrCodeExpired = errors.New("reset code expired")

	// ErrEmailNotFound is reported distinctly so the boundary can decide
	// whether to reveal it or respond uniformly.
	ErrEmailNotFound = errors.New("email not found")

	// ErrDeliveryFailed means the reset code could not be handed to the
	// notifier; the code was persisted but never left the building.
	ErrDeliveryFailed = errors.New("reset code delivery failed")

	// ErrRateLimitExceeded is returned by RateLimiter.Consume.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
