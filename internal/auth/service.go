// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Rate limit rules guarding the abuse-prone flows. All rules for a request
// compose as AND; see RateLimiter.Consume.
const (
	emailMinuteLimit = 3
	emailHourLimit   = 6
	ipMinuteLimit    = 10
	ipHourLimit      = 30
)

// TokenPair is what a successful login or refresh hands the boundary: the
// rotating session token plus a short-lived access token.
type TokenPair struct {
	SessionToken string
	AccessToken  string
}

// Service is the orchestrator the boundary layer talks to. It composes the
// verifier, session manager, reset manager, limiter, and access token issuer;
// it adds no logic beyond sequencing and error translation.
type Service struct {
	verifier *CredentialVerifier
	sessions *SessionService
	resets   *ResetService
	limiter  *RateLimiter
	access   *AccessTokenIssuer
	users    UserRepository
}

// NewService creates the orchestrator Service.
func NewService(
	verifier *CredentialVerifier,
	sessions *SessionService,
	resets *ResetService,
	limiter *RateLimiter,
	access *AccessTokenIssuer,
	users UserRepository,
) *Service {
	return &Service{
		verifier: verifier,
		sessions: sessions,
		resets:   resets,
		limiter:  limiter,
		access:   access,
		users:    users,
	}
}

// abuseRules builds the per-email and per-IP rules for one guarded request.
func abuseRules(email, ip string) []Rule {
	rules := []Rule{
		{Key: "email:" + email, Window: time.Minute, Limit: emailMinuteLimit},
		{Key: "email:" + email, Window: time.Hour, Limit: emailHourLimit},
	}
	if ip != "" {
		rules = append(rules,
			Rule{Key: "ip:" + ip, Window: time.Minute, Limit: ipMinuteLimit},
			Rule{Key: "ip:" + ip, Window: time.Hour, Limit: ipHourLimit},
		)
	}
	return rules
}

// Login authenticates email/password and mints a fresh token pair.
func (s *Service) Login(ctx context.Context, email, password string, meta Metadata) (*User, *TokenPair, error) {
	if err := s.limiter.Consume(abuseRules(email, meta.IPAddress)...); err != nil {
		return nil, nil, err
	}

	user, err := s.verifier.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	return s.mintPair(ctx, user, meta)
}

// Refresh rotates a presented session token and mints a new token pair.
func (s *Service) Refresh(ctx context.Context, sessionToken string) (*User, *TokenPair, error) {
	user, next, err := s.sessions.ValidateAndConsume(ctx, sessionToken)
	if err != nil {
		return nil, nil, err
	}

	accessToken, err := s.access.Mint(user)
	if err != nil {
		return nil, nil, err
	}

	return user, &TokenPair{SessionToken: next, AccessToken: accessToken}, nil
}

// Logout revokes the presented session token, best-effort.
func (s *Service) Logout(ctx context.Context, sessionToken string) {
	s.sessions.Revoke(ctx, sessionToken)
}

// ChangePassword verifies the current password, stores the new one, and
// revokes every existing session. The caller gets a fresh token pair so the
// client performing the change stays signed in.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, currentPassword, newPassword string, meta Metadata) (*TokenPair, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	if !VerifyPassword(currentPassword, user.PasswordHash) {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash new password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	// Credential changed: kill every other session before re-issuing.
	if err := s.sessions.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}

	_, pair, err := s.mintPair(ctx, user, meta)
	return pair, err
}

// RequestPasswordReset issues and delivers a reset code, rate-limited the
// same way login is.
func (s *Service) RequestPasswordReset(ctx context.Context, email, ip string) error {
	if err := s.limiter.Consume(abuseRules(email, ip)...); err != nil {
		return err
	}
	return s.resets.RequestCode(ctx, email)
}

// VerifyPasswordReset checks a reset code without consuming it.
func (s *Service) VerifyPasswordReset(ctx context.Context, email, code string) error {
	return s.resets.VerifyCode(ctx, email, code)
}

// CompletePasswordReset consumes a reset code and sets the new password.
func (s *Service) CompletePasswordReset(ctx context.Context, email, code, newPassword string) error {
	return s.resets.ConsumeAndReset(ctx, email, code, newPassword)
}

func (s *Service) mintPair(ctx context.Context, user *User, meta Metadata) (*User, *TokenPair, error) {
	sessionToken, err := s.sessions.Issue(ctx, user.ID, meta)
	if err != nil {
		return nil, nil, err
	}

	accessToken, err := s.access.Mint(user)
	if err != nil {
		return nil, nil, err
	}

	return user, &TokenPair{SessionToken: sessionToken, AccessToken: accessToken}, nil
}
