// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultAccessTokenTTL is how long a minted access token stays valid.
// Short-lived on purpose; the rotating session token is the durable credential.
const DefaultAccessTokenTTL = 15 * time.Minute

// AccessClaims are the JWT claims carried by an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// AccessTokenIssuer mints and parses the short-lived HS256 access tokens
// layered on top of session tokens.
type AccessTokenIssuer struct {
	key []byte
	ttl time.Duration
}

// NewAccessTokenIssuer creates an AccessTokenIssuer. An empty key is a
// configuration error and fatal at wiring time.
func NewAccessTokenIssuer(key []byte, ttl time.Duration) (*AccessTokenIssuer, error) {
	if len(key) == 0 {
		return nil, oops.Code("CONFIG_INVALID").Errorf("access token key cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &AccessTokenIssuer{key: key, ttl: ttl}, nil
}

// Mint signs an access token for user.
func (i *AccessTokenIssuer) Mint(user *User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Role: user.Role,
	})

	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", oops.Code("ACCESS_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Parse validates an access token and returns the user id and role.
func (i *AccessTokenIssuer) Parse(tokenString string) (ulid.ULID, Role, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ulid.ULID{}, "", oops.Code("ACCESS_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, "", oops.Code("ACCESS_TOKEN_INVALID").
			With("operation", "parse subject").
			Wrap(ErrInvalidToken)
	}
	return id, claims.Role, nil
}
