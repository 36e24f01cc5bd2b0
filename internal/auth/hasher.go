// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Stored digest scheme tags. The tag lets several hash schemes coexist in
// storage: a scheme upgrade keeps previously issued secrets verifiable with
// no forced mass logout.
const (
	SchemeHMACSHA256 = "hmac-sha256:"
	// SchemeSHA256 is the legacy unkeyed scheme. Supported for reads during
	// migration only; never chosen for new writes.
	SchemeSHA256 = "sha256:"
)

// bcryptCost is the work factor for login password hashes. Session token
// secrets use the keyed digest instead; they are high-entropy and verified on
// every request, so a slow hash there would only burn CPU.
const bcryptCost = bcrypt.DefaultCost

// SecretHasher turns plaintext secrets into tagged, storable digests and
// verifies plaintexts against them. The digest is keyed with a server-held
// key, so a leaked table of digests alone is not enough to forge tokens.
type SecretHasher struct {
	key []byte
}

// NewSecretHasher creates a SecretHasher. An empty key is a configuration
// error and is intentionally fatal at wiring time.
func NewSecretHasher(key []byte) (*SecretHasher, error) {
	if len(key) == 0 {
		return nil, oops.Code("CONFIG_INVALID").Errorf("secret hasher key cannot be empty")
	}
	return &SecretHasher{key: key}, nil
}

// Digest computes the keyed digest of secret in stored form,
// e.g. "hmac-sha256:<hex>".
func (h *SecretHasher) Digest(secret string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(secret))
	return SchemeHMACSHA256 + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks secret against a stored digest, dispatching on the scheme
// tag. Unrecognized tags fall back to the slow password-hash comparison so
// that rows written by the login-password path still verify. Malformed
// input never errors; it just fails to verify.
func (h *SecretHasher) Verify(secret, stored string) bool {
	switch {
	case strings.HasPrefix(stored, SchemeHMACSHA256):
		computed := h.Digest(secret)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
	case strings.HasPrefix(stored, SchemeSHA256):
		sum := sha256.Sum256([]byte(secret))
		computed := SchemeSHA256 + hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
	default:
		return VerifyPassword(secret, stored)
	}
}

// HashPassword produces a bcrypt hash of a login password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return string(hash), nil
}

// VerifyPassword checks a login password against its bcrypt hash.
// Malformed hashes verify as false rather than erroring.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
