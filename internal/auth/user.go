// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role is the coarse account role used for route gating.
type Role string

// Account roles, ordered roughly by privilege.
const (
	RoleTrainee    Role = "trainee"
	RoleMentor     Role = "mentor"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTrainee, RoleMentor, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User represents an account record. The core reads the credential fields and
// writes PasswordHash on password change; everything else is owned by the
// registration and admin boundary code.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	Phone        string
	Role         Role
	Approved     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository manages account persistence.
type UserRepository interface {
	// GetByEmail retrieves a user by email, case as stored.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// UpdatePassword updates only the password hash for a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
