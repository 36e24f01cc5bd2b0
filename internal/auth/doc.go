// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

// Package auth provides credential and session lifecycle management for Praxis.
//
// # Domain Types
//
// Domain types (User, Session, ResetCode) should be created using their
// respective constructors:
//   - NewSession - creates a Session with validated user and expiry
//   - NewResetCode - creates a ResetCode with a freshly generated code
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - SessionService - issuing, rotating, and revoking session tokens
//   - ResetService - the password reset code flow
//   - Service - the orchestrator the HTTP boundary talks to
//
// Services are created with New*Service constructors that validate dependencies.
// Stored secret digests are tagged with their hash scheme so that several
// schemes can coexist in storage; see SecretHasher.
package auth
