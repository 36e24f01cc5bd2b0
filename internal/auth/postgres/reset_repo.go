// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/praxishub/praxis/internal/auth"
)

// ResetCodeRepository implements auth.ResetCodeRepository using PostgreSQL.
type ResetCodeRepository struct {
	pool pool
}

// NewResetCodeRepository creates a new ResetCodeRepository.
func NewResetCodeRepository(pool pool) *ResetCodeRepository {
	return &ResetCodeRepository{pool: pool}
}

// Create stores a new reset code.
func (r *ResetCodeRepository) Create(ctx context.Context, code *auth.ResetCode) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_reset_codes (id, user_id, code, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		code.ID.String(),
		code.UserID.String(),
		code.Code,
		code.ExpiresAt,
		code.Used,
		code.CreatedAt,
	)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert reset code").
			With("user_id", code.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetLatestUnused retrieves the most recently created unused code matching
// (userID, code).
func (r *ResetCodeRepository) GetLatestUnused(ctx context.Context, userID ulid.ULID, code string) (*auth.ResetCode, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, code, expires_at, used, created_at
		FROM password_reset_codes
		WHERE user_id = $1 AND code = $2 AND used = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`, userID.String(), code)

	rc, err := scanResetCode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_CODE_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RESET_GET_LATEST_FAILED").
			With("operation", "get latest unused code").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return rc, nil
}

// MarkUsed sets used=TRUE for a code. Terminal; never unset.
func (r *ResetCodeRepository) MarkUsed(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE password_reset_codes SET used = TRUE
		WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("RESET_MARK_USED_FAILED").
			With("operation", "update used flag").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("RESET_CODE_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes all expired reset codes and returns the count.
func (r *ResetCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM password_reset_codes WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired reset codes").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanResetCode scans a single row into a ResetCode.
// Callers are responsible for handling pgx.ErrNoRows.
func scanResetCode(row pgx.Row) (*auth.ResetCode, error) {
	var (
		idStr     string
		userIDStr string
		code      string
		expiresAt time.Time
		used      bool
		createdAt time.Time
	)

	err := row.Scan(&idStr, &userIDStr, &code, &expiresAt, &used, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("RESET_SCAN_FAILED").
			With("operation", "scan reset code").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_ID").
			With("operation", "parse reset code id").
			With("id", idStr).
			Wrap(err)
	}

	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_USER_ID").
			With("operation", "parse user id").
			With("user_id", userIDStr).
			Wrap(err)
	}

	return &auth.ResetCode{
		ID:        id,
		UserID:    userID,
		Code:      code,
		ExpiresAt: expiresAt,
		Used:      used,
		CreatedAt: createdAt,
	}, nil
}

// Compile-time interface check.
var _ auth.ResetCodeRepository = (*ResetCodeRepository)(nil)
