// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxishub/praxis/internal/auth"
)

func resetColumns() []string {
	return []string{"id", "user_id", "code", "expires_at", "used", "created_at"}
}

func TestResetCodeRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rc, err := auth.NewResetCode(ulid.Make(), time.Now().Add(auth.ResetCodeExpiry))
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO password_reset_codes`).
		WithArgs(rc.ID.String(), rc.UserID.String(), rc.Code, rc.ExpiresAt, rc.Used, rc.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewResetCodeRepository(mock)
	require.NoError(t, repo.Create(context.Background(), rc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetCodeRepository_GetLatestUnused(t *testing.T) {
	t.Run("returns the newest unused match", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id, userID := ulid.Make(), ulid.Make()
		now := time.Now()
		mock.ExpectQuery(`SELECT id, user_id, code`).
			WithArgs(userID.String(), "ABCD2345").
			WillReturnRows(pgxmock.NewRows(resetColumns()).
				AddRow(id.String(), userID.String(), "ABCD2345", now.Add(10*time.Minute), false, now))

		repo := NewResetCodeRepository(mock)
		rc, err := repo.GetLatestUnused(context.Background(), userID, "ABCD2345")
		require.NoError(t, err)
		assert.Equal(t, id, rc.ID)
		assert.False(t, rc.Used)
	})

	t.Run("no match maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		userID := ulid.Make()
		mock.ExpectQuery(`SELECT id, user_id, code`).
			WithArgs(userID.String(), "WRONGCDE").
			WillReturnRows(pgxmock.NewRows(resetColumns()))

		repo := NewResetCodeRepository(mock)
		_, err = repo.GetLatestUnused(context.Background(), userID, "WRONGCDE")
		assert.True(t, errors.Is(err, auth.ErrNotFound))
	})
}

func TestResetCodeRepository_MarkUsed(t *testing.T) {
	t.Run("flips the flag", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectExec(`UPDATE password_reset_codes SET used`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewResetCodeRepository(mock)
		require.NoError(t, repo.MarkUsed(context.Background(), id))
	})

	t.Run("unknown id maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectExec(`UPDATE password_reset_codes SET used`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewResetCodeRepository(mock)
		err = repo.MarkUsed(context.Background(), id)
		assert.True(t, errors.Is(err, auth.ErrNotFound))
	})
}

func TestResetCodeRepository_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM password_reset_codes`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	repo := NewResetCodeRepository(mock)
	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
