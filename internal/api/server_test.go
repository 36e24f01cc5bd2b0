// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_StartStop(t *testing.T) {
	server := newTestServer(&stubService{}, &stubParser{})

	errCh, err := server.Start()
	require.NoError(t, err)
	require.NotEmpty(t, server.Addr())

	// Double start fails while running.
	_, err = server.Start()
	require.Error(t, err)

	// Routes are live.
	resp, err := http.Post("http://"+server.Addr()+"/api/auth/logout", "application/json",
		nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "empty body is an invalid payload")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case err, ok := <-errCh:
		if ok {
			require.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error channel to close")
	}

	// Stop is idempotent.
	require.NoError(t, server.Stop(ctx))
}
