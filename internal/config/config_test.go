// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxishub/praxis/internal/config"
	"github.com/praxishub/praxis/pkg/errutil"
)

// requiredEnv sets the secrets every valid config needs.
func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/praxis")
	t.Setenv("PRAXIS_SESSION_KEY", "test-session-key")
	t.Setenv("PRAXIS_ACCESS_KEY", "test-access-key")
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "praxis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	requiredEnv(t)

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9101", cfg.Metrics.Addr)
	assert.False(t, cfg.SMTP.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	requiredEnv(t)

	path := writeConfigFile(t, `
server:
  addr: ":9090"
auth:
  session_ttl: 168h
log:
  format: text
smtp:
  enabled: true
  host: smtp.example.com
  from: no-reply@example.com
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 168*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.SMTP.Enabled)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	// Untouched keys keep their defaults.
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	requiredEnv(t)

	path := writeConfigFile(t, `
server:
  addr: ":9090"
`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--listen-addr", ":7070", "--log-level", "debug"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_UnchangedFlagsDoNotClobberFile(t *testing.T) {
	requiredEnv(t)

	path := writeConfigFile(t, `
log:
  level: warn
`)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_EnvOverridesAll(t *testing.T) {
	requiredEnv(t)
	t.Setenv("DATABASE_URL", "postgres://prod-host:5432/praxis")

	path := writeConfigFile(t, `
database:
  url: postgres://file-host:5432/praxis
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://prod-host:5432/praxis", cfg.Database.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	requiredEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			"missing database url",
			func(t *testing.T) string {
				requiredEnv(t)
				t.Setenv("DATABASE_URL", "")
				return ""
			},
		},
		{
			"missing session key",
			func(t *testing.T) string {
				requiredEnv(t)
				t.Setenv("PRAXIS_SESSION_KEY", "")
				return ""
			},
		},
		{
			"missing access key",
			func(t *testing.T) string {
				requiredEnv(t)
				t.Setenv("PRAXIS_ACCESS_KEY", "")
				return ""
			},
		},
		{
			"negative session ttl",
			func(t *testing.T) string {
				requiredEnv(t)
				return writeConfigFile(t, "auth:\n  session_ttl: -1h\n")
			},
		},
		{
			"bad log format",
			func(t *testing.T) string {
				requiredEnv(t)
				return writeConfigFile(t, "log:\n  format: xml\n")
			},
		},
		{
			"smtp enabled without host",
			func(t *testing.T) string {
				requiredEnv(t)
				return writeConfigFile(t, "smtp:\n  enabled: true\n")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			_, err := config.Load(path, nil)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}
}
