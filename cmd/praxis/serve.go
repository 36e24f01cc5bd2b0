// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/praxishub/praxis/internal/api"
	"github.com/praxishub/praxis/internal/auth"
	authpg "github.com/praxishub/praxis/internal/auth/postgres"
	"github.com/praxishub/praxis/internal/config"
	"github.com/praxishub/praxis/internal/logging"
	"github.com/praxishub/praxis/internal/mail"
	"github.com/praxishub/praxis/internal/observability"
	"github.com/praxishub/praxis/internal/store"
	"github.com/praxishub/praxis/pkg/errutil"
)

// sweepInterval is how often expired sessions and reset codes are purged.
const sweepInterval = time.Hour

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Praxis API server",
		Long: `Start the HTTP API server, the metrics listener, and the
background cleanup of expired sessions and reset codes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault(logging.Options{
		Service: "praxis",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
	logger := slog.Default()

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		errutil.LogError(logger, "database connection failed", err)
		return err
	}
	defer pool.Close()

	svc, err := buildAuthService(cfg, pool, logger)
	if err != nil {
		errutil.LogError(logger, "auth service wiring failed", err)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Metrics listener, optional.
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer := observability.NewServer(cfg.Metrics.Addr, func() bool {
			return pool.Ping(ctx) == nil
		})
		obsErrCh, err := obsServer.Start()
		if err != nil {
			errutil.LogError(logger, "observability server failed to start", err)
			return err
		}
		metrics = obsServer.Metrics()
		defer stopServer(obsServer.Stop, logger, "observability")
		go watchServer(cancel, obsErrCh, logger, "observability")
	}

	apiServer := api.NewServer(cfg.Server.Addr, svc.service, svc.issuer, logger, metrics)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		errutil.LogError(logger, "api server failed to start", err)
		return err
	}
	defer stopServer(apiServer.Stop, logger, "api")
	go watchServer(cancel, apiErrCh, logger, "api")

	go runSweeper(ctx, svc, logger)

	// Block until a signal or a server failure.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down after server failure")
	}
	return nil
}

// authStack bundles the wired auth components serve needs to reach.
type authStack struct {
	service  *auth.Service
	sessions *auth.SessionService
	resets   *auth.ResetService
	limiter  *auth.RateLimiter
	issuer   *auth.AccessTokenIssuer
}

func buildAuthService(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*authStack, error) {
	hasher, err := auth.NewSecretHasher([]byte(cfg.Auth.SessionKey))
	if err != nil {
		return nil, err
	}

	users := authpg.NewUserRepository(pool)
	sessionRepo := authpg.NewSessionRepository(pool)
	resetRepo := authpg.NewResetCodeRepository(pool)

	var notifier auth.Notifier
	if cfg.SMTP.Enabled {
		notifier, err = mail.NewSMTPNotifier(mail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, err
		}
	} else {
		notifier = &mail.LogNotifier{Logger: logger}
	}

	sessions := auth.NewSessionService(sessionRepo, users, hasher, cfg.Auth.SessionTTL)
	resets := auth.NewResetService(users, resetRepo, sessions, notifier, auth.ResetCodeExpiry)
	verifier := auth.NewCredentialVerifier(users)
	limiter := auth.NewRateLimiter()

	issuer, err := auth.NewAccessTokenIssuer([]byte(cfg.Auth.AccessKey), cfg.Auth.AccessTTL)
	if err != nil {
		return nil, err
	}

	service := auth.NewService(verifier, sessions, resets, limiter, issuer, users)
	return &authStack{service: service, sessions: sessions, resets: resets, limiter: limiter, issuer: issuer}, nil
}

// runSweeper purges expired sessions and reset codes on a fixed interval.
func runSweeper(ctx context.Context, stack *authStack, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := stack.sessions.DeleteExpired(ctx); err != nil {
				errutil.LogError(logger, "session sweep failed", err)
			} else if n > 0 {
				logger.Info("swept expired sessions", "deleted", n)
			}
			if n, err := stack.resets.DeleteExpired(ctx); err != nil {
				errutil.LogError(logger, "reset code sweep failed", err)
			} else if n > 0 {
				logger.Info("swept expired reset codes", "deleted", n)
			}
			stack.limiter.Prune()
		}
	}
}

type stopFunc func(ctx context.Context) error

func stopServer(stop stopFunc, logger *slog.Logger, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		errutil.LogError(logger, name+" server stop failed", err)
	}
}

// watchServer cancels the serve context when a server reports a fatal error.
func watchServer(cancel context.CancelFunc, errCh <-chan error, logger *slog.Logger, name string) {
	if err, ok := <-errCh; ok && err != nil {
		errutil.LogError(logger, name+" server failed", err)
		cancel()
	}
}
