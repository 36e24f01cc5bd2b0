// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

// Package api exposes the auth service over HTTP. Handlers stay thin: decode,
// delegate, map domain errors to status codes and message keys.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/praxishub/praxis/internal/auth"
	"github.com/praxishub/praxis/internal/observability"
)

// AuthService is the slice of the auth orchestrator the HTTP boundary needs.
type AuthService interface {
	Login(ctx context.Context, email, password string, meta auth.Metadata) (*auth.User, *auth.TokenPair, error)
	Refresh(ctx context.Context, sessionToken string) (*auth.User, *auth.TokenPair, error)
	Logout(ctx context.Context, sessionToken string)
	ChangePassword(ctx context.Context, userID ulid.ULID, currentPassword, newPassword string, meta auth.Metadata) (*auth.TokenPair, error)
	RequestPasswordReset(ctx context.Context, email, ip string) error
	VerifyPasswordReset(ctx context.Context, email, code string) error
	CompletePasswordReset(ctx context.Context, email, code, newPassword string) error
}

// TokenParser validates access tokens presented on authenticated routes.
type TokenParser interface {
	Parse(tokenString string) (ulid.ULID, auth.Role, error)
}

var _ AuthService = (*auth.Service)(nil)

// Server serves the auth HTTP API.
type Server struct {
	addr       string
	svc        AuthService
	tokens     TokenParser
	logger     *slog.Logger
	metrics    *observability.Metrics
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates an API server. metrics may be nil when the metrics
// listener is disabled.
func NewServer(addr string, svc AuthService, tokens TokenParser, logger *slog.Logger, metrics *observability.Metrics) *Server {
	return &Server{
		addr:    addr,
		svc:     svc,
		tokens:  tokens,
		logger:  logger,
		metrics: metrics,
	}
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("POST /api/auth/password", s.handleChangePassword)
	mux.HandleFunc("POST /api/auth/reset/request", s.handleResetRequest)
	mux.HandleFunc("POST /api/auth/reset/verify", s.handleResetVerify)
	mux.HandleFunc("POST /api/auth/reset/complete", s.handleResetComplete)

	return loggingMiddleware(s.logger)(securityHeadersMiddleware()(mux))
}

// Start begins serving. It returns an error channel that receives any error
// from the HTTP server after startup; the channel is closed on a clean stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the bound address, or an empty string when not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
