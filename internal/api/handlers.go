// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/praxishub/praxis/internal/auth"
	"github.com/praxishub/praxis/internal/observability"
	"github.com/praxishub/praxis/pkg/errutil"
)

// Error payloads carry stable message keys, not prose. Clients localize.
type errorResponse struct {
	Error string `json:"error"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type tokenResponse struct {
	User         *userPayload `json:"user,omitempty"`
	SessionToken string       `json:"session_token"`
	AccessToken  string       `json:"access_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionTokenRequest struct {
	SessionToken string `json:"session_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

type resetVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetCompleteRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	user, pair, err := s.svc.Login(r.Context(), req.Email, req.Password, requestMetadata(r))
	if err != nil {
		s.recordLogin(loginStatus(err))
		s.writeDomainError(w, r, err)
		return
	}

	s.recordLogin("success")
	s.writeJSON(w, http.StatusOK, tokenResponse{
		User:         toUserPayload(user),
		SessionToken: pair.SessionToken,
		AccessToken:  pair.AccessToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req sessionTokenRequest
	if !s.decode(w, r, &req) {
		return
	}
	// Cheap length check before the service touches storage.
	if len(req.SessionToken) != auth.TokenLength {
		s.recordRefresh("invalid")
		s.writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	user, pair, err := s.svc.Refresh(r.Context(), req.SessionToken)
	if err != nil {
		s.recordRefresh(refreshStatus(err))
		s.writeDomainError(w, r, err)
		return
	}

	s.recordRefresh("success")
	s.writeJSON(w, http.StatusOK, tokenResponse{
		User:         toUserPayload(user),
		SessionToken: pair.SessionToken,
		AccessToken:  pair.AccessToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req sessionTokenRequest
	if !s.decode(w, r, &req) {
		return
	}

	// Logout always succeeds from the client's perspective.
	if len(req.SessionToken) == auth.TokenLength {
		s.svc.Logout(r.Context(), req.SessionToken)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		s.writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	pair, err := s.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword, requestMetadata(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tokenResponse{
		SessionToken: pair.SessionToken,
		AccessToken:  pair.AccessToken,
	})
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	if err := s.svc.RequestPasswordReset(r.Context(), req.Email, clientIP(r)); err != nil {
		s.recordReset("request", resetStatus(err))
		s.writeDomainError(w, r, err)
		return
	}

	s.recordReset("request", "success")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleResetVerify(w http.ResponseWriter, r *http.Request) {
	var req resetVerifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Code == "" {
		s.writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	if err := s.svc.VerifyPasswordReset(r.Context(), req.Email, req.Code); err != nil {
		s.recordReset("verify", resetStatus(err))
		s.writeDomainError(w, r, err)
		return
	}

	s.recordReset("verify", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetComplete(w http.ResponseWriter, r *http.Request) {
	var req resetCompleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		s.writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	if err := s.svc.CompletePasswordReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		s.recordReset("complete", resetStatus(err))
		s.writeDomainError(w, r, err)
		return
	}

	s.recordReset("complete", "success")
	w.WriteHeader(http.StatusNoContent)
}

// authenticate resolves the Bearer access token on authenticated routes.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (ulid.ULID, auth.Role, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		s.writeError(w, http.StatusUnauthorized, "missing_token")
		return ulid.ULID{}, "", false
	}

	id, role, err := s.tokens.Parse(token)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid_token")
		return ulid.ULID{}, "", false
	}
	return id, role, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_payload")
		return false
	}
	return true
}

// writeDomainError maps auth sentinel errors to status codes and message keys.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, key := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, key = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, auth.ErrPendingApproval):
		status, key = http.StatusForbidden, "pending_approval"
	case errors.Is(err, auth.ErrRateLimitExceeded):
		status, key = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, auth.ErrTokenExpired):
		status, key = http.StatusUnauthorized, "token_expired"
	case errors.Is(err, auth.ErrInvalidToken):
		status, key = http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, auth.ErrCodeExpired):
		status, key = http.StatusBadRequest, "code_expired"
	case errors.Is(err, auth.ErrInvalidCode):
		status, key = http.StatusBadRequest, "invalid_code"
	case errors.Is(err, auth.ErrEmailNotFound):
		status, key = http.StatusNotFound, "email_not_found"
	case errors.Is(err, auth.ErrDeliveryFailed):
		status, key = http.StatusBadGateway, "delivery_failed"
	}

	if status == http.StatusInternalServerError {
		errutil.LogError(s.logger, "unhandled auth error", err)
	} else {
		s.logger.DebugContext(r.Context(), "auth request rejected", "key", key)
	}
	s.writeError(w, status, key)
}

func (s *Server) writeError(w http.ResponseWriter, status int, key string) {
	s.writeJSON(w, status, errorResponse{Error: key})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // response write error means the client went away
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) recordLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) recordRefresh(status string) {
	if s.metrics != nil {
		s.metrics.TokenRefreshesTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) recordReset(stage, status string) {
	if s.metrics != nil {
		s.metrics.PasswordResetsTotal.WithLabelValues(stage, status).Inc()
	}
}

func loginStatus(err error) string {
	switch {
	case errors.Is(err, auth.ErrRateLimitExceeded):
		observability.RecordRateLimitRejection("login")
		return "rate_limited"
	case errors.Is(err, auth.ErrPendingApproval):
		return "pending_approval"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}

func refreshStatus(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid"
	default:
		return "error"
	}
}

func resetStatus(err error) string {
	switch {
	case errors.Is(err, auth.ErrRateLimitExceeded):
		observability.RecordRateLimitRejection("reset")
		return "rate_limited"
	case errors.Is(err, auth.ErrEmailNotFound):
		return "email_not_found"
	case errors.Is(err, auth.ErrCodeExpired):
		return "code_expired"
	case errors.Is(err, auth.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, auth.ErrDeliveryFailed):
		return "delivery_failed"
	default:
		return "error"
	}
}

func toUserPayload(u *auth.User) *userPayload {
	return &userPayload{
		ID:    u.ID.String(),
		Email: u.Email,
		Role:  string(u.Role),
	}
}

// requestMetadata captures the client fingerprint stored with a session.
func requestMetadata(r *http.Request) auth.Metadata {
	return auth.Metadata{
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
}

// clientIP strips the port from RemoteAddr. Proxy headers are deliberately
// ignored; run behind a trusted proxy that rewrites RemoteAddr instead.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
