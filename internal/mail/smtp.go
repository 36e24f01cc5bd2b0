// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

// Package mail delivers account notifications over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/samber/oops"

	"github.com/praxishub/praxis/internal/auth"
)

var (
	_ auth.Notifier = (*SMTPNotifier)(nil)
	_ auth.Notifier = (*LogNotifier)(nil)
)

// Config holds SMTP delivery settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc matches smtp.SendMail. Injectable so tests can capture the
// outgoing message without a live SMTP server.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends password reset codes by email. It implements
// auth.Notifier.
type SMTPNotifier struct {
	cfg  Config
	send sendFunc
}

// NewSMTPNotifier creates a notifier for the given SMTP configuration.
func NewSMTPNotifier(cfg Config) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("smtp host must not be empty")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, oops.Code("CONFIG_INVALID").With("port", cfg.Port).Errorf("smtp port out of range")
	}
	if cfg.From == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("smtp from address must not be empty")
	}
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}, nil
}

// SendResetCode emails a password reset code to the given address.
func (n *SMTPNotifier) SendResetCode(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("recipient", email).Wrap(err)
	}

	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprintf("%d", n.cfg.Port))
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your password reset code\r\n\r\n"+
			"Your password reset code is %s.\r\n\r\n"+
			"The code expires in 15 minutes. If you did not request a reset, ignore this message.\r\n",
		n.cfg.From, email, code)

	if err := n.send(addr, auth, n.cfg.From, []string{email}, []byte(msg)); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("recipient", email).Wrap(err)
	}
	return nil
}

// LogNotifier writes reset codes to the log instead of sending mail.
// Intended for local development where no SMTP server is available.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendResetCode logs the code at WARN so it stands out in dev output.
func (n *LogNotifier) SendResetCode(_ context.Context, email, code string) error {
	n.Logger.Warn("password reset code (mail delivery disabled)",
		"recipient", email,
		"code", code)
	return nil
}
