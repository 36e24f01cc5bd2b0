// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

// Package errutil provides helpers for logging and asserting on structured
// errors built with samber/oops.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err through logger with structured attributes. Errors built
// with oops contribute their code and context map as attributes; plain errors
// are logged as a bare error string.
func LogError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}
