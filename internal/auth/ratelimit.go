// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth

import (
	"sync"
	"time"

	"github.com/samber/oops"
)

// Rule caps an operation at Limit hits per Window for a given key (an email,
// an IP). Multiple rules passed to Consume compose as AND.
type Rule struct {
	Key    string
	Window time.Duration
	Limit  int
}

type rateLimitEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter is an in-process fixed-window counter keyed by arbitrary
// strings. State is deliberately process-local: it protects against casual
// abuse, not distributed attack, and is lost on restart (worst case the
// abuse window resets). Construct one per process and inject it; tests get
// a fresh instance each and no cross-test leakage.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	now     func() time.Time // swappable for tests
}

// NewRateLimiter creates an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		entries: make(map[string]*rateLimitEntry),
		now:     time.Now,
	}
}

// Consume applies each rule in order. A fresh or elapsed window starts at
// count=1; a rule at its limit fails the whole call with ErrRateLimitExceeded
// without incrementing itself. Rules already checked keep their increments,
// rules after the failing one are untouched.
func (l *RateLimiter) Consume(rules ...Rule) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, rule := range rules {
		// Counters are tracked per (key, window) so that "3/min per email"
		// and "6/hour per email" do not share a bucket.
		bucket := rule.Key + "\x00" + rule.Window.String()
		entry, ok := l.entries[bucket]
		if !ok || !now.Before(entry.resetAt) {
			l.entries[bucket] = &rateLimitEntry{count: 1, resetAt: now.Add(rule.Window)}
			continue
		}
		if entry.count >= rule.Limit {
			return oops.Code("RATE_LIMIT_EXCEEDED").
				With("key", rule.Key).
				With("limit", rule.Limit).
				With("retry_after", entry.resetAt.Sub(now).String()).
				Wrap(ErrRateLimitExceeded)
		}
		entry.count++
	}
	return nil
}

// Prune drops entries whose window has elapsed, bounding memory on
// long-running processes. Safe to call from a background ticker.
func (l *RateLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.entries {
		if !now.Before(entry.resetAt) {
			delete(l.entries, key)
		}
	}
}
