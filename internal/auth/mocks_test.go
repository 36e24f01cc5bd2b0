// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package auth_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/praxishub/praxis/internal/auth"
)

// memUserRepo is an in-memory auth.UserRepository for tests.
type memUserRepo struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User
}

func newMemUserRepo(users ...*auth.User) *memUserRepo {
	r := &memUserRepo{users: make(map[ulid.ULID]*auth.User)}
	for _, u := range users {
		copied := *u
		r.users[u.ID] = &copied
	}
	return r
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, auth.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

// memSessionRepo is an in-memory auth.SessionRepository for tests.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[ulid.ULID]*auth.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[ulid.ULID]*auth.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, auth.ErrNotFound
}

func (r *memSessionRepo) Revoke(_ context.Context, id ulid.ULID, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return auth.ErrNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &revokedAt
	}
	return nil
}

func (r *memSessionRepo) RevokeAllForUser(_ context.Context, userID ulid.ULID, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			t := revokedAt
			s.RevokedAt = &t
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for id, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// activeCount returns how many unrevoked sessions userID has.
func (r *memSessionRepo) activeCount(userID ulid.ULID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			n++
		}
	}
	return n
}

// memResetRepo is an in-memory auth.ResetCodeRepository for tests.
type memResetRepo struct {
	mu    sync.Mutex
	codes []*auth.ResetCode
}

func newMemResetRepo() *memResetRepo {
	return &memResetRepo{}
}

func (r *memResetRepo) Create(_ context.Context, code *auth.ResetCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *code
	r.codes = append(r.codes, &copied)
	return nil
}

func (r *memResetRepo) GetLatestUnused(_ context.Context, userID ulid.ULID, code string) (*auth.ResetCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*auth.ResetCode, 0, 1)
	for _, c := range r.codes {
		if c.UserID == userID && c.Code == code && !c.Used {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, auth.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	copied := *matches[0]
	return &copied, nil
}

func (r *memResetRepo) MarkUsed(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.ID == id {
			c.Used = true
			return nil
		}
	}
	return auth.ErrNotFound
}

func (r *memResetRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	kept := r.codes[:0]
	var n int64
	for _, c := range r.codes {
		if now.After(c.ExpiresAt) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	r.codes = kept
	return n, nil
}

// lastCode returns the most recently created code for userID, used or not.
func (r *memResetRepo) lastCode(userID ulid.ULID) *auth.ResetCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *auth.ResetCode
	for _, c := range r.codes {
		if c.UserID != userID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil
	}
	copied := *latest
	return &copied
}

// mockNotifier records sent reset codes and can be told to fail.
type mockNotifier struct {
	mu    sync.Mutex
	sent  []string // "email:code"
	codes []string
	err   error
}

func (n *mockNotifier) SendResetCode(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, email+":"+code)
	n.codes = append(n.codes, code)
	return nil
}

func (n *mockNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.codes) == 0 {
		return ""
	}
	return n.codes[len(n.codes)-1]
}
