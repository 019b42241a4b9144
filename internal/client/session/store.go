// Package session holds the authentication state of the running client and
// decides it once at startup.
package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

// Store is the in-memory AuthSession. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	s       models.AuthSession
	checked chan struct{}
}

func NewStore() *Store {
	return &Store{
		s:       models.AuthSession{Status: models.AuthIdle},
		checked: make(chan struct{}),
	}
}

// SetTokens adopts new credentials. A nil user keeps the current one.
func (st *Store) SetTokens(creds models.Credentials, user *models.User) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Credentials = creds
	if user != nil {
		u := *user
		st.s.User = &u
	}
	st.s.Status = models.AuthAuthenticated
	st.s.Error = ""
}

func (st *Store) SetLoading() {
	st.mu.Lock()
	st.s.Status = models.AuthLoading
	st.s.Error = ""
	st.mu.Unlock()
}

// SetError records a failed login; the session stays unauthenticated.
func (st *Store) SetError(msg string) {
	st.mu.Lock()
	st.s.Status = models.AuthUnauthenticated
	st.s.Error = msg
	st.mu.Unlock()
}

// Logout drops credentials and identity. SessionChecked is untouched.
func (st *Store) Logout() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Credentials = models.Credentials{}
	st.s.User = nil
	st.s.Status = models.AuthUnauthenticated
	st.s.Error = ""
}

// MarkChecked latches SessionChecked. Further calls are no-ops.
func (st *Store) MarkChecked() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.SessionChecked {
		return
	}
	st.s.SessionChecked = true
	close(st.checked)
}

// WaitChecked blocks until the startup decision has been made.
func (st *Store) WaitChecked(ctx context.Context) error {
	select {
	case <-st.checked:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (st *Store) Snapshot() models.AuthSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := st.s
	if st.s.User != nil {
		u := *st.s.User
		out.User = &u
	}
	return out
}

func (st *Store) AccessToken() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.Credentials.AccessToken
}

func (st *Store) RefreshToken() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.Credentials.RefreshToken
}

func (st *Store) Authenticated() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s.Status == models.AuthAuthenticated
}
