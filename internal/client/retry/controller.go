// Package retry single-flights credential refresh for authenticated calls.
//
// Any number of concurrent calls may fail with common.ErrUnauthorized at
// once; exactly one refresh runs, the other calls wait in a queue and are
// replayed (or rejected) once it resolves. Each logical call is retried at
// most once.
package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/vault"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

// Call performs one authenticated request with the given access token.
type Call func(ctx context.Context, accessToken string) error

// TokenSource is read at send time, never cached.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)
}

// Session receives the outcome of a refresh.
type Session interface {
	SetTokens(creds models.Credentials, user *models.User)
	Logout()
}

// CredentialStore persists refreshed credentials.
type CredentialStore interface {
	Store(ctx context.Context, creds models.Credentials) error
	Clear(ctx context.Context) error
}

var ErrNoRefreshToken = errors.New("no refresh token")

type pending struct {
	ctx  context.Context
	call Call
	done chan error
}

type Controller struct {
	tokens    TokenSource
	refresher Refresher
	session   Session
	creds     CredentialStore
	log       logging.Logger

	mu         sync.Mutex
	refreshing bool
	queue      []*pending
}

func NewController(tokens TokenSource, refresher Refresher, session Session, creds CredentialStore, log logging.Logger) *Controller {
	return &Controller{
		tokens:    tokens,
		refresher: refresher,
		session:   session,
		creds:     creds,
		log:       log,
	}
}

// Do runs call, refreshing credentials and retrying once if it comes back
// unauthorized.
func (c *Controller) Do(ctx context.Context, call Call) error {
	return c.run(ctx, call, false)
}

func (c *Controller) run(ctx context.Context, call Call, retried bool) error {
	err := call(ctx, c.tokens.AccessToken())
	if !errors.Is(err, common.ErrUnauthorized) {
		return err
	}
	return c.onUnauthorized(ctx, call, retried, err)
}

func (c *Controller) onUnauthorized(ctx context.Context, call Call, retried bool, cause error) error {
	if retried {
		c.log.Warn(ctx, "unauthorized after retry, logging out")
		c.logout(ctx)
		return cause
	}

	c.mu.Lock()
	if c.refreshing {
		p := &pending{ctx: ctx, call: call, done: make(chan error, 1)}
		c.queue = append(c.queue, p)
		c.mu.Unlock()

		select {
		case err := <-p.done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		c.mu.Unlock()
		c.logout(ctx)
		return fmt.Errorf("%w: %w", cause, ErrNoRefreshToken)
	}
	c.refreshing = true
	c.mu.Unlock()

	// A started refresh always runs to completion.
	rctx := context.WithoutCancel(ctx)
	creds, err := c.refresher.Refresh(rctx, refreshToken)
	if err != nil {
		c.log.Warn(ctx, "token refresh failed", "err", err)
		for _, p := range c.drain() {
			p.done <- err
		}
		c.logout(rctx)
		return err
	}

	if serr := c.creds.Store(rctx, creds); serr != nil {
		c.log.Warn(ctx, "persisting refreshed tokens failed", "err", serr)
	}
	var user *models.User
	if u, ok := vault.ExtractUser(creds.AccessToken); ok {
		user = &u
	}
	c.session.SetTokens(creds, user)

	// Queued calls go out one by one in the order they queued, ahead of the
	// call that triggered the refresh.
	for _, p := range c.drain() {
		if err := p.ctx.Err(); err != nil {
			p.done <- err
			continue
		}
		p.done <- c.run(p.ctx, p.call, true)
	}

	return c.run(ctx, call, true)
}

// drain takes the queue and clears the in-flight flag in one step. Calls
// that fail after this point start a fresh cycle instead of joining a
// queue nobody will drain.
func (c *Controller) drain() []*pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queue
	c.queue = nil
	c.refreshing = false
	return q
}

func (c *Controller) logout(ctx context.Context) {
	if err := c.creds.Clear(ctx); err != nil {
		c.log.Warn(ctx, "clearing credentials failed", "err", err)
	}
	c.session.Logout()
}

// Refreshing reports whether a refresh is in flight.
func (c *Controller) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}
