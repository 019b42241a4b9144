// Package services contains application services for the docvault client.
// This file defines the authentication service: login against the backend,
// credential persistence and logout.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/client"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/session"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the backend, persist the token pair and
//     mark the session authenticated and checked.
//   - Logout: clear persisted credentials and the in-memory session.
//   - Close: release underlying client resources.
type AuthService interface {
	Login(ctx context.Context, email, password string) (models.User, error)
	Logout(ctx context.Context) error
	Close(ctx context.Context) error
}

// CredentialVault persists the token pair.
type CredentialVault interface {
	Store(ctx context.Context, creds models.Credentials) error
	Clear(ctx context.Context) error
}

type authService struct {
	client  client.Client
	vault   CredentialVault
	session *session.Store
	log     logging.Logger
}

func NewAuthService(c client.Client, v CredentialVault, s *session.Store, log logging.Logger) AuthService {
	return &authService{client: c, vault: v, session: s, log: log}
}

func (a *authService) Login(ctx context.Context, email, password string) (models.User, error) {
	a.session.SetLoading()

	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		msg := "login failed"
		if errors.Is(err, client.ErrInvalidCredentials) {
			msg = "Invalid email or password"
		}
		a.session.SetError(msg)
		return models.User{}, fmt.Errorf("login error: %w", err)
	}

	// The session is usable even if persisting fails; it just won't survive
	// a restart.
	if err := a.vault.Store(ctx, res.Credentials); err != nil {
		a.log.Warn(ctx, "persisting credentials failed", "err", err)
	}
	u := res.User
	a.session.SetTokens(res.Credentials, &u)
	a.session.MarkChecked()
	a.log.Info(ctx, "logged in", "user_id", u.ID)
	return u, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.session.Logout()
	if err := a.vault.Clear(ctx); err != nil {
		a.log.Warn(ctx, "clearing credentials failed", "err", err)
		return err
	}
	return nil
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
