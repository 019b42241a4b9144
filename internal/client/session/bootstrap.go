package session

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/vault"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

type CredentialVault interface {
	Load(ctx context.Context) (models.Credentials, bool)
	Store(ctx context.Context, creds models.Credentials) error
	Clear(ctx context.Context) error
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)
}

// Outcome is what Run decided.
type Outcome string

const (
	OutcomeAbsent    Outcome = "absent"
	OutcomeValid     Outcome = "valid"
	OutcomeRefreshed Outcome = "refreshed"
	OutcomeExpired   Outcome = "expired"
)

type Bootstrapper struct {
	store     *Store
	vault     CredentialVault
	refresher Refresher
	now       func() time.Time
	log       logging.Logger
}

func NewBootstrapper(store *Store, v CredentialVault, r Refresher, log logging.Logger) *Bootstrapper {
	return &Bootstrapper{store: store, vault: v, refresher: r, now: time.Now, log: log}
}

// Run decides the initial auth state from the vault. SessionChecked is
// latched on every path.
func (b *Bootstrapper) Run(ctx context.Context) Outcome {
	defer b.store.MarkChecked()

	creds, ok := b.vault.Load(ctx)
	if !ok {
		b.store.Logout()
		return OutcomeAbsent
	}

	if !vault.IsExpired(creds.AccessToken, b.now()) {
		b.store.SetTokens(creds, userOf(creds.AccessToken))
		return OutcomeValid
	}

	b.store.SetLoading()
	fresh, err := b.refresher.Refresh(context.WithoutCancel(ctx), creds.RefreshToken)
	if err != nil {
		b.log.Info(ctx, "silent refresh failed", "err", err)
		if cerr := b.vault.Clear(ctx); cerr != nil {
			b.log.Warn(ctx, "clearing credentials failed", "err", cerr)
		}
		b.store.Logout()
		return OutcomeExpired
	}

	if err := b.vault.Store(ctx, fresh); err != nil {
		b.log.Warn(ctx, "persisting refreshed tokens failed", "err", err)
	}
	b.store.SetTokens(fresh, userOf(fresh.AccessToken))
	return OutcomeRefreshed
}

func userOf(token string) *models.User {
	if u, ok := vault.ExtractUser(token); ok {
		return &u
	}
	return nil
}
