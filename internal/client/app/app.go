// Package app wires the docvault client components together and owns their
// lifetime.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/chat"
	"github.com/dmitrijs2005/docvault/internal/client/client"
	"github.com/dmitrijs2005/docvault/internal/client/config"
	"github.com/dmitrijs2005/docvault/internal/client/documents"
	"github.com/dmitrijs2005/docvault/internal/client/handles"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/pdfmeta"
	"github.com/dmitrijs2005/docvault/internal/client/persist"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/blobs"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/kv"
	"github.com/dmitrijs2005/docvault/internal/client/restore"
	"github.com/dmitrijs2005/docvault/internal/client/retry"
	"github.com/dmitrijs2005/docvault/internal/client/services"
	"github.com/dmitrijs2005/docvault/internal/client/session"
	"github.com/dmitrijs2005/docvault/internal/client/snapshot"
	"github.com/dmitrijs2005/docvault/internal/client/storage"
	"github.com/dmitrijs2005/docvault/internal/client/vault"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/filex"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg *config.Config
	log logging.Logger

	opener    *storage.Opener
	kv        *kv.Lazy
	blobs     *blobs.SQLiteRepository
	vault     *vault.Vault
	backend   *client.MockClient
	persister *persist.Debouncer

	Registry  *handles.Registry
	Documents *documents.Store
	Session   *session.Store
	Chat      *chat.Store
	Retry     *retry.Controller

	ChatService *chat.Service
	Auth        services.AuthService
	Docs        services.DocumentService

	bootstrap *session.Bootstrapper
	restorer  *restore.Orchestrator
}

// StartResult reports what Start decided.
type StartResult struct {
	Session session.Outcome
	Restore restore.Report
}

// New builds every component. Nothing touches the database until Start.
func New(cfg *config.Config, log logging.Logger) (*App, error) {
	if cfg.DataDir != "" {
		dir, err := filex.EnsureDir(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		cfg.DataDir = dir
	}

	mc := client.DefaultMockConfig()
	mc.LoginLatency = cfg.LoginLatency
	mc.RefreshLatency = cfg.RefreshLatency
	mc.QueryLatency = cfg.QueryLatency
	mc.AccessTokenTTL = cfg.AccessTokenTTL
	mc.Secret = []byte(cfg.JWTSecret)
	backend, err := client.NewMockClient(mc)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, backend: backend}

	a.opener = storage.NewOpener(cfg.DatabasePath())
	a.kv = kv.NewLazy(a.opener)
	a.blobs = blobs.NewSQLiteRepository(a.opener)
	a.vault = vault.New(a.opener, log.With("component", "vault"))
	a.persister = persist.NewDebouncer(a.kv, cfg.PersistDebounce, log.With("component", "persist"))

	a.Registry = handles.NewRegistry()
	a.Documents = documents.NewStore(a.Registry, log.With("component", "documents"))
	a.Session = session.NewStore()
	a.Chat = chat.NewStore()
	a.Retry = retry.NewController(a.Session, backend, a.Session, a.vault, log.With("component", "retry"))

	streamer := chat.NewStreamer(cfg.StreamInterval, cfg.StreamChunkSize)
	a.ChatService = chat.NewService(a.Chat, streamer, backend, a.Retry, log.With("component", "chat"))
	a.Auth = services.NewAuthService(backend, a.vault, a.Session, log.With("component", "auth"))
	a.Docs = services.NewDocumentService(a.Documents, a.Registry, a.blobs,
		pdfmeta.NewExtractor(log.With("component", "pdfmeta")), cfg.MaxUploadSize, log.With("component", "documents"))

	a.bootstrap = session.NewBootstrapper(a.Session, a.vault, backend, log.With("component", "session"))
	a.restorer = restore.New(a.blobs, a.Registry, a.Documents, a.Docs, log.With("component", "restore"))
	return a, nil
}

// Start loads persisted state, hooks persistence up, then decides the auth
// state and restores documents concurrently. Storage failures degrade to an
// empty start; they are logged, never returned.
func (a *App) Start(ctx context.Context) (StartResult, error) {
	a.Chat.Load(snapshot.DecodeConversations(a.load(ctx, common.KeyConversations)))

	snap, ok := snapshot.Decode(a.load(ctx, common.KeyDocuments))
	if !ok {
		a.log.Debug(ctx, "no usable document snapshot")
	}
	a.Documents.Load(snap)

	a.Documents.SetOnChange(func(c models.Collection) {
		b, err := snapshot.Encode(c)
		if err != nil {
			a.log.Warn(ctx, "encode snapshot", "err", err)
			return
		}
		a.persister.Schedule(common.KeyDocuments, b)
	})
	a.Chat.SetOnChange(func(c models.Conversations) {
		b, err := snapshot.EncodeConversations(c)
		if err != nil {
			a.log.Warn(ctx, "encode conversations", "err", err)
			return
		}
		a.persister.Schedule(common.KeyConversations, b)
	})

	var res StartResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Session = a.bootstrap.Run(gctx)
		return nil
	})
	g.Go(func() error {
		res.Restore = a.restorer.Run(gctx, snap)
		return nil
	})
	if err := g.Wait(); err != nil {
		return res, err
	}

	a.log.Info(ctx, "started",
		"session", res.Session,
		"documents", len(snap.Files),
		"restored", len(res.Restore.Restored),
		"failed", len(res.Restore.Failed))
	return res, ctx.Err()
}

func (a *App) load(ctx context.Context, key string) []byte {
	b, err := a.kv.Get(ctx, key)
	if err != nil {
		a.log.Warn(ctx, "load failed", "key", key, "err", err)
		return nil
	}
	return b
}

// RemoveDocument drops a document together with its conversation.
func (a *App) RemoveDocument(ctx context.Context, id string) error {
	if err := a.Docs.Remove(ctx, id); err != nil {
		return err
	}
	a.Chat.Drop(id)
	return nil
}

// Flush writes pending state now.
func (a *App) Flush(ctx context.Context) {
	a.persister.Flush(ctx)
}

// Close stops any in-flight answer, writes pending state and releases the
// database and the backend.
func (a *App) Close(ctx context.Context) error {
	a.ChatService.Abort()
	a.persister.Close(ctx)
	return errors.Join(a.Auth.Close(ctx), a.opener.Close())
}
