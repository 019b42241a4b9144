package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/storage"
	"github.com/dmitrijs2005/docvault/internal/common"
)

// Lazy resolves the shared database on every call, so nothing touches disk
// until the first read or write. All failures wrap common.ErrStorageUnavailable.
type Lazy struct {
	conn storage.Conn
}

func NewLazy(conn storage.Conn) *Lazy {
	return &Lazy{conn: conn}
}

func (l *Lazy) repo(ctx context.Context) (*SQLiteRepository, error) {
	db, err := l.conn.DB(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return NewSQLiteRepository(db), nil
}

func wrap(err error) error {
	if err == nil || errors.Is(err, common.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
}

func (l *Lazy) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := l.repo(ctx)
	if err != nil {
		return nil, err
	}
	v, err := r.Get(ctx, key)
	return v, wrap(err)
}

func (l *Lazy) Set(ctx context.Context, key string, value []byte) error {
	r, err := l.repo(ctx)
	if err != nil {
		return err
	}
	return wrap(r.Set(ctx, key, value))
}

func (l *Lazy) Delete(ctx context.Context, key string) error {
	r, err := l.repo(ctx)
	if err != nil {
		return err
	}
	return wrap(r.Delete(ctx, key))
}
