package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/common"
)

// Conn hands out the shared database handle. Repositories depend on it
// instead of *sql.DB so the database can be opened lazily.
type Conn interface {
	DB(ctx context.Context) (*sql.DB, error)
}

// Opener opens the database on first use and at most once per process. A
// failed open is remembered: every later call reports the same failure.
type Opener struct {
	dsn    string
	open   func(ctx context.Context, dsn string) (*sql.DB, error)
	once   sync.Once
	mu     sync.Mutex
	db     *sql.DB
	err    error
	closed bool
}

func NewOpener(dsn string) *Opener {
	return &Opener{dsn: dsn, open: InitDatabase}
}

var errClosed = errors.New("database closed")

func (o *Opener) DB(ctx context.Context) (*sql.DB, error) {
	o.once.Do(func() {
		// A cancelled first caller must not poison the shared connection.
		db, err := o.open(context.WithoutCancel(ctx), o.dsn)
		o.mu.Lock()
		o.db, o.err = db, err
		o.mu.Unlock()
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, errClosed)
	}
	if o.err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, o.err)
	}
	return o.db, nil
}

// Close releases the connection if it was ever opened.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.db == nil {
		return nil
	}
	return o.db.Close()
}

// Static wraps an already opened database, mostly for tests.
type Static struct {
	Handle *sql.DB
}

func (s Static) DB(context.Context) (*sql.DB, error) {
	if s.Handle == nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, errClosed)
	}
	return s.Handle, nil
}
