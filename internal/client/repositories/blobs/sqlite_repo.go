package blobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/storage"
	"github.com/dmitrijs2005/docvault/internal/common"
)

type SQLiteRepository struct {
	conn storage.Conn
}

func NewSQLiteRepository(conn storage.Conn) *SQLiteRepository {
	return &SQLiteRepository{conn: conn}
}

func unavailable(op, id string, err error) error {
	if errors.Is(err, common.ErrStorageUnavailable) {
		return fmt.Errorf("%s blob[%s]: %w", op, id, err)
	}
	return fmt.Errorf("%s blob[%s]: %w: %v", op, id, common.ErrStorageUnavailable, err)
}

// Put stores buffer under id, replacing any previous content.
func (r *SQLiteRepository) Put(ctx context.Context, id string, buffer []byte, name, mimeType string, lastModified int64) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return unavailable("put", id, err)
	}

	if buffer == nil {
		buffer = []byte{}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO blobs (id, name, type, last_modified, buffer) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			last_modified = excluded.last_modified,
			buffer = excluded.buffer
	`, id, name, mimeType, lastModified, buffer)
	if err != nil {
		return unavailable("put", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.BlobEnvelope, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return nil, unavailable("get", id, err)
	}

	var env models.BlobEnvelope
	err = db.QueryRowContext(ctx,
		`SELECT name, type, last_modified, buffer FROM blobs WHERE id = ?`, id,
	).Scan(&env.Name, &env.Type, &env.LastModified, &env.Buffer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get", id, err)
	}
	if env.Buffer == nil {
		env.Buffer = []byte{}
	}
	return &env, nil
}

// Delete is idempotent: removing an absent id succeeds.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return unavailable("delete", id, err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM blobs WHERE id = ?`, id); err != nil {
		return unavailable("delete", id, err)
	}
	return nil
}
