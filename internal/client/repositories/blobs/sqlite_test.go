package blobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/storage"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := storage.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(storage.Static{Handle: db})
}

func TestPutAndGet_RoundTrip(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "d1", []byte("%PDF-1.7 data"), "a.pdf", common.MimePDF, 1700000000000))

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	want := &models.BlobEnvelope{
		Name:         "a.pdf",
		Type:         common.MimePDF,
		LastModified: 1700000000000,
		Buffer:       []byte("%PDF-1.7 data"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("blob mismatch (-want +got):\n%s", diff)
	}
}

func TestPut_OverwritesExisting(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "d1", []byte("old"), "a.pdf", common.MimePDF, 1))
	require.NoError(t, r.Put(ctx, "d1", []byte("new"), "b.pdf", common.MimePDF, 2))

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "b.pdf", got.Name)
	require.Equal(t, []byte("new"), got.Buffer)
	require.Equal(t, int64(2), got.LastModified)
}

func TestPut_EmptyBuffer(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "e", nil, "empty.pdf", common.MimePDF, 0))
	got, err := r.Get(ctx, "e")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got.Buffer)
}

func TestGet_Missing_ReturnsNilNil(t *testing.T) {
	r := setupRepo(t)

	got, err := r.Get(context.Background(), "never-stored")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDelete_IsIdempotent(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "d1", []byte("x"), "a.pdf", common.MimePDF, 1))
	require.NoError(t, r.Delete(ctx, "d1"))
	require.NoError(t, r.Delete(ctx, "d1"))

	got, err := r.Get(ctx, "d1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestErrors_WrapStorageUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO blobs").WillReturnError(errors.New("disk full"))
	mock.ExpectQuery("SELECT name, type, last_modified, buffer FROM blobs").WillReturnError(errors.New("corrupt"))
	mock.ExpectExec("DELETE FROM blobs").WillReturnError(errors.New("locked"))

	r := NewSQLiteRepository(storage.Static{Handle: db})
	ctx := context.Background()

	err = r.Put(ctx, "d1", []byte("x"), "a.pdf", common.MimePDF, 1)
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
	require.Contains(t, err.Error(), "disk full")

	got, err := r.Get(ctx, "d1")
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
	require.Nil(t, got)

	require.ErrorIs(t, r.Delete(ctx, "d1"), common.ErrStorageUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestErrors_OpenFailure(t *testing.T) {
	r := NewSQLiteRepository(storage.Static{})

	_, err := r.Get(context.Background(), "d1")
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
}
