package documents

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/handles"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *Store
	reg     *handles.Registry
	mu      sync.Mutex
	changes []models.Collection
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{reg: handles.NewRegistry(), clock: time.UnixMilli(1_700_000_000_000)}
	f.store = NewStore(f.reg, logging.Nop(),
		WithClock(func() time.Time {
			f.clock = f.clock.Add(time.Millisecond)
			return f.clock
		}),
		WithOnChange(func(c models.Collection) {
			f.mu.Lock()
			f.changes = append(f.changes, c)
			f.mu.Unlock()
		}),
	)
	return f
}

func (f *fixture) upload(t *testing.T, id string) *handles.Handle {
	t.Helper()
	h := handles.NewHandle([]byte("%PDF"), id+".pdf", common.MimePDF, 0)
	f.reg.Put(id, h)
	_, err := f.store.Create(context.Background(), models.Document{
		ID: id, Name: id + ".pdf", Size: 4, DisplayRef: f.reg.NewDisplayRef(h),
	})
	require.NoError(t, err)
	return h
}

func TestCreate_MakesUploadingAndActive(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a")
	f.upload(t, "b")

	d, ok := f.store.Active()
	require.True(t, ok)
	assert.Equal(t, "b", d.ID)
	assert.Equal(t, models.StatusUploading, d.Status)
	assert.NotZero(t, d.UploadedAt)
	assert.Len(t, f.changes, 2)
}

func TestCreate_RejectsReusedID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a")
	require.NoError(t, f.store.Remove(ctx, "a"))

	_, err := f.store.Create(ctx, models.Document{ID: "a"})
	require.ErrorIs(t, err, ErrDuplicateID)
	_, err = f.store.Create(ctx, models.Document{})
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestHappyPath_UploadingProcessingReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a")

	require.NoError(t, f.store.BeginProcessing(ctx, "a"))
	require.NoError(t, f.store.SetMetadata(ctx, "a", models.DocumentMetadata{PageCount: 7, FileSize: 4}))

	d, _ := f.store.Get("a")
	assert.Equal(t, models.StatusReady, d.Status)
	assert.Equal(t, 7, d.PageCount)
	require.NotNil(t, d.Metadata)
}

func TestInvalidTransitions_LeaveStateUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a")

	require.ErrorIs(t, f.store.SetMetadata(ctx, "a", models.DocumentMetadata{}), ErrInvalidTransition)
	d, _ := f.store.Get("a")
	assert.Equal(t, models.StatusUploading, d.Status)
	assert.Nil(t, d.Metadata)

	require.NoError(t, f.store.BeginProcessing(ctx, "a"))
	require.NoError(t, f.store.SetMetadata(ctx, "a", models.DocumentMetadata{PageCount: 1}))
	require.ErrorIs(t, f.store.BeginProcessing(ctx, "a"), ErrInvalidTransition)
	require.ErrorIs(t, f.store.Fail(ctx, "a", "x", false), ErrInvalidTransition)

	_, err := f.store.Restored(ctx, "a", "blob:x")
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.ErrorIs(t, f.store.BeginProcessing(ctx, "missing"), common.ErrorNotFound)
}

func TestFail_DropsHandle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a")
	require.NoError(t, f.store.BeginProcessing(ctx, "a"))

	require.NoError(t, f.store.Fail(ctx, "a", "Corrupted PDF: bad xref", true))

	d, _ := f.store.Get("a")
	assert.Equal(t, models.StatusError, d.Status)
	assert.True(t, d.IsCorrupted)
	assert.Empty(t, d.DisplayRef)
	_, ok := f.reg.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, f.reg.Live())
}

func TestRemove_EvictsHandleAndReassignsActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "b")
	f.upload(t, "a")
	require.NoError(t, f.store.SetActive(ctx, "a"))

	require.NoError(t, f.store.Remove(ctx, "a"))
	_, ok := f.reg.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, f.reg.Live())

	d, ok := f.store.Active()
	require.True(t, ok)
	assert.Equal(t, "b", d.ID)

	require.NoError(t, f.store.Remove(ctx, "b"))
	_, ok = f.store.Active()
	assert.False(t, ok)
	assert.Empty(t, f.store.Snapshot().ActiveDocumentID)
	assert.Equal(t, 0, f.reg.Live())

	require.ErrorIs(t, f.store.Remove(ctx, "b"), common.ErrorNotFound)
}

func TestRemove_NonActiveKeepsSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a")
	f.upload(t, "b")
	f.upload(t, "c")

	require.NoError(t, f.store.Remove(ctx, "a"))
	d, _ := f.store.Active()
	assert.Equal(t, "c", d.ID)
}

func TestRemove_HandleGoneBeforeRecordIsObserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a")

	var sawHandle bool
	f.store.SetOnChange(func(c models.Collection) {
		if _, stillThere := c.Files["a"]; !stillThere {
			_, sawHandle = f.reg.Get("a")
		}
	})
	require.NoError(t, f.store.Remove(ctx, "a"))
	assert.False(t, sawHandle)
}

func TestRestored_ReadyWithMetadataElseUploading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := models.NewCollection()
	c.Files["known"] = &models.Document{ID: "known", Status: models.StatusRestoring, PageCount: 3,
		Metadata: &models.DocumentMetadata{PageCount: 3}}
	c.Files["fresh"] = &models.Document{ID: "fresh", Status: models.StatusRestoring}
	c.ActiveDocumentID = "known"
	f.store.Load(c)
	assert.Empty(t, f.changes)

	st, err := f.store.Restored(ctx, "known", "blob:1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, st)
	d, _ := f.store.Get("known")
	assert.Equal(t, "blob:1", d.DisplayRef)
	assert.Equal(t, 3, d.PageCount)

	st, err = f.store.Restored(ctx, "fresh", "blob:2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploading, st)
	require.NoError(t, f.store.BeginProcessing(ctx, "fresh"))
}

func TestLoad_ReservesIDsAndDropsDanglingActive(t *testing.T) {
	f := newFixture(t)
	c := models.NewCollection()
	c.Files["x"] = &models.Document{ID: "x", Status: models.StatusError}
	c.ActiveDocumentID = "nope"
	f.store.Load(c)

	assert.Empty(t, f.store.Snapshot().ActiveDocumentID)
	_, err := f.store.Create(context.Background(), models.Document{ID: "x"})
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestSnapshot_IsIsolatedCopy(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a")

	snap := f.store.Snapshot()
	snap.Files["a"].Name = "mutated"

	d, _ := f.store.Get("a")
	assert.Equal(t, "a.pdf", d.Name)

	list := f.store.List()
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
}
