// Package documents owns the authoritative document collection: the status
// machine, metadata and the active selection.
package documents

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/handles"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

// ChangeFunc receives a private copy of the collection after each mutation.
// It runs with the store locked and must not call back into the store.
type ChangeFunc func(models.Collection)

type Store struct {
	mu       sync.Mutex
	coll     models.Collection
	used     map[string]struct{}
	registry *handles.Registry
	onChange ChangeFunc
	now      func() time.Time
	log      logging.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithOnChange(fn ChangeFunc) Option {
	return func(s *Store) { s.onChange = fn }
}

func NewStore(registry *handles.Registry, log logging.Logger, opts ...Option) *Store {
	s := &Store{
		coll:     models.NewCollection(),
		used:     make(map[string]struct{}),
		registry: registry,
		now:      time.Now,
		log:      log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetOnChange replaces the change hook.
func (s *Store) SetOnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces the whole collection, typically with a decoded snapshot.
// It does not fire the change hook.
func (s *Store) Load(c models.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll = c.Clone()
	if s.coll.Files == nil {
		s.coll.Files = make(map[string]*models.Document)
	}
	for id := range s.coll.Files {
		s.used[id] = struct{}{}
	}
	if _, ok := s.coll.Files[s.coll.ActiveDocumentID]; !ok {
		s.coll.ActiveDocumentID = ""
	}
}

func (s *Store) changedLocked() {
	if s.onChange != nil {
		s.onChange(s.coll.Clone())
	}
}

func (s *Store) lookupLocked(id string) (*models.Document, error) {
	d, ok := s.coll.Files[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrorNotFound)
	}
	return d, nil
}

func (s *Store) moveLocked(d *models.Document, to models.DocumentStatus) error {
	if !models.CanTransition(d.Status, to) {
		return fmt.Errorf("document %s: %s -> %s: %w", d.ID, d.Status, to, ErrInvalidTransition)
	}
	d.Status = to
	return nil
}

// Create registers a new document in uploading status and makes it active.
// Only ID, Name, Size and DisplayRef are taken from doc.
func (s *Store) Create(ctx context.Context, doc models.Document) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.used[doc.ID]; ok || doc.ID == "" {
		return nil, fmt.Errorf("document %q: %w", doc.ID, ErrDuplicateID)
	}

	d := &models.Document{
		ID:         doc.ID,
		Name:       doc.Name,
		Size:       doc.Size,
		DisplayRef: doc.DisplayRef,
		Status:     models.StatusUploading,
		UploadedAt: s.now().UnixMilli(),
	}
	s.coll.Files[d.ID] = d
	s.used[d.ID] = struct{}{}
	s.coll.ActiveDocumentID = d.ID
	s.log.Debug(ctx, "document created", "id", d.ID, "name", d.Name)
	s.changedLocked()
	return d.Clone(), nil
}

// BeginProcessing moves an uploading or restoring document to processing.
func (s *Store) BeginProcessing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	if err := s.moveLocked(d, models.StatusProcessing); err != nil {
		return err
	}
	s.changedLocked()
	return nil
}

// SetMetadata completes processing.
func (s *Store) SetMetadata(ctx context.Context, id string, meta models.DocumentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	if err := s.moveLocked(d, models.StatusReady); err != nil {
		return err
	}
	d.Metadata = &meta
	d.PageCount = meta.PageCount
	d.Error = ""
	d.IsCorrupted = false
	s.log.Debug(ctx, "document ready", "id", id, "pages", meta.PageCount)
	s.changedLocked()
	return nil
}

// Fail moves a document to error. The handle goes with it: error documents
// hold none.
func (s *Store) Fail(ctx context.Context, id, reason string, corrupted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	if err := s.moveLocked(d, models.StatusError); err != nil {
		return err
	}
	s.dropHandleLocked(d)
	d.Error = reason
	d.IsCorrupted = corrupted
	s.log.Warn(ctx, "document failed", "id", id, "reason", reason, "corrupted", corrupted)
	s.changedLocked()
	return nil
}

// Restored attaches a freshly derived display ref to a restoring document.
// With metadata already known it goes straight to ready, otherwise back to
// uploading for re-processing. The resulting status is returned.
func (s *Store) Restored(ctx context.Context, id, displayRef string) (models.DocumentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupLocked(id)
	if err != nil {
		return "", err
	}
	if d.Status != models.StatusRestoring {
		return d.Status, fmt.Errorf("document %s: restore from %s: %w", id, d.Status, ErrInvalidTransition)
	}

	to := models.StatusUploading
	if d.Metadata != nil {
		to = models.StatusReady
	}
	if err := s.moveLocked(d, to); err != nil {
		return d.Status, err
	}
	d.DisplayRef = displayRef
	d.Error = ""
	d.IsCorrupted = false
	s.changedLocked()
	return to, nil
}

func (s *Store) dropHandleLocked(d *models.Document) {
	if s.registry == nil {
		return
	}
	if d.DisplayRef != "" {
		s.registry.Release(d.DisplayRef)
	}
	s.registry.Evict(d.ID)
	d.DisplayRef = ""
}

// Remove evicts the document's handle and then deletes the record. If it
// was active, the most recently uploaded remaining document becomes active.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	s.dropHandleLocked(d)
	delete(s.coll.Files, id)

	if s.coll.ActiveDocumentID == id {
		s.coll.ActiveDocumentID = ""
		if ids := s.orderedLocked(); len(ids) > 0 {
			s.coll.ActiveDocumentID = ids[len(ids)-1]
		}
	}
	s.log.Debug(ctx, "document removed", "id", id, "active", s.coll.ActiveDocumentID)
	s.changedLocked()
	return nil
}

// SetActive selects an existing document.
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(id); err != nil {
		return err
	}
	if s.coll.ActiveDocumentID == id {
		return nil
	}
	s.coll.ActiveDocumentID = id
	s.changedLocked()
	return nil
}

// orderedLocked returns ids by upload time, ties broken by id.
func (s *Store) orderedLocked() []string {
	ids := make([]string, 0, len(s.coll.Files))
	for id := range s.coll.Files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.coll.Files[ids[i]], s.coll.Files[ids[j]]
		if a.UploadedAt != b.UploadedAt {
			return a.UploadedAt < b.UploadedAt
		}
		return a.ID < b.ID
	})
	return ids
}

func (s *Store) Get(id string) (*models.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.coll.Files[id]
	return d.Clone(), ok
}

func (s *Store) Active() (*models.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.coll.Files[s.coll.ActiveDocumentID]
	return d.Clone(), ok
}

// List returns copies of every document in upload order.
func (s *Store) List() []*models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.orderedLocked()
	out := make([]*models.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.coll.Files[id].Clone())
	}
	return out
}

func (s *Store) Snapshot() models.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Clone()
}
