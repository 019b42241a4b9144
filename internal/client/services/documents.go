package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/documents"
	"github.com/dmitrijs2005/docvault/internal/client/handles"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/pdfmeta"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxUploadSize is the largest accepted file.
const DefaultMaxUploadSize int64 = 50 << 20

// UploadFile is one file handed to Upload. An empty Type is sniffed from
// the content.
type UploadFile struct {
	Name         string
	Type         string
	LastModified int64
	Data         []byte
}

// UploadResult describes what happened to one file. Notice is the
// user-facing message when the file was rejected.
type UploadResult struct {
	Name     string
	ID       string
	Err      error
	Notice   string
	Document *models.Document
}

// DocumentService implements the document use cases.
//
// Contract:
//   - Upload: validate every file before touching any state, then import
//     the accepted ones. A rejected file never affects its siblings.
//   - Remove: drop the record (handle first) and its stored content.
//   - Reprocess: run extraction again for a document that has a live
//     handle but no metadata.
type DocumentService interface {
	Upload(ctx context.Context, files []UploadFile) []UploadResult
	Remove(ctx context.Context, id string) error
	Reprocess(ctx context.Context, id string) error
}

type Extractor interface {
	Extract(ctx context.Context, id string, data []byte) pdfmeta.Result
}

type BlobStore interface {
	Put(ctx context.Context, id string, buffer []byte, name, mimeType string, lastModified int64) error
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	store     *documents.Store
	registry  *handles.Registry
	blobs     BlobStore
	extractor Extractor
	maxSize   int64
	log       logging.Logger
	now       func() time.Time
}

func NewDocumentService(store *documents.Store, registry *handles.Registry, blobs BlobStore, extractor Extractor, maxSize int64, log logging.Logger) DocumentService {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &documentService{
		store:     store,
		registry:  registry,
		blobs:     blobs,
		extractor: extractor,
		maxSize:   maxSize,
		log:       log,
		now:       time.Now,
	}
}

func (s *documentService) validate(f *UploadFile) (string, bool) {
	if f.Type == "" {
		f.Type = mimetype.Detect(f.Data).String()
	}
	if !mimetype.EqualsAny(f.Type, common.MimePDF) {
		return fmt.Sprintf("%q is not a PDF file.", f.Name), false
	}
	if int64(len(f.Data)) > s.maxSize {
		return fmt.Sprintf("%q exceeds the %s limit.", f.Name, humanize.IBytes(uint64(s.maxSize))), false
	}
	return "", true
}

func (s *documentService) Upload(ctx context.Context, files []UploadFile) []UploadResult {
	results := make([]UploadResult, len(files))
	accepted := make([]int, 0, len(files))

	for i := range files {
		f := &files[i]
		results[i].Name = f.Name
		if notice, ok := s.validate(f); !ok {
			results[i].Notice = notice
			results[i].Err = fmt.Errorf("%s: %w", f.Name, common.ErrFileRejected)
			s.log.Info(ctx, "upload rejected", "name", f.Name, "reason", notice)
			continue
		}
		accepted = append(accepted, i)
	}

	for _, i := range accepted {
		id, err := s.create(ctx, files[i])
		results[i].ID = id
		results[i].Err = err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, i := range accepted {
		if results[i].Err != nil {
			continue
		}
		data := files[i].Data
		id := results[i].ID
		g.Go(func() error {
			s.process(gctx, id, data)
			return nil
		})
	}
	_ = g.Wait()

	for _, i := range accepted {
		if d, ok := s.store.Get(results[i].ID); ok {
			results[i].Document = d
		}
	}
	return results
}

// create registers the handle, stores the content and adds the record.
func (s *documentService) create(ctx context.Context, f UploadFile) (string, error) {
	id := uuid.NewString()
	lastModified := f.LastModified
	if lastModified == 0 {
		lastModified = s.now().UnixMilli()
	}

	h := handles.NewHandle(f.Data, f.Name, f.Type, lastModified)
	s.registry.Put(id, h)
	ref := s.registry.NewDisplayRef(h)

	// Best effort: without it the document just won't survive a restart.
	if err := s.blobs.Put(ctx, id, f.Data, f.Name, f.Type, lastModified); err != nil {
		s.log.Warn(ctx, "blob write failed", "doc_id", id, "err", err)
	}

	if _, err := s.store.Create(ctx, models.Document{
		ID:         id,
		Name:       f.Name,
		Size:       int64(len(f.Data)),
		DisplayRef: ref,
	}); err != nil {
		s.registry.Evict(id)
		return "", err
	}
	return id, nil
}

func (s *documentService) process(ctx context.Context, id string, data []byte) {
	if err := s.store.BeginProcessing(ctx, id); err != nil {
		s.log.Warn(ctx, "cannot start processing", "doc_id", id, "err", err)
		return
	}

	res := s.extractor.Extract(ctx, id, data)
	if res.OK() {
		if err := s.store.SetMetadata(ctx, id, *res.Metadata); err != nil {
			s.log.Warn(ctx, "cannot store metadata", "doc_id", id, "err", err)
		}
		return
	}
	if err := s.store.Fail(ctx, id, res.Error, res.IsCorrupted); err != nil {
		s.log.Warn(ctx, "cannot mark failure", "doc_id", id, "err", err)
	}
}

func (s *documentService) Reprocess(ctx context.Context, id string) error {
	h, ok := s.registry.Get(id)
	if !ok {
		return fmt.Errorf("document %s has no live handle: %w", id, common.ErrorNotFound)
	}
	s.process(ctx, id, h.Bytes())
	return nil
}

func (s *documentService) Remove(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, id); err != nil {
		s.log.Warn(ctx, "blob delete failed", "doc_id", id, "err", err)
	}
	return nil
}
