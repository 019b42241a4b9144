// Package restore re-acquires the binary content of documents left in the
// restoring state after a restart.
package restore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/client/handles"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"golang.org/x/sync/errgroup"
)

const (
	MsgContentMissing = "File content is no longer available (storage cleared externally). Please re-upload."
	msgRestoreFailed  = "Restore failed: %v. Please re-upload."
)

type BlobReader interface {
	Get(ctx context.Context, id string) (*models.BlobEnvelope, error)
}

type Lifecycle interface {
	Restored(ctx context.Context, id, displayRef string) (models.DocumentStatus, error)
	Fail(ctx context.Context, id, reason string, corrupted bool) error
}

// Reprocessor runs metadata extraction again for a restored document that
// never finished processing.
type Reprocessor interface {
	Reprocess(ctx context.Context, id string) error
}

type Report struct {
	Restored    []string
	Reprocessed []string
	Failed      []string
}

type Orchestrator struct {
	blobs     BlobReader
	registry  *handles.Registry
	lifecycle Lifecycle
	reproc    Reprocessor
	log       logging.Logger
}

func New(blobs BlobReader, registry *handles.Registry, lifecycle Lifecycle, reproc Reprocessor, log logging.Logger) *Orchestrator {
	return &Orchestrator{blobs: blobs, registry: registry, lifecycle: lifecycle, reproc: reproc, log: log}
}

// Run restores every record of snap in restoring status. Records are handled
// independently; one failure never affects the others. Documents created
// after snap was taken are not touched.
func (o *Orchestrator) Run(ctx context.Context, snap models.Collection) Report {
	var ids []string
	for id, d := range snap.Files {
		if d != nil && d.Status == models.StatusRestoring {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var (
		mu     sync.Mutex
		report Report
	)
	add := func(list *[]string, id string) {
		mu.Lock()
		*list = append(*list, id)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			switch o.restoreOne(gctx, id) {
			case outcomeRestored:
				add(&report.Restored, id)
			case outcomeReprocessed:
				add(&report.Reprocessed, id)
			default:
				add(&report.Failed, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Restored)
	sort.Strings(report.Reprocessed)
	sort.Strings(report.Failed)
	o.log.Info(ctx, "restoration finished",
		"restored", len(report.Restored), "reprocessed", len(report.Reprocessed), "failed", len(report.Failed))
	return report
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeRestored
	outcomeReprocessed
)

func (o *Orchestrator) restoreOne(ctx context.Context, id string) outcome {
	env, err := o.blobs.Get(ctx, id)
	if err != nil {
		o.log.Warn(ctx, "blob read failed", "doc_id", id, "err", err)
		o.fail(ctx, id, fmt.Sprintf(msgRestoreFailed, err))
		return outcomeFailed
	}
	if env == nil {
		o.fail(ctx, id, MsgContentMissing)
		return outcomeFailed
	}

	h := handles.NewHandle(env.Buffer, env.Name, env.Type, env.LastModified)
	o.registry.Put(id, h)
	ref := o.registry.NewDisplayRef(h)

	status, err := o.lifecycle.Restored(ctx, id, ref)
	if err != nil {
		// Removed while we were reading; the handle must not outlive it.
		o.registry.Evict(id)
		o.log.Debug(ctx, "restored record no longer restoring", "doc_id", id, "err", err)
		return outcomeFailed
	}
	if status != models.StatusUploading || o.reproc == nil {
		return outcomeRestored
	}

	if err := o.reproc.Reprocess(ctx, id); err != nil {
		o.log.Warn(ctx, "reprocess failed", "doc_id", id, "err", err)
		return outcomeFailed
	}
	return outcomeReprocessed
}

func (o *Orchestrator) fail(ctx context.Context, id, reason string) {
	if err := o.lifecycle.Fail(ctx, id, reason, false); err != nil {
		o.log.Debug(ctx, "could not mark restore failure", "doc_id", id, "err", err)
	}
}
