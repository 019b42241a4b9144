// Package persist writes serialized state to the key-value store, debounced
// independently per key.
package persist

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/logging"
)

type Writer interface {
	Set(ctx context.Context, key string, value []byte) error
}

type entry struct {
	timer *time.Timer
	value []byte
	seq   uint64
}

// Debouncer coalesces writes: a Schedule on a key within the delay of a
// previous one replaces it. Keys never affect each other. Write failures
// are logged and dropped.
type Debouncer struct {
	w     Writer
	delay time.Duration
	log   logging.Logger

	mu      sync.Mutex
	pending map[string]*entry
	seq     uint64
	closed  bool
	flying  sync.WaitGroup

	writeMu sync.Mutex
	written map[string]uint64 // last seq stored per key
}

func NewDebouncer(w Writer, delay time.Duration, log logging.Logger) *Debouncer {
	return &Debouncer{
		w:       w,
		delay:   delay,
		log:     log,
		pending: make(map[string]*entry),
		written: make(map[string]uint64),
	}
}

// Schedule queues value for key. It never blocks on storage.
func (d *Debouncer) Schedule(key string, value []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.seq++
	seq := d.seq
	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
	}
	d.pending[key] = &entry{
		value: value,
		seq:   seq,
		timer: time.AfterFunc(d.delay, func() { d.fire(key, seq) }),
	}
}

func (d *Debouncer) fire(key string, seq uint64) {
	d.mu.Lock()
	e, ok := d.pending[key]
	if !ok || e.seq != seq {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.flying.Add(1)
	d.mu.Unlock()
	defer d.flying.Done()

	d.write(context.Background(), key, e)
}

// write stores e unless a newer value for key already went out.
func (d *Debouncer) write(ctx context.Context, key string, e *entry) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if e.seq <= d.written[key] {
		return
	}
	d.written[key] = e.seq
	if err := d.w.Set(ctx, key, e.value); err != nil {
		d.log.Warn(ctx, "persist failed", "key", key, "err", err)
	}
}

// Pending is the number of keys waiting to be written.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush writes every pending value now.
func (d *Debouncer) Flush(ctx context.Context) {
	d.mu.Lock()
	batch := d.pending
	d.pending = make(map[string]*entry)
	d.mu.Unlock()

	for key, e := range batch {
		e.timer.Stop()
		d.write(ctx, key, e)
	}
}

// Close flushes, waits for timer writes already under way and refuses
// further schedules.
func (d *Debouncer) Close(ctx context.Context) {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.Flush(ctx)
	d.flying.Wait()
}
