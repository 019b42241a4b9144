// Package handles keeps the in-memory binary handles of open documents and
// the display references derived from them. Nothing here survives a restart.
package handles

import (
	"bytes"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Handle is the live, in-memory content of one document.
type Handle struct {
	name         string
	mimeType     string
	lastModified int64
	data         []byte
}

func NewHandle(data []byte, name, mimeType string, lastModified int64) *Handle {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Handle{name: name, mimeType: mimeType, lastModified: lastModified, data: buf}
}

func (h *Handle) Name() string        { return h.name }
func (h *Handle) Type() string        { return h.mimeType }
func (h *Handle) LastModified() int64 { return h.lastModified }
func (h *Handle) Size() int64         { return int64(len(h.data)) }

// Bytes returns a copy of the content.
func (h *Handle) Bytes() []byte {
	out := make([]byte, len(h.data))
	copy(out, h.data)
	return out
}

func (h *Handle) Reader() io.ReadSeeker {
	return bytes.NewReader(h.data)
}

const refPrefix = "blob:"

// Registry maps document ids to handles and display refs to handles.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
	refs    map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]*Handle),
		refs:    make(map[string]*Handle),
	}
}

// Put binds h to id, evicting whatever was bound before.
func (r *Registry) Put(id string, h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.handles[id]; ok && old != h {
		r.releaseLocked(old)
	}
	r.handles[id] = h
}

func (r *Registry) Get(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

// Evict drops the handle for id and releases every display ref derived from
// it. Evicting an unknown id is a no-op.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	if !ok {
		return
	}
	delete(r.handles, id)
	r.releaseLocked(h)
}

func (r *Registry) releaseLocked(h *Handle) {
	for ref, owner := range r.refs {
		if owner == h {
			delete(r.refs, ref)
		}
	}
}

// NewDisplayRef mints a fresh opaque reference to h.
func (r *Registry) NewDisplayRef(h *Handle) string {
	ref := refPrefix + uuid.NewString()
	r.mu.Lock()
	r.refs[ref] = h
	r.mu.Unlock()
	return ref
}

// Resolve returns the handle behind a display ref, if it is still live.
func (r *Registry) Resolve(ref string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.refs[ref]
	return h, ok
}

func (r *Registry) Release(ref string) {
	r.mu.Lock()
	delete(r.refs, ref)
	r.mu.Unlock()
}

// Live is the number of outstanding display refs.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refs)
}
