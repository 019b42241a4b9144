// Package blobs persists the raw bytes of imported documents so they survive
// a process restart. A missing blob is reported as (nil, nil); every storage
// failure wraps common.ErrStorageUnavailable.
package blobs
