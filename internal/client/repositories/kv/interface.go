// Package kv is the durable key-value table used for serialized snapshots,
// conversations and tokens.
package kv

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
