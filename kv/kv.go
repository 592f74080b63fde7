// Package kv is the flat key-value medium the local record store and the
// session persist onto. Values are opaque bytes; callers own the encoding.
package kv

import "context"

type Store interface {
	// Get returns ok=false when the key has never been set.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
