// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
)

const (
	// OverWrite replaces any existing object stored under the same key
	OverWrite = false

	// NoOverWrite fails with status.ErrExists whenever the key is already present
	NoOverWrite = true
)

// Store implementations know how to write blobs to a K/V model.
//
// Typically this is something file system-like. Examples are S3, local FS, an embedded KV store...
// Implementations of this interface are assumed to be fairly simple.
//
// Put must be atomic per key: a reader never observes a partially written value.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, bool) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	KeysPrefix(context.Context, string, string, string, int) ([]string, string, error)
	Clear(context.Context) error
}

// ReadAll retrieves the full content of a key
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	rdr, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	return io.ReadAll(rdr)
}
