// Package bdgr provides a storage backend on top of an embedded badger KV store.
package bdgr

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v3"
	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/storage"
	"github.com/oneconcern/scope/pkg/storage/status"
)

// Store is a storage.Store backed by badger. It must be closed after use.
type Store struct {
	db   *badger.DB
	path string
}

var _ storage.Store = &Store{}

// Option configures the badger store
type Option func(*badger.Options)

// InMemory runs badger without any disk persistence
func InMemory() Option {
	return func(o *badger.Options) {
		*o = o.WithInMemory(true).WithDir("").WithValueDir("")
	}
}

// New opens (or creates) a badger database located at path
func New(path string, opts ...Option) (*Store, error) {
	options := badger.DefaultOptions(path).WithLogger(nil)
	for _, apply := range opts {
		apply(&options)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return &Store{db: db, path: path}, nil
}

// Close the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) String() string {
	if s.path == "" {
		return "badger@memory"
	}
	return "badger@" + s.path
}

func (s *Store) Has(_ context.Context, key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, e := txn.Get([]byte(key))
		return e
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, e := txn.Get([]byte(key))
		if e != nil {
			return e
		}
		value, e = item.ValueCopy(nil)
		return e
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, status.ErrNotExists.Wrapf("%s", key)
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

// Put sets a key within a single transaction, retrying on conflicts.
func (s *Store) Put(_ context.Context, key string, source io.Reader, exclusive bool) error {
	value, err := io.ReadAll(source)
	if err != nil {
		return err
	}

	return backoff.Retry(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			if exclusive {
				_, e := txn.Get([]byte(key))
				if e == nil {
					return backoff.Permanent(status.ErrExists.Wrapf("%s", key))
				}
				if !errors.Is(e, badger.ErrKeyNotFound) {
					return backoff.Permanent(e)
				}
			}

			if e := txn.Set([]byte(key), value); e != nil {
				if errors.Is(e, badger.ErrConflict) {
					return e // retry
				}
				return backoff.Permanent(e)
			}
			return nil
		})
	},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), 10),
	)
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// KeysPrefix iterates over keys with a prefix, starting after the token key.
func (s *Store) KeysPrefix(_ context.Context, token, prefix, _ string, count int) ([]string, string, error) {
	var (
		keys []string
		next string
	)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: []byte(prefix)})
		defer it.Close()
		start := []byte(prefix)
		if token != "" {
			start = []byte(token)
		}
		for it.Seek(start); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().KeyCopy(nil))
			if token != "" && key <= token {
				continue
			}
			if !strings.HasPrefix(key, prefix) {
				break
			}
			keys = append(keys, key)
			if count > 0 && len(keys) == count {
				next = key
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return keys, next, nil
}

func (s *Store) Clear(_ context.Context) error {
	return s.db.DropAll()
}
