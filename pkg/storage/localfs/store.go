// Copyright © 2018 One Concern

package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oneconcern/scope/pkg/storage"
	"github.com/oneconcern/scope/pkg/storage/status"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

// New creates a new local file system backed storage model
func New(fs afero.Fs) storage.Store {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(".scope", "objects"))
	}
	return &localFS{
		fs: fs,
	}
}

type localFS struct {
	fs afero.Fs
}

func (l *localFS) Has(ctx context.Context, key string) (bool, error) {
	fi, err := l.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return !fi.IsDir(), nil
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := l.fs.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ErrNotExists.Wrapf("%s", key)
		}
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, status.ErrNotExists.Wrapf("%s is a directory", key)
	}
	return f, nil
}

func (l *localFS) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	if dir := filepath.Dir(key); dir != "" && dir != "." {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ensuring directories for %q: %v", key, err)
		}
	}
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if exclusive {
		flag |= os.O_EXCL
	}
	target, err := l.fs.OpenFile(key, flag, 0600)
	if err != nil {
		if os.IsExist(err) {
			return status.ErrExists.Wrapf("%s", key)
		}
		return fmt.Errorf("create record for %q: %v", key, err)
	}
	if _, err = io.Copy(target, source); err != nil {
		_ = target.Close()
		return fmt.Errorf("write record for %q: %v", key, err)
	}
	return target.Close()
}

func (l *localFS) Delete(ctx context.Context, key string) error {
	if err := l.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %q: %v", key, err)
	}
	return nil
}

func (l *localFS) Keys(ctx context.Context) ([]string, error) {
	const root = "."
	var res []string
	e := afero.Walk(l.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root || info.IsDir() {
			return nil
		}
		res = append(res, filepath.ToSlash(strings.TrimPrefix(path, "./")))
		return nil
	})
	if e != nil {
		if os.IsNotExist(e) {
			return nil, nil
		}
		return nil, e
	}
	sort.Strings(res)
	return res, nil
}

// KeysPrefix pages through keys sorted in lexical order.
//
// The token is the last key of the previous page. The delimiter is not supported by this backend.
func (l *localFS) KeysPrefix(ctx context.Context, token, prefix, _ string, count int) ([]string, string, error) {
	all, err := l.Keys(ctx)
	if err != nil {
		return nil, "", err
	}
	res := make([]string, 0, count)
	for _, key := range all {
		if !strings.HasPrefix(key, prefix) || (token != "" && key <= token) {
			continue
		}
		res = append(res, key)
		if count > 0 && len(res) == count {
			return res, key, nil
		}
	}
	return res, "", nil
}

func (l *localFS) Clear(ctx context.Context) error {
	entries, err := afero.ReadDir(l.fs, ".")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := l.fs.RemoveAll(entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (l *localFS) String() string {
	return describe("localfs", l.fs)
}

func describe(name string, fs afero.Fs) string {
	switch fs := fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return name
		}
		return name + "@" + pp
	default:
		return name
	}
}

// thread-safe local storage implementation.
//
// A decorator implements atomic Put()s via atomicity of afero.Fs.Rename(),
// for those filesystems where Rename() is atomic: files are placed in a staging area,
// then Rename()d into place.

const nestedPutStageName = ".put-stage"

func maybeInvalidKey(key string) error {
	pathComponents := strings.Split(strings.TrimLeft(filepath.ToSlash(key), "/"), "/")
	if pathComponents[0] == nestedPutStageName {
		return status.ErrInvalidKey.Wrapf("key %q conflicts with put staging area name %q", key, nestedPutStageName)
	}
	return nil
}

func filterInvalidKeys(ks []string) []string {
	ksFiltered := ks[:0]
	for _, key := range ks {
		if err := maybeInvalidKey(key); err == nil {
			ksFiltered = append(ksFiltered, key)
		}
	}
	return ksFiltered
}

// NewAtomic creates a local file system store where every Put is atomic
func NewAtomic(fs afero.Fs) (storage.Store, error) {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(".scope", "objects"))
	}
	// the staging area exists within the afero.Fs itself
	if err := fs.MkdirAll(nestedPutStageName, 0700); err != nil {
		return nil, fmt.Errorf("ensuring put staging directory for %q: %v", nestedPutStageName, err)
	}
	return &localFSAtomic{
		storeImpl: localFS{fs: fs},
	}, nil
}

type localFSAtomic struct {
	storeImpl localFS
}

func (l *localFSAtomic) Has(ctx context.Context, key string) (bool, error) {
	if err := maybeInvalidKey(key); err != nil {
		return false, err
	}
	return l.storeImpl.Has(ctx, key)
}

func (l *localFSAtomic) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := maybeInvalidKey(key); err != nil {
		return nil, err
	}
	return l.storeImpl.Get(ctx, key)
}

func (l *localFSAtomic) Delete(ctx context.Context, key string) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	return l.storeImpl.Delete(ctx, key)
}

func (l *localFSAtomic) Keys(ctx context.Context) ([]string, error) {
	ks, err := l.storeImpl.Keys(ctx)
	if err != nil {
		return ks, err
	}
	return filterInvalidKeys(ks), nil
}

func (l *localFSAtomic) KeysPrefix(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error) {
	if err := maybeInvalidKey(prefix); prefix != "" && err != nil {
		return nil, "", err
	}
	ks, pageToken, err := l.storeImpl.KeysPrefix(ctx, token, prefix, delimiter, count)
	if err != nil {
		return ks, pageToken, err
	}
	return filterInvalidKeys(ks), pageToken, nil
}

func (l *localFSAtomic) Clear(ctx context.Context) error {
	if err := l.storeImpl.Clear(ctx); err != nil {
		return err
	}
	return l.storeImpl.fs.MkdirAll(nestedPutStageName, 0700)
}

// Put writes to a unique staging file, then renames it into place.
//
// With exclusive set, an existing key yields status.ErrExists.
func (l *localFSAtomic) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	if err := maybeInvalidKey(key); err != nil {
		return err
	}
	if exclusive {
		has, err := l.storeImpl.Has(ctx, key)
		if err != nil {
			return err
		}
		if has {
			return status.ErrExists.Wrapf("%s", key)
		}
	}
	putStageKey := filepath.Join(nestedPutStageName, ksuid.New().String())
	if err := l.storeImpl.Put(ctx, putStageKey, source, storage.NoOverWrite); err != nil {
		_ = l.storeImpl.Delete(ctx, putStageKey)
		return err
	}
	// Rename() doesn't create directories automatically
	if dir := filepath.Dir(key); dir != "" && dir != "." {
		if err := l.storeImpl.fs.MkdirAll(dir, 0700); err != nil {
			_ = l.storeImpl.Delete(ctx, putStageKey)
			return fmt.Errorf("ensuring directories for %q: %v", key, err)
		}
	}
	if err := l.storeImpl.fs.Rename(putStageKey, key); err != nil {
		_ = l.storeImpl.Delete(ctx, putStageKey)
		return fmt.Errorf("atomic put for %q: %w", key, err)
	}
	return nil
}

func (l *localFSAtomic) String() string {
	return describe("localfs-atomic", l.storeImpl.fs)
}
