// Package objects implements the object repository of a scope: compressed,
// hash-addressed blobs in a storage backend, and the scope index.
package objects

import (
	"bytes"
	"context"
	"path"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/metrics"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/objects/status"
	"github.com/oneconcern/scope/pkg/storage"
	storagestatus "github.com/oneconcern/scope/pkg/storage/status"
)

// Repository persists the objects of a scope
type Repository struct {
	store    storage.Store
	fs       afero.Fs
	basePath string
	index    *ScopeIndex

	cache     *lru.Cache[model.Ref, model.BitObject]
	cacheSize int

	stageMx sync.Mutex
	staged  []model.BitObject
	removed []model.Ref

	concurrency int
	l           *zap.Logger
	m           *metrics.M
}

func newRepository(store storage.Store, fs afero.Fs, basePath string, opts ...Option) (*Repository, error) {
	r := &Repository{
		store:       store,
		fs:          fs,
		basePath:    basePath,
		cacheSize:   DefaultCacheSize,
		concurrency: DefaultConcurrency,
		l:           dlogger.MustGetLogger(dlogger.LogLevelNone),
	}
	for _, apply := range opts {
		apply(r)
	}
	cache, err := lru.New[model.Ref, model.BitObject](r.cacheSize)
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

func (r *Repository) indexOptions() []IndexOption {
	return []IndexOption{IndexLogger(r.l), IndexMetrics(r.m)}
}

// Create a new repository with an empty index, written to disk
func Create(ctx context.Context, store storage.Store, fs afero.Fs, basePath string, opts ...Option) (*Repository, error) {
	r, err := newRepository(store, fs, basePath, opts...)
	if err != nil {
		return nil, err
	}
	r.index = CreateIndex(fs, basePath, r.indexOptions()...)
	if err = r.index.Write(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Open an existing repository.
//
// A missing index is created empty. A corrupted index yields an *InvalidIndexJSONError:
// the caller may then use OpenAndReindex.
func Open(ctx context.Context, store storage.Store, fs afero.Fs, basePath string, opts ...Option) (*Repository, error) {
	r, err := newRepository(store, fs, basePath, opts...)
	if err != nil {
		return nil, err
	}
	r.index, err = LoadIndex(fs, basePath, r.indexOptions()...)
	switch {
	case errors.Is(err, status.ErrIndexNotFound):
		r.l.Info("no index found, creating an empty one", zap.String("path", path.Join(basePath, IndexFile)))
		r.index = CreateIndex(fs, basePath, r.indexOptions()...)
		if err = r.index.Write(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	return r, nil
}

// OpenAndReindex opens a repository, discarding the current index and rebuilding it from stored objects
func OpenAndReindex(ctx context.Context, store storage.Store, fs afero.Fs, basePath string, opts ...Option) (*Repository, error) {
	r, err := newRepository(store, fs, basePath, opts...)
	if err != nil {
		return nil, err
	}
	r.index = CreateIndex(fs, basePath, r.indexOptions()...)
	if err = r.Reindex(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Index of the repository
func (r *Repository) Index() *ScopeIndex {
	return r.index
}

// Store is the storage backend of object blobs
func (r *Repository) Store() storage.Store {
	return r.store
}

// Path of the scope directory
func (r *Repository) Path() string {
	return r.basePath
}

func (r *Repository) objectPath(ref model.Ref) string {
	return path.Join(r.basePath, ObjectsDir, ref.Path())
}

func (r *Repository) countLoad(result string) {
	if r.m != nil {
		r.m.ObjectLoads.WithLabelValues(result).Inc()
	}
}

// Load an object by ref.
//
// A missing object yields (nil, nil), or a *HashNotFoundError when throwIfMissing is set.
// A blob which cannot be inflated yields a *CorruptedObjectError.
func (r *Repository) Load(ctx context.Context, ref model.Ref, throwIfMissing bool) (model.BitObject, error) {
	if obj, ok := r.cache.Get(ref); ok {
		r.countLoad(metrics.LoadCacheHit)
		return obj, nil
	}

	blob, err := storage.ReadAll(ctx, r.store, ref.Path())
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) || errors.Is(err, storagestatus.ErrNotFound) {
			r.countLoad(metrics.LoadMissing)
			if throwIfMissing {
				return nil, &HashNotFoundError{Ref: ref}
			}
			return nil, nil
		}
		return nil, err
	}

	obj, err := model.ParseObject(blob)
	if err != nil {
		r.countLoad(metrics.LoadCorrupted)
		r.l.Warn("corrupted object", zap.String("hash", ref.String()), zap.Error(err))
		return nil, &CorruptedObjectError{Path: r.objectPath(ref), Err: err}
	}
	r.countLoad(metrics.LoadStorage)
	r.cache.Add(ref, obj)
	return obj, nil
}

// LoadModelComponent loads the component of an id, or returns nil when absent
func (r *Repository) LoadModelComponent(ctx context.Context, id model.ComponentID) (*model.ModelComponent, error) {
	obj, err := r.Load(ctx, model.NewModelComponent(id).Hash(), false)
	if err != nil || obj == nil {
		return nil, err
	}
	c, ok := obj.(*model.ModelComponent)
	if !ok {
		return nil, model.ErrUnexpectedType.Wrapf("%s is a %s, not a component", id, obj.Type())
	}
	return c, nil
}

// LoadSymlink loads the symlink of an id without scope, or returns nil when absent
func (r *Repository) LoadSymlink(ctx context.Context, id model.ComponentID) (*model.Symlink, error) {
	obj, err := r.Load(ctx, (&model.Symlink{Scope: id.Scope, Name: id.Name}).Hash(), false)
	if err != nil || obj == nil {
		return nil, err
	}
	s, ok := obj.(*model.Symlink)
	if !ok {
		return nil, model.ErrUnexpectedType.Wrapf("%s is a %s, not a symlink", id, obj.Type())
	}
	return s, nil
}

// LoadLane finds a lane by id, through the index
func (r *Repository) LoadLane(ctx context.Context, id model.LaneID) (*model.Lane, error) {
	hashes := r.index.GetHashesByQuery(model.TypeLane, func(item IndexItem) bool {
		lane, ok := item.(*LaneItem)
		return ok && lane.ID == id
	})
	if len(hashes) == 0 {
		return nil, nil
	}
	obj, err := r.Load(ctx, hashes[0], true)
	if err != nil {
		return nil, err
	}
	lane, ok := obj.(*model.Lane)
	if !ok {
		return nil, model.ErrUnexpectedType.Wrapf("%s is a %s, not a lane", id, obj.Type())
	}
	return lane, nil
}

// LoadComponents loads all indexed components
func (r *Repository) LoadComponents(ctx context.Context) ([]*model.ModelComponent, error) {
	hashes := r.index.GetHashes(model.TypeComponent)
	res := make([]*model.ModelComponent, 0, len(hashes))
	for _, hash := range hashes {
		obj, err := r.Load(ctx, hash, false)
		if err != nil {
			return nil, err
		}
		if c, ok := obj.(*model.ModelComponent); ok {
			res = append(res, c)
		}
	}
	return res, nil
}

// LoadLanes loads all indexed lanes
func (r *Repository) LoadLanes(ctx context.Context) ([]*model.Lane, error) {
	hashes := r.index.GetHashes(model.TypeLane)
	res := make([]*model.Lane, 0, len(hashes))
	for _, hash := range hashes {
		obj, err := r.Load(ctx, hash, false)
		if err != nil {
			return nil, err
		}
		if l, ok := obj.(*model.Lane); ok {
			res = append(res, l)
		}
	}
	return res, nil
}

// SetCache keeps an object in the in-memory cache, without persisting it
func (r *Repository) SetCache(obj model.BitObject) {
	r.cache.Add(obj.Hash(), obj)
}

// ClearObjectCache evicts a single object from the cache
func (r *Repository) ClearObjectCache(ref model.Ref) {
	r.cache.Remove(ref)
}

// ClearCache empties the in-memory cache
func (r *Repository) ClearCache() {
	r.cache.Purge()
}

// Write compresses and stores objects, then updates the index.
//
// Every object write is atomic. Writing the same immutable object twice is a no-op.
// Components, symlinks and lanes are overwritten in place.
// Failures are collected: the other objects of the batch are still written.
func (r *Repository) Write(ctx context.Context, objs ...model.BitObject) error {
	var (
		errs    error
		written = make([]model.BitObject, 0, len(objs))
	)
	for _, obj := range objs {
		if err := r.writeOne(ctx, obj); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		written = append(written, obj)
	}

	if r.index.AddMany(written) {
		errs = multierr.Append(errs, r.index.Write(ctx))
	}
	return errs
}

func (r *Repository) writeOne(ctx context.Context, obj model.BitObject) error {
	ref := obj.Hash()
	blob, err := model.Compress(obj)
	if err != nil {
		return status.ErrWriteObject.Wrapf("%s %s: %v", obj.Type(), ref.Short(), err)
	}

	mutable := obj.Type().IsIndexed()
	err = r.store.Put(ctx, ref.Path(), bytes.NewReader(blob), !mutable)
	switch {
	case err == nil:
	case !mutable && errors.Is(err, storagestatus.ErrExists):
		r.l.Debug("object already stored", zap.String("hash", ref.String()))
		return nil
	default:
		return status.ErrWriteObject.Wrapf("%s %s: %v", obj.Type(), ref.Short(), err)
	}

	if mutable {
		r.cache.Remove(ref)
	}
	r.cache.Add(ref, obj)
	if r.m != nil {
		r.m.ObjectWrites.WithLabelValues(obj.Type().String()).Inc()
		r.m.ObjectBytes.Add(float64(len(blob)))
	}
	r.l.Debug("object written", zap.String("hash", ref.String()), zap.Stringer("type", obj.Type()))
	return nil
}

// Add stages objects for the next Persist
func (r *Repository) Add(objs ...model.BitObject) {
	r.stageMx.Lock()
	defer r.stageMx.Unlock()
	r.staged = append(r.staged, objs...)
	for _, obj := range objs {
		r.cache.Add(obj.Hash(), obj)
	}
}

// MarkRemoved stages refs to delete on the next Persist
func (r *Repository) MarkRemoved(refs ...model.Ref) {
	r.stageMx.Lock()
	defer r.stageMx.Unlock()
	r.removed = append(r.removed, refs...)
}

// Objects returns the staged objects
func (r *Repository) Objects() []model.BitObject {
	r.stageMx.Lock()
	defer r.stageMx.Unlock()
	res := make([]model.BitObject, len(r.staged))
	copy(res, r.staged)
	return res
}

// Persist writes staged objects and applies staged removals
func (r *Repository) Persist(ctx context.Context) error {
	r.stageMx.Lock()
	staged, removed := r.staged, r.removed
	r.staged, r.removed = nil, nil
	r.stageMx.Unlock()

	err := r.Remove(ctx, removed...)
	return multierr.Append(err, r.Write(ctx, staged...))
}

// Remove deletes objects and their index entries
func (r *Repository) Remove(ctx context.Context, refs ...model.Ref) error {
	if len(refs) == 0 {
		return nil
	}
	var errs error
	for _, ref := range refs {
		r.cache.Remove(ref)
		if err := r.store.Delete(ctx, ref.Path()); err != nil && !errors.Is(err, storagestatus.ErrNotExists) {
			errs = multierr.Append(errs, err)
		}
	}
	if r.index.RemoveMany(refs) {
		errs = multierr.Append(errs, r.index.Write(ctx))
	}
	return errs
}

// ListRefs lists every object present in the storage backend
func (r *Repository) ListRefs(ctx context.Context) ([]model.Ref, error) {
	keys, err := r.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]model.Ref, 0, len(keys))
	for _, key := range keys {
		if ref, ok := model.RefFromPath(key); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// Reindex discards the index and rebuilds it from the objects present in the storage backend.
//
// Corrupted objects are skipped with a warning.
func (r *Repository) Reindex(ctx context.Context) error {
	index, err := ResetIndex(r.fs, r.basePath, r.indexOptions()...)
	if err != nil {
		return err
	}
	refs, err := r.ListRefs(ctx)
	if err != nil {
		return err
	}

	for _, ref := range refs {
		obj, err := r.Load(ctx, ref, false)
		if err != nil {
			var corrupted *CorruptedObjectError
			if errors.As(err, &corrupted) {
				continue
			}
			return err
		}
		if obj != nil && obj.Type().IsIndexed() {
			index.AddOne(obj)
		}
	}
	r.index = index
	r.l.Info("index rebuilt", zap.Int("objects", len(refs)), zap.Int("entries", len(index.GetAll())))
	return index.Write(ctx)
}

// HasObjects returns the subset of refs present in the storage backend
func (r *Repository) HasObjects(ctx context.Context, refs []model.Ref) ([]model.Ref, error) {
	found := make([]bool, len(refs))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for i, ref := range refs {
		i, ref := i, ref
		group.Go(func() error {
			has, err := r.store.Has(gctx, ref.Path())
			if err != nil {
				return err
			}
			found[i] = has
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	res := make([]model.Ref, 0, len(refs))
	for i, ok := range found {
		if ok {
			res = append(res, refs[i])
		}
	}
	return res, nil
}
