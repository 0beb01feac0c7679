package scope

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/objects"
	objectstatus "github.com/oneconcern/scope/pkg/objects/status"
)

// ComponentLoader loads components by id, importing the missing ones from remotes.
//
// Loaded components are kept in a size-bounded cache. Ids for which an import was
// attempted are remembered for a while, so a component missing on its remote does
// not trigger a new import on every load.
type ComponentLoader struct {
	scope    *Scope
	cache    *lru.Cache[string, *Component]
	imported *expirable.LRU[string, struct{}]
	hooks    *hooks
	l        *zap.Logger
}

func newComponentLoader(s *Scope, size int, importTTL time.Duration) (*ComponentLoader, error) {
	cache, err := lru.New[string, *Component](size)
	if err != nil {
		return nil, err
	}
	return &ComponentLoader{
		scope:    s,
		cache:    cache,
		imported: expirable.NewLRU[string, struct{}](0, nil, importTTL),
		hooks:    &hooks{l: s.l},
		l:        s.l,
	}, nil
}

// RegisterOnLoad adds a handler called for each component built by the loader
func (cl *ComponentLoader) RegisterOnLoad(handler OnLoadHandler) {
	cl.hooks.register(handler)
}

// Get a component.
//
// It returns nil when the component is absent, or when the requested version is 0.0.0.
// A cached component is only returned when its id matches the requested one, scope included.
func (cl *ComponentLoader) Get(ctx context.Context, id model.ComponentID, importIfMissing, useCache bool) (*Component, error) {
	idStr := id.String()
	if useCache {
		if c, ok := cl.cache.Get(idStr); ok && c.matches(id) {
			return c, nil
		}
	}
	cl.l.Debug("loading component", zap.String("id", idStr))

	repo := cl.scope.repo
	mc, err := repo.LoadModelComponent(ctx, id)
	if err != nil {
		return nil, err
	}

	if mc == nil && importIfMissing && cl.scope.IsExported(id) && !cl.attempted(idStr) {
		if _, err = cl.scope.importer.Import(ctx, []model.ComponentID{id}, ImportOptions{
			Reason: idStr + " because it's missing from the local scope",
		}); err != nil {
			return nil, err
		}
		if mc, err = repo.LoadModelComponent(ctx, id); err != nil {
			return nil, err
		}
	}

	// exported components are found under their scope
	if mc == nil && !id.HasScope() {
		if id, err = cl.scope.scopedID(ctx, id); err != nil {
			return nil, err
		}
		if useCache {
			if c, ok := cl.cache.Get(id.String()); ok && c.matches(id) {
				return c, nil
			}
		}
		if mc, err = repo.LoadModelComponent(ctx, id); err != nil {
			return nil, err
		}
	}
	if mc == nil {
		return nil, nil
	}

	c, err := cl.build(ctx, id, mc, PersistedWithHead)
	if err != nil || c == nil {
		return nil, err
	}
	cl.cache.Add(id.String(), c)
	return c, nil
}

// attempted tells if an import of id was attempted recently, and marks it as attempted
func (cl *ComponentLoader) attempted(idStr string) bool {
	if _, ok := cl.imported.Get(idStr); ok {
		return true
	}
	cl.imported.Add(idStr, struct{}{})
	return false
}

func (cl *ComponentLoader) build(ctx context.Context, id model.ComponentID, mc *model.ModelComponent, kind ComponentKind) (*Component, error) {
	repo := cl.scope.repo

	versionStr := id.Version
	if !id.HasVersion() {
		versionStr = mc.GetHeadRegardlessOfLaneAsTagOrHash()
	}
	if versionStr == "" || versionStr == model.VersionZero {
		return nil, nil
	}
	id = id.ChangeVersion(versionStr)

	version, err := mc.LoadVersion(ctx, versionStr, repo, true)
	if err != nil {
		return nil, err
	}
	if err = model.ValidateVersionOrigin(id, version); err != nil {
		return nil, err
	}

	head, err := cl.headSnap(ctx, mc)
	if err != nil {
		return nil, err
	}
	if head == nil && kind == PersistedWithHead {
		kind = PersistedHeadless
	}
	state, err := cl.stateFromVersion(ctx, version)
	if err != nil {
		return nil, err
	}

	c := &Component{
		ID:    id,
		Kind:  kind,
		Head:  head,
		State: state,
		Tags:  tagMapOf(mc),
		model: mc,
	}
	c.HandlerErr = cl.hooks.run(ctx, c)
	return c, nil
}

// headSnap is nil when the component has no head, or when the head version is not stored locally
func (cl *ComponentLoader) headSnap(ctx context.Context, mc *model.ModelComponent) (*Snap, error) {
	head := mc.GetHeadRegardlessOfLane()
	if head.IsEmpty() {
		return nil, nil
	}
	version, err := mc.LoadVersion(ctx, head.String(), cl.scope.repo, false)
	if err != nil || version == nil {
		return nil, err
	}
	return snapFromVersion(version), nil
}

func (cl *ComponentLoader) stateFromVersion(ctx context.Context, v *model.Version) (*State, error) {
	state := &State{
		Version:      v,
		Files:        make([]File, 0, len(v.Files)),
		Dependencies: v.FlattenedDependencies,
		Extensions:   v.Extensions,
	}
	for _, f := range v.Files {
		obj, err := cl.scope.repo.Load(ctx, f.File, true)
		if err != nil {
			return nil, err
		}
		src, ok := obj.(*model.Source)
		if !ok {
			return nil, model.ErrUnexpectedType.Wrapf("%s is a %s, not a source", f.File.Short(), obj.Type())
		}
		state.Files = append(state.Files, File{RelativePath: f.RelativePath, Ref: f.File, Contents: src.Contents})
	}
	return state, nil
}

// GetRemoteComponent fetches a component from its remote without persisting it.
//
// The fetched objects are kept in the repository cache, so that subsequent loads in this
// process find them. With fromMain, the component is loaded at its head on main.
func (cl *ComponentLoader) GetRemoteComponent(ctx context.Context, id model.ComponentID, fromMain bool) (*Component, error) {
	components, err := cl.getRemote(ctx, []model.ComponentID{id}, fromMain)
	if err != nil {
		return nil, err
	}
	return components[0], nil
}

// GetManyRemoteComponents fetches components from their remotes without persisting them
func (cl *ComponentLoader) GetManyRemoteComponents(ctx context.Context, ids []model.ComponentID) ([]*Component, error) {
	return cl.getRemote(ctx, ids, false)
}

func (cl *ComponentLoader) getRemote(ctx context.Context, ids []model.ComponentID, fromMain bool) ([]*Component, error) {
	objs, err := cl.scope.importer.FetchObjects(ctx, ids, ImportOptions{})
	if err != nil {
		return nil, err
	}
	repo := cl.scope.repo
	for _, obj := range objs {
		repo.SetCache(obj)
	}

	res := make([]*Component, 0, len(ids))
	for _, id := range ids {
		mc, err := repo.LoadModelComponent(ctx, id)
		if err != nil {
			return nil, err
		}
		if mc == nil {
			return nil, &objects.HashNotFoundError{Ref: model.NewModelComponent(id).Hash()}
		}
		idToLoad := id
		if headAsTag := mc.GetHeadAsTagIfExist(); fromMain && headAsTag != "" {
			idToLoad = id.ChangeVersion(headAsTag)
		}
		c, err := cl.build(ctx, idToLoad, mc, InMemory)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, model.ErrInvalidComponent.Wrapf("%s has no version", id)
		}
		res = append(res, c)
	}
	return res, nil
}

// GetState loads the state of a component at a given snap
func (cl *ComponentLoader) GetState(ctx context.Context, id model.ComponentID, hash model.Ref) (*State, error) {
	v, err := cl.loadSnapVersion(ctx, id, hash)
	if err != nil {
		return nil, err
	}
	return cl.stateFromVersion(ctx, v)
}

// GetSnap loads a snap of a component
func (cl *ComponentLoader) GetSnap(ctx context.Context, id model.ComponentID, hash model.Ref) (*Snap, error) {
	v, err := cl.loadSnapVersion(ctx, id, hash)
	if err != nil {
		return nil, err
	}
	return snapFromVersion(v), nil
}

func (cl *ComponentLoader) loadSnapVersion(ctx context.Context, id model.ComponentID, hash model.Ref) (*model.Version, error) {
	obj, err := cl.scope.repo.Load(ctx, hash, true)
	if err != nil {
		if errors.Is(err, objectstatus.ErrHashNotFound) {
			notFound := &SnapNotFoundError{Hash: hash, ID: id}
			cl.l.Error(notFound.Error(), zap.Error(err))
			return nil, notFound
		}
		return nil, err
	}
	v, ok := obj.(*model.Version)
	if !ok {
		return nil, model.ErrUnexpectedType.Wrapf("%s is a %s, not a snap", hash.Short(), obj.Type())
	}
	return v, nil
}

// ClearComponentCache evicts one component from the cache, at every version
func (cl *ComponentLoader) ClearComponentCache(id model.ComponentID) {
	for _, key := range cl.cache.Keys() {
		if c, ok := cl.cache.Peek(key); ok && c.ID.IsEqualWithoutVersion(id) {
			cl.cache.Remove(key)
		}
	}
}

// ClearCache evicts all loaded components
func (cl *ComponentLoader) ClearCache() {
	cl.cache.Purge()
}
