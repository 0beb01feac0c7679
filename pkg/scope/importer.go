package scope

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
)

// Event names recorded on the invocation
const (
	EventImport = "import"
	EventExport = "export"
	EventFetch  = "fetch"
)

// ImportOptions parameterize an import
type ImportOptions struct {
	// Reason is sent to the remote, for its logs
	Reason string

	// HeadOnly fetches the requested versions without their history
	HeadOnly bool

	WithoutDependencies bool
	Lane                *model.LaneID

	// Remote forces the remote to fetch from. By default, each id is fetched from the remote named after its scope.
	Remote string
}

// ImportResult reports an import
type ImportResult struct {
	Imported []model.ComponentID

	// Conflicts lists, per component, the tags pointing to different versions locally and on the remote
	Conflicts map[string][]string
}

// Importer brings components from remote scopes into the local scope
type Importer struct {
	scope *Scope
	l     *zap.Logger
}

func newImporter(s *Scope) *Importer {
	return &Importer{scope: s, l: s.l}
}

func (i *Importer) groupByRemote(ids []model.ComponentID, remoteName string) (map[string][]string, error) {
	groups := make(map[string][]string)
	for _, id := range ids {
		name := remoteName
		if name == "" {
			name = id.Scope
		}
		if name == "" {
			primary, err := i.scope.resolveRemote("")
			if err != nil {
				return nil, err
			}
			name = primary.Name
		}
		groups[name] = append(groups[name], id.String())
	}
	return groups, nil
}

// FetchObjects fetches the objects of components from their remotes, without writing them.
//
// Remotes are queried concurrently.
func (i *Importer) FetchObjects(ctx context.Context, ids []model.ComponentID, opts ImportOptions) ([]model.BitObject, error) {
	groups, err := i.groupByRemote(ids, opts.Remote)
	if err != nil {
		return nil, err
	}

	var (
		mx  sync.Mutex
		res []model.BitObject
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(i.scope.concurrency)
	for name, idStrs := range groups {
		name, idStrs := name, idStrs
		group.Go(func() error {
			remote, err := i.scope.remotes.Resolve(name)
			if err != nil {
				return err
			}
			list, err := remote.Fetch(gctx, idStrs, &network.FetchOptions{
				Type:                  network.FetchComponents,
				WithoutDependencies:   opts.WithoutDependencies,
				IncludeVersionHistory: !opts.HeadOnly,
				LaneID:                opts.Lane,
			}, map[string]interface{}{"reason": opts.Reason})
			if err != nil {
				return err
			}
			objs, err := list.ToObjects()
			if err != nil {
				return err
			}
			i.l.Debug("fetched objects", zap.String("remote", name), zap.Int("objects", len(objs)))
			InvocationFrom(ctx).Record(EventFetch, name)

			mx.Lock()
			defer mx.Unlock()
			res = append(res, objs...)
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// Import components from their remotes and merge them into the local scope
func (i *Importer) Import(ctx context.Context, ids []model.ComponentID, opts ImportOptions) (*ImportResult, error) {
	if len(ids) == 0 {
		return &ImportResult{}, nil
	}
	i.l.Info("importing components", zap.Strings("ids", model.ComponentIDs(ids).Strings()), zap.String("reason", opts.Reason))

	objs, err := i.FetchObjects(ctx, ids, opts)
	if err != nil {
		return nil, err
	}
	res, err := i.WriteObjects(ctx, objs)
	if err != nil {
		return nil, err
	}
	if i.scope.m != nil {
		i.scope.m.Imports.Add(float64(len(res.Imported)))
	}
	InvocationFrom(ctx).Record(EventImport, model.ComponentIDs(res.Imported).Strings()...)
	return res, nil
}

// WriteObjects persists objects received from a remote.
//
// Versions and sources are written first, so that a component is never stored before its history.
// Components are merged with their local copy.
func (i *Importer) WriteObjects(ctx context.Context, objs []model.BitObject) (*ImportResult, error) {
	repo := i.scope.repo
	var (
		incoming []*model.ModelComponent
		others   = make([]model.BitObject, 0, len(objs))
	)
	for _, obj := range objs {
		if mc, ok := obj.(*model.ModelComponent); ok {
			incoming = append(incoming, mc)
			continue
		}
		others = append(others, obj)
	}
	if err := repo.Write(ctx, others...); err != nil {
		return nil, err
	}

	res := &ImportResult{Conflicts: make(map[string][]string)}
	merged := make([]model.BitObject, 0, len(incoming))
	seen := make(map[model.Ref]struct{}, len(incoming))
	var errs error
	for _, mc := range incoming {
		if _, dup := seen[mc.Hash()]; dup {
			continue
		}
		seen[mc.Hash()] = struct{}{}

		local, err := repo.LoadModelComponent(ctx, mc.ID())
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		result, conflicts := mergeIncoming(ctx, repo, local, mc)
		if len(conflicts) > 0 {
			i.l.Warn("conflicting tags on import", zap.Stringer("id", mc.ID()), zap.Strings("tags", conflicts))
			res.Conflicts[mc.ID().String()] = conflicts
		}
		merged = append(merged, result)
		res.Imported = append(res.Imported, result.ToComponentID())
		i.scope.loader.ClearComponentCache(mc.ID())
	}
	if errs != nil {
		return nil, errs
	}
	if err := repo.Write(ctx, merged...); err != nil {
		return nil, err
	}
	sort.Slice(res.Imported, func(a, b int) bool {
		return res.Imported[a].String() < res.Imported[b].String()
	})
	return res, nil
}
