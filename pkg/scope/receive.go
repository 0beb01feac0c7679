package scope

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
)

// ReceivePush accepts objects pushed by a client exporting to this scope.
//
// The objects are checked against the local history first. With opts.Persist they are
// written right away. Otherwise they are kept pending under the client id until PersistExport:
// only one export may be pending at a time.
func (s *Scope) ReceivePush(ctx context.Context, list network.ObjectList, opts network.PushOptions) ([]string, error) {
	if s.readOnly {
		return nil, &network.PermissionDeniedError{Scope: s.name}
	}
	objs, err := list.ToObjects()
	if err != nil {
		return nil, &network.CustomError{Message: fmt.Sprintf("invalid objects: %v", err)}
	}
	ids, err := s.checkPushed(ctx, objs)
	if err != nil {
		return nil, err
	}
	if opts.Persist {
		return s.persistObjects(ctx, objs)
	}
	if err = validExportID(opts.ClientID); err != nil {
		return nil, err
	}

	s.exports.Lock()
	defer s.exports.Unlock()

	if _, persisting := s.persists[opts.ClientID]; persisting {
		return nil, &network.ClientIDInUseError{ClientID: opts.ClientID}
	}
	pending, err := s.pendingExports()
	if err != nil {
		return nil, err
	}
	others := make([]string, 0, len(pending))
	for _, id := range pending {
		if id != opts.ClientID {
			others = append(others, id)
		}
	}
	if len(others) > 0 {
		return nil, &network.ServerIsBusyError{QueueSize: len(others), CurrentExportID: others[0]}
	}

	p, err := s.readPending(opts.ClientID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &pendingExport{ClientID: opts.ClientID, Created: time.Now().UTC()}
	}
	p.Objects = mergeObjectLists(p.Objects, list)
	if err = s.writePending(p); err != nil {
		return nil, err
	}
	s.l.Info("export pending", zap.String("export", opts.ClientID), zap.Int("objects", len(p.Objects)))
	return ids, nil
}

// PersistExport writes the objects pending for an export. An unknown export persists nothing.
func (s *Scope) PersistExport(ctx context.Context, exportID string) ([]string, error) {
	if s.readOnly {
		return nil, &network.PermissionDeniedError{Scope: s.name}
	}
	s.exports.Lock()
	if _, persisting := s.persists[exportID]; persisting {
		s.exports.Unlock()
		return nil, &network.ClientIDInUseError{ClientID: exportID}
	}
	s.persists[exportID] = struct{}{}
	s.exports.Unlock()
	defer func() {
		s.exports.Lock()
		delete(s.persists, exportID)
		s.exports.Unlock()
	}()

	p, err := s.readPending(exportID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return []string{}, nil
	}
	objs, err := p.Objects.ToObjects()
	if err != nil {
		return nil, err
	}

	ids, err := s.persistObjects(ctx, objs)
	var conflict *network.MergeConflictOnRemoteError
	if err != nil && !errors.As(err, &conflict) {
		// storage failures leave the export pending, for a later resume
		return nil, err
	}
	if derr := s.deletePending(exportID); derr != nil {
		s.l.Warn("cannot delete pending export", zap.String("export", exportID), zap.Error(derr))
	}
	if err != nil {
		return nil, err
	}
	s.l.Info("export persisted", zap.String("export", exportID), zap.Strings("ids", ids))
	return ids, nil
}

// checkPushed refuses components of other scopes, components behind the local history and conflicting tags
func (s *Scope) checkPushed(ctx context.Context, objs []model.BitObject) ([]string, error) {
	loader := newOverlayLoader(s.repo, objs)
	var (
		ids         []string
		conflicts   []network.IDAndVersions
		needsUpdate []network.IDNeedUpdate
	)
	for _, obj := range objs {
		mc, ok := obj.(*model.ModelComponent)
		if !ok {
			continue
		}
		if mc.Scope != s.name {
			return nil, &network.CustomError{
				Message: fmt.Sprintf("component %s does not belong to scope %q", mc.ID().StringWithoutVersion(), s.name),
			}
		}
		local, err := s.repo.LoadModelComponent(ctx, mc.ID())
		if err != nil {
			return nil, err
		}
		_, tags, behind := acceptPushed(ctx, loader, local, mc)
		if len(tags) > 0 {
			conflicts = append(conflicts, network.IDAndVersions{ID: mc.ID().String(), Versions: tags})
		}
		if behind {
			needsUpdate = append(needsUpdate, network.IDNeedUpdate{ID: mc.ID().String()})
		}
		ids = append(ids, mc.ToComponentID().String())
	}
	if len(conflicts) > 0 || len(needsUpdate) > 0 {
		return nil, &network.MergeConflictOnRemoteError{
			IdsAndVersionsWithConflicts: conflicts,
			IdsNeedUpdate:               needsUpdate,
		}
	}
	return ids, nil
}

// persistObjects writes pushed objects: history first, then the merged components
func (s *Scope) persistObjects(ctx context.Context, objs []model.BitObject) ([]string, error) {
	if _, err := s.checkPushed(ctx, objs); err != nil {
		return nil, err
	}
	loader := newOverlayLoader(s.repo, objs)
	var (
		others     = make([]model.BitObject, 0, len(objs))
		components []model.BitObject
		ids        []string
	)
	for _, obj := range objs {
		mc, ok := obj.(*model.ModelComponent)
		if !ok {
			others = append(others, obj)
			continue
		}
		local, err := s.repo.LoadModelComponent(ctx, mc.ID())
		if err != nil {
			return nil, err
		}
		merged, _, _ := acceptPushed(ctx, loader, local, mc)
		components = append(components, merged)
		ids = append(ids, merged.ToComponentID().String())
	}
	if err := s.repo.Write(ctx, others...); err != nil {
		return nil, err
	}
	if err := s.repo.Write(ctx, components...); err != nil {
		return nil, err
	}
	for _, obj := range components {
		s.loader.ClearComponentCache(obj.(*model.ModelComponent).ID())
	}
	return ids, nil
}

// mergeObjectLists appends the objects of next absent from prev
func mergeObjectLists(prev, next network.ObjectList) network.ObjectList {
	seen := make(map[model.Ref]int, len(prev))
	res := make(network.ObjectList, 0, len(prev)+len(next))
	for _, item := range prev {
		seen[item.Ref] = len(res)
		res = append(res, item)
	}
	for _, item := range next {
		if i, ok := seen[item.Ref]; ok {
			// components are mutable: keep the latest revision
			res[i] = item
			continue
		}
		seen[item.Ref] = len(res)
		res = append(res, item)
	}
	return res
}
