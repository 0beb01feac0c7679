package scope

import (
	"context"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
)

// List the components of the scope, sorted by id.
//
// The pattern matches ids without version, with shell wildcards (e.g. "my-scope/ui/*").
// Soft-removed components are only listed with includeDeleted.
func (s *Scope) List(ctx context.Context, pattern string, includeDeleted bool) ([]network.ListScopeResult, error) {
	components, err := s.repo.LoadComponents(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]network.ListScopeResult, 0, len(components))
	for _, mc := range components {
		if mc.Removed && !includeDeleted {
			continue
		}
		if pattern != "" {
			ok, err := path.Match(pattern, mc.ID().StringWithoutVersion())
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		res = append(res, network.ListScopeResult{ID: mc.ToComponentID(), Removed: mc.Removed})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].ID.String() < res[j].ID.String()
	})
	return res, nil
}

// Log lists the history of a component from its head, most recent first
func (s *Scope) Log(ctx context.Context, id model.ComponentID) ([]network.ComponentLog, error) {
	mc, err := s.mustLoadModelComponent(ctx, id)
	if err != nil {
		return nil, err
	}
	head, ok := mc.GetRef(id.Version)
	if !ok {
		return nil, &model.VersionNotFoundError{Version: id.Version, ID: mc.ID().String()}
	}

	var res []network.ComponentLog
	visited := map[model.Ref]struct{}{head: {}}
	queue := []model.Ref{head}
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		obj, err := s.repo.Load(ctx, ref, false)
		if err != nil {
			return nil, err
		}
		v, ok := obj.(*model.Version)
		if !ok {
			s.l.Debug("history stops at a missing version", zap.String("hash", ref.String()))
			continue
		}
		res = append(res, network.ComponentLog{
			Hash:     ref,
			Tag:      mc.GetTagOfRefIfExists(ref),
			Username: v.Log.Username,
			Email:    v.Log.Email,
			Message:  v.Log.Message,
			Date:     v.Log.Date,
			Parents:  v.Parents,
		})
		for _, parent := range v.Parents {
			if _, seen := visited[parent]; !seen {
				visited[parent] = struct{}{}
				queue = append(queue, parent)
			}
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Date.After(res[j].Date)
	})
	return res, nil
}

// LatestVersions returns the ids of components at their head, as a tag when the head is tagged
func (s *Scope) LatestVersions(ctx context.Context, ids []model.ComponentID) ([]string, error) {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		mc, err := s.mustLoadModelComponent(ctx, id)
		if err != nil {
			return nil, err
		}
		res = append(res, mc.ToComponentID().String())
	}
	return res, nil
}

// RemoveMany removes components.
//
// Exported components are soft-removed: they are flagged as removed and kept, so that their
// history is still available to dependents. Components never exported, or any component with
// force, are deleted.
func (s *Scope) RemoveMany(ctx context.Context, ids []model.ComponentID, force bool) (*network.RemovedObjects, error) {
	res := &network.RemovedObjects{
		RemovedComponentIDs: []string{},
		MissingComponents:   []string{},
		RemovedLanes:        []string{},
	}
	for _, id := range ids {
		mc, err := s.loadModelComponent(ctx, id)
		if err != nil {
			return nil, err
		}
		if mc == nil {
			res.MissingComponents = append(res.MissingComponents, id.String())
			continue
		}

		if force || !mc.IsExported() {
			s.repo.MarkRemoved(mc.Hash())
		} else {
			removed := mc.Clone()
			removed.Removed = true
			s.repo.Add(removed)
		}
		res.RemovedComponentIDs = append(res.RemovedComponentIDs, mc.ID().String())
		s.loader.ClearComponentCache(id)
		s.loader.ClearComponentCache(mc.ID())
	}
	if err := s.repo.Persist(ctx); err != nil {
		return nil, err
	}
	return res, nil
}
