package scope

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/scope/status"
)

// InvalidComponent is a component whose history cannot be computed
type InvalidComponent struct {
	ID  model.ComponentID
	Err error
}

// StatusResult classifies components by the relationship between their local and remote heads
type StatusResult struct {
	UpToDate []model.ComponentID

	// Staged components have local snaps which are not exported
	Staged []model.ComponentID

	// MergePending components have snaps both locally and on their remote
	MergePending []model.ComponentID

	// PendingUpdates components are behind their remote
	PendingUpdates []model.ComponentID

	// Unrelated components share no snap with their remote history
	Unrelated []model.ComponentID

	Invalid []InvalidComponent
}

// IsClean is true when every component is up to date
func (r *StatusResult) IsClean() bool {
	return len(r.Staged) == 0 && len(r.MergePending) == 0 && len(r.PendingUpdates) == 0 &&
		len(r.Unrelated) == 0 && len(r.Invalid) == 0
}

// Status computes the diverge data of components. Without ids, every component not removed is considered.
//
// Components are processed concurrently, within the concurrency limit of the scope.
func (s *Scope) Status(ctx context.Context, ids []model.ComponentID) (*StatusResult, error) {
	components, invalid, err := s.statusCandidates(ctx, ids)
	if err != nil {
		return nil, err
	}

	diverges := make([]*model.DivergeData, len(components))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, mc := range components {
		i, mc := i, mc
		group.Go(func() error {
			diverges[i] = mc.SetDivergeData(gctx, s.repo)
			return gctx.Err()
		})
	}
	if err = group.Wait(); err != nil {
		return nil, err
	}

	res := &StatusResult{Invalid: invalid}
	for i, mc := range components {
		id := mc.ToComponentID()
		switch diverges[i].Status() {
		case model.UpToDate:
			res.UpToDate = append(res.UpToDate, id)
		case model.LocalAhead:
			res.Staged = append(res.Staged, id)
		case model.RemoteAhead:
			res.PendingUpdates = append(res.PendingUpdates, id)
		case model.Diverged:
			res.MergePending = append(res.MergePending, id)
		case model.Unrelated:
			res.Unrelated = append(res.Unrelated, id)
		default:
			res.Invalid = append(res.Invalid, InvalidComponent{ID: id, Err: diverges[i].Err})
		}
	}

	for _, list := range [][]model.ComponentID{res.UpToDate, res.Staged, res.MergePending, res.PendingUpdates, res.Unrelated} {
		sortIDs(list)
	}
	sort.Slice(res.Invalid, func(i, j int) bool {
		return res.Invalid[i].ID.String() < res.Invalid[j].ID.String()
	})
	return res, nil
}

func (s *Scope) statusCandidates(ctx context.Context, ids []model.ComponentID) ([]*model.ModelComponent, []InvalidComponent, error) {
	var (
		components []*model.ModelComponent
		invalid    []InvalidComponent
	)
	if len(ids) == 0 {
		all, err := s.repo.LoadComponents(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, mc := range all {
			if !mc.Removed {
				components = append(components, mc.Clone())
			}
		}
		return components, nil, nil
	}

	for _, id := range ids {
		mc, err := s.loadModelComponent(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if mc == nil {
			invalid = append(invalid, InvalidComponent{ID: id, Err: status.ErrComponentNotFound.Wrapf("%s", id)})
			continue
		}
		components = append(components, mc.Clone())
	}
	return components, invalid, nil
}

func sortIDs(ids []model.ComponentID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
