package scope

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
	"github.com/oneconcern/scope/pkg/scope/status"
)

// LaneID resolves a lane name. A name without scope belongs to this scope.
func (s *Scope) LaneID(name string) (model.LaneID, error) {
	if strings.Contains(name, "/") {
		return model.ParseLaneID(name)
	}
	if name == "" {
		return model.LaneID{}, model.ErrInvalidLaneID.Wrapf("empty lane name")
	}
	return model.LaneID{Scope: s.name, Name: name}, nil
}

func (s *Scope) loadLane(ctx context.Context, id model.LaneID) (*model.Lane, error) {
	lane, err := s.repo.LoadLane(ctx, id)
	if err != nil {
		return nil, err
	}
	if lane == nil {
		return nil, &network.LaneNotFoundError{ScopeName: id.Scope, LaneName: id.Name}
	}
	return lane, nil
}

func cloneLane(l *model.Lane) *model.Lane {
	clone := *l
	clone.Components = append([]model.LaneComponent(nil), l.Components...)
	return &clone
}

// CreateLane creates an empty lane, or a copy of the lane it is forked from
func (s *Scope) CreateLane(ctx context.Context, name, forkedFrom string) (*model.Lane, error) {
	id, err := s.LaneID(name)
	if err != nil {
		return nil, err
	}
	if id.IsDefault() {
		return nil, status.ErrLaneExists.Wrapf("%q is the main history", id.Name)
	}
	existing, err := s.repo.LoadLane(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, status.ErrLaneExists.Wrapf("%s", id)
	}

	var fork *model.LaneID
	var components []model.LaneComponent
	if forkedFrom != "" {
		forkID, err := s.LaneID(forkedFrom)
		if err != nil {
			return nil, err
		}
		if !forkID.IsDefault() {
			source, err := s.loadLane(ctx, forkID)
			if err != nil {
				return nil, err
			}
			components = source.Components
		}
		fork = &forkID
	}

	lane := model.NewLane(id, fork)
	lane.Components = append(lane.Components, components...)
	lane.Log = model.Log{Date: time.Now().UTC()}
	if err = s.repo.Write(ctx, lane); err != nil {
		return nil, err
	}
	s.l.Info("lane created", zap.Stringer("lane", id))
	return lane, nil
}

// RemoveLanes deletes lanes. A lane with components is only removed with force.
func (s *Scope) RemoveLanes(ctx context.Context, names []string, force bool) ([]string, error) {
	lanes := make([]*model.Lane, 0, len(names))
	for _, name := range names {
		id, err := s.LaneID(name)
		if err != nil {
			return nil, err
		}
		lane, err := s.loadLane(ctx, id)
		if err != nil {
			return nil, err
		}
		if !lane.IsEmpty() && !force {
			return nil, status.ErrLaneNotEmpty.Wrapf("lane %s has %d components, use force to remove it", id, len(lane.Components))
		}
		lanes = append(lanes, lane)
	}

	removed := make([]string, 0, len(lanes))
	refs := make([]model.Ref, 0, len(lanes))
	for _, lane := range lanes {
		refs = append(refs, lane.Hash())
		removed = append(removed, lane.ID().String())
	}
	if err := s.repo.Remove(ctx, refs...); err != nil {
		return nil, err
	}
	return removed, nil
}

// ListLanes returns the lanes of the scope, sorted by id. With a name, only this lane is returned.
func (s *Scope) ListLanes(ctx context.Context, name string) ([]*model.Lane, error) {
	if name != "" {
		id, err := s.LaneID(name)
		if err != nil {
			return nil, err
		}
		lane, err := s.loadLane(ctx, id)
		if err != nil {
			return nil, err
		}
		return []*model.Lane{lane}, nil
	}

	lanes, err := s.repo.LoadLanes(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(lanes, func(i, j int) bool {
		return lanes[i].ID().String() < lanes[j].ID().String()
	})
	return lanes, nil
}

// IsLaneMerged tells if the head of every component of the lane is already part of main
func (s *Scope) IsLaneMerged(ctx context.Context, lane *model.Lane) (bool, error) {
	for _, c := range lane.Components {
		mc, err := s.loadModelComponent(ctx, c.ID)
		if err != nil {
			return false, err
		}
		if mc == nil || mc.Head.IsEmpty() {
			return false, nil
		}
		diverge := model.GetDivergeData(ctx, s.repo, c.Head, mc.Head)
		if diverge.Err != nil {
			return false, diverge.Err
		}
		if len(diverge.SnapsOnSourceOnly) > 0 {
			return false, nil
		}
	}
	return true, nil
}

// SnapToLane records a new version of a component on a lane
func (s *Scope) SnapToLane(ctx context.Context, laneName string, id model.ComponentID, files map[string][]byte, opts SnapOptions) (model.ComponentID, error) {
	laneID, err := s.LaneID(laneName)
	if err != nil {
		return id, err
	}
	opts.Lane = &laneID
	opts.Tag = ""
	return s.Snap(ctx, id, files, opts)
}
