package scope

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/model"
)

// SnapOptions describe a new snap
type SnapOptions struct {
	Message      string
	Username     string
	Email        string
	Dependencies []model.ComponentID
	Extensions   map[string]interface{}

	// Tag labels the new snap with a semver version. Snaps on lanes are never tagged.
	Tag string

	// Lane records the snap on a lane instead of main
	Lane *model.LaneID
}

// Snap records a new version of a component with the given files, keyed by relative path.
//
// The new version descends from the current head of the component, on main or on the lane.
// It returns the id of the component at the new version.
func (s *Scope) Snap(ctx context.Context, id model.ComponentID, files map[string][]byte, opts SnapOptions) (model.ComponentID, error) {
	id = id.ChangeVersion("")
	mc, err := s.loadModelComponent(ctx, id)
	if err != nil {
		return id, err
	}
	if mc == nil {
		mc = model.NewModelComponent(id)
	} else {
		mc = mc.Clone()
	}

	var lane *model.Lane
	parent := mc.Head
	if opts.Lane != nil {
		if lane, err = s.loadLane(ctx, *opts.Lane); err != nil {
			return id, err
		}
		lane = cloneLane(lane)
		if onLane, ok := lane.GetComponent(mc.ID()); ok {
			parent = onLane.Head
		}
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	origin := mc.ID()
	version := &model.Version{
		Log: model.Log{
			Username: opts.Username,
			Email:    opts.Email,
			Message:  opts.Message,
			Date:     time.Now().UTC(),
		},
		FlattenedDependencies: opts.Dependencies,
		Extensions:            opts.Extensions,
		OriginID:              &origin,
	}
	objs := make([]model.BitObject, 0, len(files)+3)
	for _, p := range paths {
		src := model.NewSource(files[p])
		version.Files = append(version.Files, model.FileRef{RelativePath: p, File: src.Hash()})
		objs = append(objs, src)
	}
	if !parent.IsEmpty() {
		version.AddParent(parent)
	}
	ref := version.Hash()
	objs = append(objs, version)

	switch {
	case lane != nil:
		lane.AddComponent(mc.ID(), ref)
		objs = append(objs, lane)
	case opts.Tag != "":
		if err = mc.Tag(opts.Tag, ref); err != nil {
			return id, err
		}
	default:
		mc.Snap(ref)
	}
	objs = append(objs, mc)

	s.repo.Add(objs...)
	if err = s.repo.Persist(ctx); err != nil {
		return id, err
	}
	s.loader.ClearComponentCache(id)
	s.loader.ClearComponentCache(mc.ID())

	resolved := ref.String()
	if opts.Tag != "" && lane == nil {
		resolved = opts.Tag
	}
	s.l.Info("component snapped", zap.Stringer("id", mc.ID()), zap.String("hash", ref.String()))
	return mc.ID().ChangeVersion(resolved), nil
}

// Tag labels a version of a component. Without version in the id, the head is tagged.
func (s *Scope) Tag(ctx context.Context, id model.ComponentID, tag string) (model.ComponentID, error) {
	mc, err := s.mustLoadModelComponent(ctx, id)
	if err != nil {
		return id, err
	}
	ref, ok := mc.GetRef(id.Version)
	if !ok {
		return id, &model.VersionNotFoundError{Version: id.Version, ID: mc.ID().String()}
	}
	if _, err = s.repo.Load(ctx, ref, true); err != nil {
		return id, err
	}

	mc = mc.Clone()
	if err = mc.Tag(tag, ref); err != nil {
		return id, err
	}
	if err = s.repo.Write(ctx, mc); err != nil {
		return id, err
	}
	s.loader.ClearComponentCache(id.ChangeVersion(""))
	s.loader.ClearComponentCache(mc.ID())
	return mc.ID().ChangeVersion(tag), nil
}
