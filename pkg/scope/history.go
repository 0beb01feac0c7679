package scope

import (
	"context"

	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/objects"
)

// collectVersions loads the versions at heads and their sources.
// With withHistory, all the ancestors of the heads are collected too.
//
// A missing head is an error. Missing ancestors are skipped: a component imported
// without its history only knows its most recent versions.
func (s *Scope) collectVersions(ctx context.Context, heads []model.Ref, withHistory bool) ([]model.BitObject, error) {
	var (
		res     []model.BitObject
		visited = make(map[model.Ref]struct{}, len(heads))
		isHead  = make(map[model.Ref]struct{}, len(heads))
		queue   = make([]model.Ref, 0, len(heads))
	)
	for _, head := range heads {
		if head.IsEmpty() {
			continue
		}
		if _, seen := visited[head]; seen {
			continue
		}
		visited[head] = struct{}{}
		isHead[head] = struct{}{}
		queue = append(queue, head)
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref := queue[0]
		queue = queue[1:]

		obj, err := s.repo.Load(ctx, ref, false)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			if _, ok := isHead[ref]; ok {
				return nil, &objects.HashNotFoundError{Ref: ref}
			}
			s.l.Debug("skipping missing ancestor", zap.String("hash", ref.String()))
			continue
		}
		v, ok := obj.(*model.Version)
		if !ok {
			return nil, model.ErrUnexpectedType.Wrapf("%s is a %s, not a version", ref.Short(), obj.Type())
		}
		res = append(res, v)

		for _, file := range v.FileRefs() {
			if _, seen := visited[file]; seen {
				continue
			}
			visited[file] = struct{}{}
			src, err := s.repo.Load(ctx, file, true)
			if err != nil {
				return nil, err
			}
			res = append(res, src)
		}

		if !withHistory {
			continue
		}
		for _, parent := range v.Parents {
			if _, seen := visited[parent]; !seen {
				visited[parent] = struct{}{}
				queue = append(queue, parent)
			}
		}
	}
	return res, nil
}

// componentHeads are the refs a component must ship with: its head and every tag
func componentHeads(mc *model.ModelComponent) []model.Ref {
	heads := []model.Ref{mc.Head}
	for _, tag := range mc.ListTags() {
		heads = append(heads, mc.Versions[tag])
	}
	return heads
}
