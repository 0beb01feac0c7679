package model

import (
	"context"

	"github.com/oneconcern/scope/pkg/errors"
)

// DivergeStatus classifies the relationship between a local and a remote history
type DivergeStatus int

// Diverge statuses
const (
	UpToDate DivergeStatus = iota
	LocalAhead
	RemoteAhead
	Diverged
	Unrelated
	Invalid
)

func (s DivergeStatus) String() string {
	switch s {
	case UpToDate:
		return "up-to-date"
	case LocalAhead:
		return "local-ahead"
	case RemoteAhead:
		return "remote-ahead"
	case Diverged:
		return "diverged"
	case Unrelated:
		return "unrelated"
	default:
		return "invalid"
	}
}

// DivergeData is the relationship between two version histories.
//
// Snaps are listed from the most recent to the oldest, as visited from each head.
type DivergeData struct {
	CommonSnapBeforeDiverge Ref
	SnapsOnSourceOnly       []Ref
	SnapsOnTargetOnly       []Ref
	Err                     error
}

// Status of the histories
func (d *DivergeData) Status() DivergeStatus {
	switch {
	case d.Err != nil && errors.Is(d.Err, ErrNoCommonSnap):
		return Unrelated
	case d.Err != nil:
		return Invalid
	case len(d.SnapsOnSourceOnly) > 0 && len(d.SnapsOnTargetOnly) > 0:
		return Diverged
	case len(d.SnapsOnSourceOnly) > 0:
		return LocalAhead
	case len(d.SnapsOnTargetOnly) > 0:
		return RemoteAhead
	default:
		return UpToDate
	}
}

// IsDiverged is true when both sides have snaps after the common ancestor
func (d *DivergeData) IsDiverged() bool {
	return d.Status() == Diverged
}

// IsSourceAhead is true when the source has snaps the target does not have
func (d *DivergeData) IsSourceAhead() bool {
	return d.Err == nil && len(d.SnapsOnSourceOnly) > 0
}

// IsTargetAhead is true when the target has snaps the source does not have
func (d *DivergeData) IsTargetAhead() bool {
	return d.Err == nil && len(d.SnapsOnTargetOnly) > 0
}

// GetDivergeData walks the parents of both heads to find their common ancestor.
//
// Each history is visited breadth-first from its head with a visited set, so that
// merge commits are only traversed once. The common snap is the first ancestor of
// the source, in visit order, that also belongs to the target history.
//
// A missing version object does not abort the walk with a failure: it is reported in Err.
func GetDivergeData(ctx context.Context, loader ObjectLoader, source, target Ref) *DivergeData {
	res := &DivergeData{}
	if source == target {
		res.CommonSnapBeforeDiverge = source
		return res
	}

	sourceHistory, err := walkHistory(ctx, loader, source)
	if err != nil {
		res.Err = err
		return res
	}
	targetHistory, err := walkHistory(ctx, loader, target)
	if err != nil {
		res.Err = err
		return res
	}

	targetSet := toSet(targetHistory)
	sourceSet := toSet(sourceHistory)
	for _, ref := range sourceHistory {
		if _, ok := targetSet[ref]; ok {
			res.CommonSnapBeforeDiverge = ref
			break
		}
	}

	for _, ref := range sourceHistory {
		if _, ok := targetSet[ref]; !ok {
			res.SnapsOnSourceOnly = append(res.SnapsOnSourceOnly, ref)
		}
	}
	for _, ref := range targetHistory {
		if _, ok := sourceSet[ref]; !ok {
			res.SnapsOnTargetOnly = append(res.SnapsOnTargetOnly, ref)
		}
	}

	if res.CommonSnapBeforeDiverge.IsEmpty() && !source.IsEmpty() && !target.IsEmpty() {
		res.Err = ErrNoCommonSnap.Wrapf("%s and %s", source.Short(), target.Short())
	}
	return res
}

// walkHistory lists the head and all its ancestors, breadth-first
func walkHistory(ctx context.Context, loader ObjectLoader, head Ref) ([]Ref, error) {
	if head.IsEmpty() {
		return nil, nil
	}
	visited := map[Ref]struct{}{head: {}}
	queue := []Ref{head}
	history := make([]Ref, 0, 16)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref := queue[0]
		queue = queue[1:]
		history = append(history, ref)

		obj, err := loader.Load(ctx, ref, false)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, &VersionNotFoundOnFSError{Ref: ref}
		}
		v, ok := obj.(*Version)
		if !ok {
			return nil, ErrUnexpectedType.Wrapf("%s is a %s, not a version", ref.Short(), obj.Type())
		}
		for _, parent := range v.Parents {
			if _, seen := visited[parent]; seen {
				continue
			}
			visited[parent] = struct{}{}
			queue = append(queue, parent)
		}
	}
	return history, nil
}

func toSet(refs []Ref) map[Ref]struct{} {
	set := make(map[Ref]struct{}, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}
	return set
}
