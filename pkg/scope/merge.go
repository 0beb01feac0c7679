package scope

import (
	"context"

	"github.com/oneconcern/scope/pkg/model"
)

// overlayLoader serves objects received from a peer before they are persisted
type overlayLoader struct {
	objects map[model.Ref]model.BitObject
	base    model.ObjectLoader
}

func newOverlayLoader(base model.ObjectLoader, objs []model.BitObject) *overlayLoader {
	o := &overlayLoader{objects: make(map[model.Ref]model.BitObject, len(objs)), base: base}
	for _, obj := range objs {
		o.objects[obj.Hash()] = obj
	}
	return o
}

func (o *overlayLoader) Load(ctx context.Context, ref model.Ref, throwIfMissing bool) (model.BitObject, error) {
	if obj, ok := o.objects[ref]; ok {
		return obj, nil
	}
	return o.base.Load(ctx, ref, throwIfMissing)
}

// mergeIncoming merges a component received from a remote into its local copy.
//
// Tags are unioned, and conflicting tags are reported. The local head moves to the
// incoming one when the local history has no snap of its own (fast-forward).
func mergeIncoming(ctx context.Context, loader model.ObjectLoader, local, incoming *model.ModelComponent) (*model.ModelComponent, []string) {
	if local == nil {
		merged := incoming.Clone()
		merged.RemoteHead = merged.Head
		return merged, nil
	}

	merged := local.Clone()
	_, conflicts := merged.Merge(incoming)
	if incoming.Head.IsEmpty() || merged.Head == incoming.Head {
		return merged, conflicts
	}
	diverge := model.GetDivergeData(ctx, loader, local.Head, incoming.Head)
	if diverge.Err == nil && len(diverge.SnapsOnSourceOnly) == 0 {
		merged.Head = incoming.Head
	}
	return merged, conflicts
}

// acceptPushed merges a component pushed by a client into the copy owned by this scope.
//
// The push is refused when the local head is not part of the incoming history (the client
// must import first), or when a tag points to a different version on both sides.
func acceptPushed(ctx context.Context, loader model.ObjectLoader, local, incoming *model.ModelComponent) (merged *model.ModelComponent, conflicts []string, needsUpdate bool) {
	if local == nil {
		merged = incoming.Clone()
		merged.RemoteHead = ""
		return merged, nil, false
	}

	if !local.Head.IsEmpty() && local.Head != incoming.Head {
		diverge := model.GetDivergeData(ctx, loader, incoming.Head, local.Head)
		if diverge.Err != nil || len(diverge.SnapsOnTargetOnly) > 0 {
			needsUpdate = true
		}
	}

	merged = local.Clone()
	_, conflicts = merged.Merge(incoming)
	merged.RemoteHead = ""
	if !incoming.Head.IsEmpty() {
		merged.Head = incoming.Head
	}
	merged.Removed = incoming.Removed
	return merged, conflicts, needsUpdate
}
