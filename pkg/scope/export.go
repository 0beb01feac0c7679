package scope

import (
	"context"
	"sort"

	"github.com/segmentio/ksuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
	"github.com/oneconcern/scope/pkg/remotes"
	"github.com/oneconcern/scope/pkg/scope/status"
)

// ExportOptions parameterize an export
type ExportOptions struct {
	// Remote forces the target remote. By default, components go to the remote of their scope,
	// and components never exported go to the primary remote.
	Remote string

	// ExportID identifies the export on the remotes. It defaults to a new unique id.
	ExportID string
}

// ExportResult reports an export.
//
// When the export fails after its objects were pushed, ExportID may be used to resume it.
type ExportResult struct {
	ExportID string
	Exported []model.ComponentID
	Remotes  []string
}

type exportBatch struct {
	remote     *remotes.Remote
	components []*model.ModelComponent

	// previous hashes of components exported for the first time, under their new scope
	previous []model.Ref
	renamed  map[model.Ref]string
}

// Export pushes components with local snaps to their remotes.
//
// Objects already present on a remote are not sent again. Objects are pushed to every
// remote first, then persisted on each with the export-persist action.
func (s *Scope) Export(ctx context.Context, ids []model.ComponentID, opts ExportOptions) (*ExportResult, error) {
	res := &ExportResult{ExportID: opts.ExportID}
	if res.ExportID == "" {
		res.ExportID = ksuid.New().String()
	}

	candidates, err := s.exportCandidates(ctx, ids)
	if err != nil {
		return res, err
	}
	if len(candidates) == 0 {
		return res, status.ErrNothingToExport
	}
	batches, err := s.exportBatches(candidates, opts.Remote)
	if err != nil {
		return res, err
	}

	for _, batch := range batches {
		list, err := s.exportObjects(ctx, batch)
		if err != nil {
			return res, err
		}
		if _, err = batch.remote.PushMany(ctx, list, network.PushOptions{ClientID: res.ExportID}, nil); err != nil {
			return res, err
		}
		res.Remotes = append(res.Remotes, batch.remote.Name)
		s.l.Debug("objects pushed", zap.String("remote", batch.remote.Name), zap.Int("objects", len(list)))
	}

	for _, batch := range batches {
		var persisted []string
		if err = batch.remote.Action(ctx, network.ExportPersist, network.ExportPersistOptions{ClientID: res.ExportID}, &persisted); err != nil {
			return res, err
		}
		if err = s.markExported(ctx, batch); err != nil {
			return res, err
		}
		for _, mc := range batch.components {
			res.Exported = append(res.Exported, mc.ToComponentID())
		}
	}

	sortIDs(res.Exported)
	InvocationFrom(ctx).Record(EventExport, model.ComponentIDs(res.Exported).Strings()...)
	s.l.Info("export done", zap.String("export", res.ExportID), zap.Strings("remotes", res.Remotes))
	return res, nil
}

// exportCandidates are the requested components, or all the components with snaps not exported yet
func (s *Scope) exportCandidates(ctx context.Context, ids []model.ComponentID) ([]*model.ModelComponent, error) {
	var res []*model.ModelComponent
	if len(ids) > 0 {
		for _, id := range ids {
			mc, err := s.mustLoadModelComponent(ctx, id)
			if err != nil {
				return nil, err
			}
			res = append(res, mc.Clone())
		}
		return res, nil
	}

	all, err := s.repo.LoadComponents(ctx)
	if err != nil {
		return nil, err
	}
	for _, mc := range all {
		if mc.Removed || !mc.HasHead() || mc.Head == mc.RemoteHead {
			continue
		}
		res = append(res, mc.Clone())
	}
	return res, nil
}

func (s *Scope) exportBatches(candidates []*model.ModelComponent, remoteName string) ([]*exportBatch, error) {
	byRemote := make(map[string]*exportBatch)
	for _, mc := range candidates {
		name := remoteName
		if name == "" {
			name = mc.Scope
		}
		remote, err := s.resolveRemote(name)
		if err != nil {
			return nil, err
		}
		if mc.Scope != "" && mc.Scope != remote.Name {
			return nil, model.ErrInvalidComponent.Wrapf("%s belongs to scope %q, it cannot be exported to %q",
				mc.ID(), mc.Scope, remote.Name)
		}

		batch, ok := byRemote[remote.Name]
		if !ok {
			batch = &exportBatch{remote: remote, renamed: make(map[model.Ref]string)}
			byRemote[remote.Name] = batch
		}
		if mc.Scope == "" {
			batch.previous = append(batch.previous, mc.Hash())
			batch.renamed[mc.Hash()] = mc.Name
			mc.Scope = remote.Name
		}
		batch.components = append(batch.components, mc)
	}

	names := make([]string, 0, len(byRemote))
	for name := range byRemote {
		names = append(names, name)
	}
	sort.Strings(names)
	batches := make([]*exportBatch, 0, len(names))
	for _, name := range names {
		batches = append(batches, byRemote[name])
	}
	return batches, nil
}

// exportObjects lists the components of a batch with the history objects missing on the remote
func (s *Scope) exportObjects(ctx context.Context, batch *exportBatch) (network.ObjectList, error) {
	var heads []model.Ref
	for _, mc := range batch.components {
		heads = append(heads, componentHeads(mc)...)
	}
	history, err := s.collectVersions(ctx, heads, true)
	if err != nil {
		return nil, err
	}

	refs := make([]model.Ref, 0, len(history))
	for _, obj := range history {
		refs = append(refs, obj.Hash())
	}
	present, err := batch.remote.HasObjects(ctx, refs)
	if err != nil {
		return nil, err
	}
	onRemote := make(map[model.Ref]struct{}, len(present))
	for _, ref := range present {
		onRemote[ref] = struct{}{}
	}

	objs := make([]model.BitObject, 0, len(history)+len(batch.components))
	for _, obj := range history {
		if _, ok := onRemote[obj.Hash()]; !ok {
			objs = append(objs, obj)
		}
	}
	for _, mc := range batch.components {
		pushed := mc.Clone()
		pushed.RemoteHead = ""
		objs = append(objs, pushed)
	}
	return network.NewObjectList(objs...)
}

// markExported records the exported heads locally
func (s *Scope) markExported(ctx context.Context, batch *exportBatch) error {
	objs := make([]model.BitObject, 0, 2*len(batch.components))
	for _, mc := range batch.components {
		mc.RemoteHead = mc.Head
		objs = append(objs, mc)
	}
	for _, ref := range batch.previous {
		if name, ok := batch.renamed[ref]; ok {
			objs = append(objs, &model.Symlink{Name: name, RealScope: batch.remote.Name})
		}
	}
	if err := s.repo.Write(ctx, objs...); err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, batch.previous...); err != nil {
		return err
	}
	for _, mc := range batch.components {
		s.loader.ClearComponentCache(mc.ID())
		s.loader.ClearComponentCache(model.ComponentID{Name: mc.Name})
	}
	return nil
}

// ResumeExport persists the pending objects of an interrupted export on remotes.
// It returns the ids persisted, which is empty when nothing was left to persist.
func (s *Scope) ResumeExport(ctx context.Context, exportID string, remoteNames []string) ([]string, error) {
	var (
		ids  []string
		errs error
		seen = make(map[string]struct{})
	)
	for _, name := range remoteNames {
		remote, err := s.remotes.Resolve(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		var persisted []string
		if err = remote.Action(ctx, network.ExportPersist, network.ExportPersistOptions{ClientID: exportID}, &persisted); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, id := range persisted {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, errs
}
