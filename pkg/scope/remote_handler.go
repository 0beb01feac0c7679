package scope

import (
	"context"
	"fmt"
	"sync"

	"github.com/blang/semver"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
	"github.com/oneconcern/scope/pkg/scope/status"
)

// ActionFunc runs a generic action registered on a remote handler
type ActionFunc func(ctx context.Context, options jsoniter.RawMessage) (interface{}, error)

// RemoteHandler answers protocol requests on behalf of a scope
type RemoteHandler struct {
	scope *Scope

	mx      sync.RWMutex
	actions map[string]ActionFunc
	l       *zap.Logger
}

var _ network.Handler = &RemoteHandler{}

var currentFetchSchema = semver.MustParse(network.CurrentFetchSchema)

// NewRemoteHandler serves a scope to remote clients. The export-persist action is registered.
func NewRemoteHandler(s *Scope) *RemoteHandler {
	h := &RemoteHandler{
		scope:   s,
		actions: make(map[string]ActionFunc),
		l:       s.l,
	}
	h.RegisterAction(network.ExportPersist, h.exportPersist)
	return h
}

// RegisterAction adds a generic action
func (h *RemoteHandler) RegisterAction(name string, fn ActionFunc) {
	h.mx.Lock()
	defer h.mx.Unlock()
	h.actions[name] = fn
}

// Handle a request
func (h *RemoteHandler) Handle(ctx context.Context, req *network.Request) *network.Response {
	res, err := h.handle(ctx, req)
	if err != nil {
		h.l.Info("remote action failed",
			zap.String("action", req.Action),
			zap.String("client", req.ClientID),
			zap.Error(err),
		)
		return network.NewErrorResponse(err)
	}
	return network.NewResponse(res)
}

func (h *RemoteHandler) handle(ctx context.Context, req *network.Request) (interface{}, error) {
	s := h.scope
	if req.Scope != "" && req.Scope != s.name {
		return nil, &network.RemoteScopeNotFoundError{Name: req.Scope}
	}
	h.l.Debug("remote action", zap.String("action", req.Action), zap.String("client", req.ClientID))

	switch req.Action {
	case network.ActionDescribe:
		return network.ScopeDescriptor{Name: s.name}, nil

	case network.ActionFetch:
		var payload network.FetchRequest
		if err := decode(req, &payload); err != nil {
			return nil, err
		}
		return h.fetch(ctx, payload)

	case network.ActionPushMany:
		var payload network.PushRequest
		if err := decode(req, &payload); err != nil {
			return nil, err
		}
		if payload.Options.ClientID == "" {
			payload.Options.ClientID = req.ClientID
		}
		return s.ReceivePush(ctx, payload.Objects, payload.Options)

	case network.ActionList:
		var payload network.ListRequest
		if err := decode(req, &payload); err != nil {
			return nil, err
		}
		return s.List(ctx, payload.NamespacesUsingWildcards, payload.IncludeDeleted)

	case network.ActionDeleteMany:
		var payload network.DeleteManyRequest
		if err := decode(req, &payload); err != nil {
			return nil, err
		}
		return h.deleteMany(ctx, payload)

	case network.ActionListLanes:
		var payload network.ListLanesRequest
		if err := decode(req, &payload); err != nil {
			return nil, err
		}
		return h.listLanes(ctx, payload)

	case network.ActionHasObjects:
		var refs []model.Ref
		if err := decode(req, &refs); err != nil {
			return nil, err
		}
		return s.repo.HasObjects(ctx, refs)

	case network.ActionLog:
		var id model.ComponentID
		if err := decode(req, &id); err != nil {
			return nil, err
		}
		logs, err := s.Log(ctx, id)
		return logs, asNotFound(err, id)

	case network.ActionLatestVersions:
		var ids []model.ComponentID
		if err := decode(req, &ids); err != nil {
			return nil, err
		}
		return s.LatestVersions(ctx, ids)

	case network.ActionGeneric:
		var payload network.GenericActionRequest
		if err := decode(req, &payload); err != nil {
			return nil, err
		}
		h.mx.RLock()
		fn, ok := h.actions[payload.Name]
		h.mx.RUnlock()
		if !ok {
			return nil, &network.ActionNotFoundError{Name: payload.Name}
		}
		return fn(ctx, payload.Options)

	default:
		return nil, &network.ActionNotFoundError{Name: req.Action}
	}
}

func decode(req *network.Request, target interface{}) error {
	if err := req.DecodePayload(target); err != nil {
		return &network.CustomError{Message: fmt.Sprintf("invalid payload for %s: %v", req.Action, err)}
	}
	return nil
}

func (h *RemoteHandler) exportPersist(ctx context.Context, raw jsoniter.RawMessage) (interface{}, error) {
	var opts network.ExportPersistOptions
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, &network.CustomError{Message: fmt.Sprintf("invalid export-persist options: %v", err)}
		}
	}
	return h.scope.PersistExport(ctx, opts.ClientID)
}

// asNotFound reports a missing component with its protocol error
func asNotFound(err error, id model.ComponentID) error {
	var missingVersion *model.VersionNotFoundError
	if errors.Is(err, status.ErrComponentNotFound) || errors.As(err, &missingVersion) {
		return &network.ComponentNotFoundError{ID: id.String()}
	}
	return err
}

func (h *RemoteHandler) checkFetchSchema(schema string) error {
	if schema == "" {
		return nil
	}
	v, err := semver.ParseTolerant(schema)
	if err != nil {
		return &network.CustomError{Message: fmt.Sprintf("invalid fetch schema %q", schema)}
	}
	if v.GT(currentFetchSchema) {
		return &network.OldClientVersionError{
			Message: fmt.Sprintf("fetch schema %s is not supported by the remote scope %q, which supports up to %s",
				v, h.scope.name, currentFetchSchema),
		}
	}
	return nil
}

func (h *RemoteHandler) fetch(ctx context.Context, req network.FetchRequest) (network.ObjectList, error) {
	if err := h.checkFetchSchema(req.Options.FetchSchema); err != nil {
		return nil, err
	}

	var (
		objs []model.BitObject
		err  error
	)
	switch req.Options.Type {
	case network.FetchLanes:
		objs, err = h.fetchLanes(ctx, req.IDs)
	case network.FetchObjects:
		objs, err = h.fetchObjects(ctx, req.IDs)
	default:
		objs, err = h.fetchComponents(ctx, req.IDs, req.Options)
	}
	if err != nil {
		return nil, err
	}
	return network.NewObjectList(objs...)
}

func parseRequestedID(idStr string) (model.ComponentID, error) {
	id, err := model.ParseComponentID(idStr, true)
	if err != nil {
		id, err = model.ParseComponentID(idStr, false)
	}
	if err != nil {
		return id, &network.CustomError{Message: err.Error()}
	}
	return id, nil
}

// fetchComponents returns each component with the requested version, or its whole history, and its dependencies
func (h *RemoteHandler) fetchComponents(ctx context.Context, idStrs []string, opts network.FetchOptions) ([]model.BitObject, error) {
	s := h.scope
	var (
		res  []model.BitObject
		seen = make(map[model.Ref]struct{})
	)
	add := func(objs ...model.BitObject) {
		for _, obj := range objs {
			if _, dup := seen[obj.Hash()]; !dup {
				seen[obj.Hash()] = struct{}{}
				res = append(res, obj)
			}
		}
	}

	var lane *model.Lane
	if opts.LaneID != nil {
		var err error
		if lane, err = s.loadLane(ctx, *opts.LaneID); err != nil {
			return nil, err
		}
	}

	queue := make([]model.ComponentID, 0, len(idStrs))
	for _, idStr := range idStrs {
		id, err := parseRequestedID(idStr)
		if err != nil {
			return nil, err
		}
		queue = append(queue, id)
	}
	requested := len(queue)
	visited := make(map[string]struct{})

	for i := 0; i < len(queue); i++ {
		id := queue[i]
		isDependency := i >= requested
		if _, done := visited[id.String()]; done {
			continue
		}
		visited[id.String()] = struct{}{}

		mc, err := s.loadModelComponent(ctx, id)
		if err != nil {
			return nil, err
		}
		if mc == nil {
			if isDependency {
				h.l.Debug("dependency not found in scope", zap.Stringer("id", id))
				continue
			}
			return nil, &network.ComponentNotFoundError{ID: id.String()}
		}

		var heads []model.Ref
		switch {
		case id.HasVersion():
			ref, ok := mc.GetRef(id.Version)
			if !ok {
				return nil, &network.ComponentNotFoundError{ID: id.String()}
			}
			heads = []model.Ref{ref}
		case opts.IncludeVersionHistory && !isDependency:
			heads = componentHeads(mc)
		default:
			heads = []model.Ref{mc.Head}
		}
		if lane != nil {
			if onLane, ok := lane.GetComponent(mc.ID()); ok {
				heads = append(heads, onLane.Head)
			}
		}

		versions, err := s.collectVersions(ctx, heads, opts.IncludeVersionHistory && !isDependency)
		if err != nil {
			return nil, err
		}
		add(mc)
		add(versions...)

		if opts.WithoutDependencies {
			continue
		}
		for _, obj := range versions {
			v, ok := obj.(*model.Version)
			if !ok {
				continue
			}
			for _, dep := range v.FlattenedDependencies {
				if dep.HasScope() && dep.Scope != s.name {
					continue
				}
				queue = append(queue, dep)
			}
		}
	}
	if lane != nil {
		add(lane)
	}
	return res, nil
}

func (h *RemoteHandler) fetchLanes(ctx context.Context, idStrs []string) ([]model.BitObject, error) {
	s := h.scope
	res := make([]model.BitObject, 0, len(idStrs))
	for _, idStr := range idStrs {
		id, err := s.LaneID(idStr)
		if err != nil {
			return nil, &network.CustomError{Message: err.Error()}
		}
		lane, err := s.loadLane(ctx, id)
		if err != nil {
			return nil, err
		}
		res = append(res, lane)
	}
	return res, nil
}

func (h *RemoteHandler) fetchObjects(ctx context.Context, refs []string) ([]model.BitObject, error) {
	res := make([]model.BitObject, 0, len(refs))
	for _, ref := range refs {
		if !model.IsHash(ref) {
			return nil, &network.CustomError{Message: fmt.Sprintf("%q is not an object hash", ref)}
		}
		obj, err := h.scope.repo.Load(ctx, model.Ref(ref), false)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			res = append(res, obj)
		}
	}
	return res, nil
}

func (h *RemoteHandler) deleteMany(ctx context.Context, req network.DeleteManyRequest) (*network.RemovedObjects, error) {
	s := h.scope
	if s.readOnly {
		return nil, &network.PermissionDeniedError{Scope: s.name}
	}
	if req.Lanes {
		removed, err := s.RemoveLanes(ctx, req.IDs, req.Force)
		if err != nil {
			return nil, err
		}
		return &network.RemovedObjects{
			RemovedComponentIDs: []string{},
			MissingComponents:   []string{},
			RemovedLanes:        removed,
		}, nil
	}

	ids := make([]model.ComponentID, 0, len(req.IDs))
	for _, idStr := range req.IDs {
		id, err := parseRequestedID(idStr)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return s.RemoveMany(ctx, ids, req.Force)
}

func (h *RemoteHandler) listLanes(ctx context.Context, req network.ListLanesRequest) ([]network.LaneData, error) {
	s := h.scope
	lanes, err := s.ListLanes(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	res := make([]network.LaneData, 0, len(lanes))
	for _, lane := range lanes {
		data := network.LaneData{
			Name:       lane.Name,
			Scope:      lane.Scope,
			Hash:       lane.Hash(),
			Components: make([]network.LaneComponentData, 0, len(lane.Components)),
		}
		for _, c := range lane.Components {
			data.Components = append(data.Components, network.LaneComponentData{ID: c.ID.String(), Head: c.Head})
		}
		if req.MergeData {
			merged, err := s.IsLaneMerged(ctx, lane)
			if err != nil {
				return nil, err
			}
			data.IsMerged = &merged
		}
		res = append(res, data)
	}
	return res, nil
}
