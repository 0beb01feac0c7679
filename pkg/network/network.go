package network

import (
	"context"

	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/metrics"
	"github.com/oneconcern/scope/pkg/model"
)

// Network is a session with a remote scope
type Network interface {
	DescribeScope(context.Context) (ScopeDescriptor, error)
	Fetch(ctx context.Context, ids []string, opts FetchOptions, reqContext map[string]interface{}) (ObjectList, error)
	PushMany(ctx context.Context, objs ObjectList, opts PushOptions, reqContext map[string]interface{}) ([]string, error)
	List(ctx context.Context, namespacesUsingWildcards string, includeDeleted bool) ([]ListScopeResult, error)
	DeleteMany(ctx context.Context, ids []string, force bool, reqContext map[string]interface{}, idsAreLanes bool) (*RemovedObjects, error)
	ListLanes(ctx context.Context, name string, mergeData bool) ([]LaneData, error)
	HasObjects(ctx context.Context, hashes []model.Ref) ([]model.Ref, error)
	Log(ctx context.Context, id model.ComponentID) ([]ComponentLog, error)
	LatestVersions(ctx context.Context, ids []model.ComponentID) ([]string, error)
	Action(ctx context.Context, name string, options interface{}, result interface{}) error
	Close() error
}

// Transport carries one request to a remote and brings back its response
type Transport interface {
	RoundTrip(context.Context, *Request) (*Response, error)
	Close() error
}

// Handler answers protocol requests on behalf of a scope
type Handler interface {
	Handle(context.Context, *Request) *Response
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(context.Context, *Request) *Response

// Handle the request
func (f HandlerFunc) Handle(ctx context.Context, r *Request) *Response {
	return f(ctx, r)
}

type client struct {
	transport  Transport
	scopeName  string
	remotePath string
	clientID   string
	l          *zap.Logger
	m          *metrics.M
}

func (c *client) call(ctx context.Context, action string, payload interface{}, reqContext map[string]interface{}, result interface{}) error {
	req := &Request{
		Action:   action,
		Scope:    c.scopeName,
		ClientID: c.clientID,
		Context:  reqContext,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		req.Payload = raw
	}
	if c.m != nil {
		c.m.RemoteActions.WithLabelValues(action).Inc()
	}
	c.l.Debug("running action on remote", zap.String("action", action), zap.String("remote", c.remotePath))

	resp, err := c.transport.RoundTrip(ctx, req)
	if err != nil {
		return ErrConnection.Wrap(err)
	}
	if resp.Code != CodeOK {
		if c.m != nil {
			c.m.RemoteError(resp.Code)
		}
		return ErrorFromCode(resp.Code, resp.Error, c.remotePath, resp.Message)
	}
	if result == nil || len(resp.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Payload, result)
}

func (c *client) DescribeScope(ctx context.Context) (ScopeDescriptor, error) {
	var res ScopeDescriptor
	err := c.call(ctx, ActionDescribe, nil, nil, &res)
	return res, err
}

func (c *client) Fetch(ctx context.Context, ids []string, opts FetchOptions, reqContext map[string]interface{}) (ObjectList, error) {
	var res ObjectList
	err := c.call(ctx, ActionFetch, FetchRequest{IDs: ids, Options: opts}, reqContext, &res)
	return res, err
}

func (c *client) PushMany(ctx context.Context, objs ObjectList, opts PushOptions, reqContext map[string]interface{}) ([]string, error) {
	var res []string
	err := c.call(ctx, ActionPushMany, PushRequest{Objects: objs, Options: opts}, reqContext, &res)
	return res, err
}

func (c *client) List(ctx context.Context, namespacesUsingWildcards string, includeDeleted bool) ([]ListScopeResult, error) {
	var res []ListScopeResult
	err := c.call(ctx, ActionList, ListRequest{NamespacesUsingWildcards: namespacesUsingWildcards, IncludeDeleted: includeDeleted}, nil, &res)
	return res, err
}

func (c *client) DeleteMany(ctx context.Context, ids []string, force bool, reqContext map[string]interface{}, idsAreLanes bool) (*RemovedObjects, error) {
	var res RemovedObjects
	if err := c.call(ctx, ActionDeleteMany, DeleteManyRequest{IDs: ids, Force: force, Lanes: idsAreLanes}, reqContext, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *client) ListLanes(ctx context.Context, name string, mergeData bool) ([]LaneData, error) {
	var res []LaneData
	err := c.call(ctx, ActionListLanes, ListLanesRequest{Name: name, MergeData: mergeData}, nil, &res)
	return res, err
}

func (c *client) HasObjects(ctx context.Context, hashes []model.Ref) ([]model.Ref, error) {
	var res []model.Ref
	err := c.call(ctx, ActionHasObjects, hashes, nil, &res)
	return res, err
}

func (c *client) Log(ctx context.Context, id model.ComponentID) ([]ComponentLog, error) {
	var res []ComponentLog
	err := c.call(ctx, ActionLog, id, nil, &res)
	return res, err
}

func (c *client) LatestVersions(ctx context.Context, ids []model.ComponentID) ([]string, error) {
	var res []string
	err := c.call(ctx, ActionLatestVersions, ids, nil, &res)
	return res, err
}

func (c *client) Action(ctx context.Context, name string, options interface{}, result interface{}) error {
	raw, err := json.Marshal(options)
	if err != nil {
		return err
	}
	return c.call(ctx, ActionGeneric, GenericActionRequest{Name: name, Options: raw}, nil, result)
}

func (c *client) Close() error {
	return c.transport.Close()
}
