package scope

import (
	"context"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
)

func request(t testing.TB, action, scopeName string, payload interface{}) *network.Request {
	t.Helper()
	req := &network.Request{Action: action, Scope: scopeName, ClientID: "test-client"}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		req.Payload = raw
	}
	return req
}

func TestHandlerErrorCodes(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	h := NewRemoteHandler(s)

	for _, tc := range []struct {
		name string
		req  *network.Request
		code int
	}{
		{
			name: "other scope",
			req:  request(t, network.ActionDescribe, "other-scope", nil),
			code: network.CodeRemoteScopeNotFound,
		},
		{
			name: "newer fetch schema",
			req: request(t, network.ActionFetch, "my-scope", network.FetchRequest{
				IDs:     []string{"my-scope/foo"},
				Options: network.FetchOptions{Type: network.FetchComponents, FetchSchema: "9.9.9"},
			}),
			code: network.CodeOldClientVersion,
		},
		{
			name: "unknown action",
			req:  request(t, "unknown", "my-scope", nil),
			code: network.CodeActionNotFound,
		},
		{
			name: "unknown generic action",
			req:  request(t, network.ActionGeneric, "my-scope", network.GenericActionRequest{Name: "unknown"}),
			code: network.CodeActionNotFound,
		},
		{
			name: "unknown lane",
			req:  request(t, network.ActionListLanes, "my-scope", network.ListLanesRequest{Name: "nope"}),
			code: network.CodeLaneNotFound,
		},
		{
			name: "unknown component",
			req: request(t, network.ActionFetch, "my-scope", network.FetchRequest{
				IDs:     []string{"my-scope/nope"},
				Options: network.FetchOptions{Type: network.FetchComponents, FetchSchema: network.CurrentFetchSchema},
			}),
			code: network.CodeComponentNotFound,
		},
		{
			name: "log of unknown component",
			req:  request(t, network.ActionLog, "my-scope", model.ComponentID{Scope: "my-scope", Name: "nope"}),
			code: network.CodeComponentNotFound,
		},
		{
			name: "invalid object hash",
			req: request(t, network.ActionFetch, "my-scope", network.FetchRequest{
				IDs:     []string{"not-a-hash"},
				Options: network.FetchOptions{Type: network.FetchObjects},
			}),
			code: network.CodeCustomError,
		},
		{
			name: "invalid payload",
			req:  &network.Request{Action: network.ActionList, Payload: []byte(`"not an object"`)},
			code: network.CodeCustomError,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			resp := h.Handle(ctx, tc.req)
			assert.Equal(t, tc.code, resp.Code, resp.Message)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestHandlerReadOnly(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil, ReadOnly(true))
	h := NewRemoteHandler(s)

	resp := h.Handle(ctx, request(t, network.ActionDeleteMany, "my-scope", network.DeleteManyRequest{IDs: []string{"my-scope/foo"}}))
	assert.Equal(t, network.CodePermissionDenied, resp.Code)

	resp = h.Handle(ctx, request(t, network.ActionPushMany, "my-scope", network.PushRequest{}))
	assert.Equal(t, network.CodePermissionDenied, resp.Code)
}

func TestHandlerQueries(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	snapTagged(t, s, "foo", "0.0.1", "foo")
	exportInPlace(t, s, "foo")
	h := NewRemoteHandler(s)

	resp := h.Handle(ctx, request(t, network.ActionDescribe, "", nil))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)
	var descriptor network.ScopeDescriptor
	require.NoError(t, json.Unmarshal(resp.Payload, &descriptor))
	assert.Equal(t, "my-scope", descriptor.Name)

	resp = h.Handle(ctx, request(t, network.ActionList, "my-scope", network.ListRequest{NamespacesUsingWildcards: "my-scope/*"}))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)
	var list []network.ListScopeResult
	require.NoError(t, json.Unmarshal(resp.Payload, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "my-scope/foo@0.0.1", list[0].ID.String())

	resp = h.Handle(ctx, request(t, network.ActionLatestVersions, "my-scope", []model.ComponentID{{Scope: "my-scope", Name: "foo"}}))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)
	var latest []string
	require.NoError(t, json.Unmarshal(resp.Payload, &latest))
	assert.Equal(t, []string{"my-scope/foo@0.0.1"}, latest)

	mc, err := s.Objects().LoadModelComponent(ctx, scid("my-scope/foo"))
	require.NoError(t, err)
	missing := model.HashBytes([]byte("missing"))
	resp = h.Handle(ctx, request(t, network.ActionHasObjects, "my-scope", []model.Ref{mc.Head, missing}))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)
	var present []model.Ref
	require.NoError(t, json.Unmarshal(resp.Payload, &present))
	assert.Equal(t, []model.Ref{mc.Head}, present)

	resp = h.Handle(ctx, request(t, network.ActionFetch, "my-scope", network.FetchRequest{
		IDs:     []string{mc.Head.String()},
		Options: network.FetchOptions{Type: network.FetchObjects},
	}))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)
	var objs network.ObjectList
	require.NoError(t, json.Unmarshal(resp.Payload, &objs))
	assert.Equal(t, []model.Ref{mc.Head}, objs.Refs())

	resp = h.Handle(ctx, request(t, network.ActionFetch, "my-scope", network.FetchRequest{
		IDs:     []string{"my-scope/foo"},
		Options: network.FetchOptions{Type: network.FetchComponents, IncludeVersionHistory: true},
	}))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)
	require.NoError(t, json.Unmarshal(resp.Payload, &objs))
	fetched, err := objs.ToObjects()
	require.NoError(t, err)
	types := make(map[model.ObjectType]int)
	for _, obj := range fetched {
		types[obj.Type()]++
	}
	assert.Equal(t, map[model.ObjectType]int{
		model.TypeComponent: 1,
		model.TypeVersion:   1,
		model.TypeSource:    1,
	}, types)
}

func TestHandlerLanes(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	h := NewRemoteHandler(s)
	_, err := s.CreateLane(ctx, "dev", "")
	require.NoError(t, err)
	_, err = s.SnapToLane(ctx, "dev", cid("foo"), files("foo"), SnapOptions{})
	require.NoError(t, err)

	resp := h.Handle(ctx, request(t, network.ActionListLanes, "my-scope", network.ListLanesRequest{MergeData: true}))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)
	var lanes []network.LaneData
	require.NoError(t, json.Unmarshal(resp.Payload, &lanes))
	require.Len(t, lanes, 1)
	assert.Equal(t, "dev", lanes[0].Name)
	require.Len(t, lanes[0].Components, 1)
	require.NotNil(t, lanes[0].IsMerged)
	assert.False(t, *lanes[0].IsMerged)

	resp = h.Handle(ctx, request(t, network.ActionFetch, "my-scope", network.FetchRequest{
		IDs:     []string{"dev"},
		Options: network.FetchOptions{Type: network.FetchLanes},
	}))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)

	resp = h.Handle(ctx, request(t, network.ActionDeleteMany, "my-scope", network.DeleteManyRequest{IDs: []string{"dev"}, Lanes: true, Force: true}))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)
	var removed network.RemovedObjects
	require.NoError(t, json.Unmarshal(resp.Payload, &removed))
	assert.Equal(t, []string{"my-scope/dev"}, removed.RemovedLanes)
}

func TestHandlerCustomAction(t *testing.T) {
	ctx := context.Background()
	s := initScope(t, afero.NewMemMapFs(), "my-scope", nil)
	h := NewRemoteHandler(s)
	h.RegisterAction("ping", func(_ context.Context, options jsoniter.RawMessage) (interface{}, error) {
		return string(options), nil
	})

	resp := h.Handle(ctx, request(t, network.ActionGeneric, "my-scope", network.GenericActionRequest{Name: "ping", Options: []byte(`{"a":1}`)}))
	require.Equal(t, network.CodeOK, resp.Code, resp.Message)
	var echo string
	require.NoError(t, json.Unmarshal(resp.Payload, &echo))
	assert.JSONEq(t, `{"a":1}`, echo)
}
