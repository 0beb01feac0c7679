package network

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/metrics"
	"github.com/oneconcern/scope/pkg/model"
)

func TestParseHost(t *testing.T) {
	for _, toPin := range []struct {
		host     string
		scheme   string
		location string
		invalid  bool
	}{
		{host: "ws://localhost:3000/scope", scheme: SchemeWS, location: "ws://localhost:3000/scope"},
		{host: "wss://hub.example.com", scheme: SchemeWSS, location: "wss://hub.example.com"},
		{host: "file:///tmp/remote-scope", scheme: SchemeFile, location: "/tmp/remote-scope"},
		{host: "/tmp/remote-scope/", scheme: SchemeFile, location: "/tmp/remote-scope"},
		{host: "http://localhost:3000", invalid: true},
		{host: "file://relative", invalid: true},
		{host: "ws://", invalid: true},
		{host: "relative/path", invalid: true},
		{host: "", invalid: true},
	} {
		fixture := toPin
		t.Run(fixture.host, func(t *testing.T) {
			scheme, location, err := ParseHost(fixture.host)
			if fixture.invalid {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidHost))
				assert.Error(t, ValidateHost(fixture.host))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, fixture.scheme, scheme)
			assert.Equal(t, fixture.location, location)
		})
	}
}

// fakeRemote answers a fixed set of actions
func fakeRemote(t testing.TB) Handler {
	return HandlerFunc(func(_ context.Context, req *Request) *Response {
		switch req.Action {
		case ActionDescribe:
			return NewResponse(ScopeDescriptor{Name: req.Scope})
		case ActionFetch:
			var fetch FetchRequest
			require.NoError(t, req.DecodePayload(&fetch))
			if fetch.Options.FetchSchema != CurrentFetchSchema {
				return NewErrorResponse(&OldClientVersionError{Message: "schema " + fetch.Options.FetchSchema})
			}
			list, err := NewObjectList(model.NewSource([]byte(fetch.IDs[0])))
			require.NoError(t, err)
			return NewResponse(list)
		case ActionHasObjects:
			var hashes []model.Ref
			require.NoError(t, req.DecodePayload(&hashes))
			return NewResponse(hashes[:1])
		case ActionPushMany:
			return NewErrorResponse(&ServerIsBusyError{QueueSize: 5, CurrentExportID: "abc123"})
		case ActionGeneric:
			var action GenericActionRequest
			require.NoError(t, req.DecodePayload(&action))
			if action.Name != "echo" {
				return NewErrorResponse(&ActionNotFoundError{Name: action.Name})
			}
			return &Response{Code: CodeOK, Payload: action.Options}
		default:
			return &Response{Code: 42, Message: "unknown " + req.Action}
		}
	})
}

func TestLocalTransport(t *testing.T) {
	ctx := context.Background()
	var closed bool
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegisterer(reg))
	dialer := NewDialer(
		WithClientID("me"),
		WithMetrics(m),
		WithLocalOpener(func(_ context.Context, path string) (Handler, func() error, error) {
			assert.Equal(t, "/remote/scope", path)
			return fakeRemote(t), func() error { closed = true; return nil }, nil
		}),
	)
	assert.Equal(t, "me", dialer.ClientID())

	n, err := dialer.Connect(ctx, "file:///remote/scope", "my-scope")
	require.NoError(t, err)

	desc, err := n.DescribeScope(ctx)
	require.NoError(t, err)
	assert.Equal(t, "my-scope", desc.Name)

	list, err := n.Fetch(ctx, []string{"content"}, FetchOptions{Type: FetchObjects, FetchSchema: CurrentFetchSchema}, nil)
	require.NoError(t, err)
	objs, err := list.ToObjects()
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, model.HashBytes([]byte("content")), objs[0].Hash())

	_, err = n.Fetch(ctx, []string{"content"}, FetchOptions{Type: FetchObjects, FetchSchema: "9.9.9"}, nil)
	var old *OldClientVersionError
	assert.True(t, errors.As(err, &old))

	found, err := n.HasObjects(ctx, []model.Ref{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []model.Ref{"a"}, found)

	_, err = n.PushMany(ctx, nil, PushOptions{ClientID: "me"}, nil)
	var busy *ServerIsBusyError
	require.True(t, errors.As(err, &busy))
	assert.Equal(t, 5, busy.QueueSize)
	assert.Equal(t, "abc123", busy.CurrentExportID)

	var echoed map[string]string
	require.NoError(t, n.Action(ctx, "echo", map[string]string{"hello": "world"}, &echoed))
	assert.Equal(t, map[string]string{"hello": "world"}, echoed)

	err = n.Action(ctx, "nope", nil, nil)
	var noAction *ActionNotFoundError
	require.True(t, errors.As(err, &noAction))
	assert.Equal(t, "nope", noAction.Name)

	_, err = n.List(ctx, "*", false)
	var unexpected *UnexpectedNetworkError
	require.True(t, errors.As(err, &unexpected))
	assert.Equal(t, "unknown list", unexpected.Message)

	require.NoError(t, n.Close())
	assert.True(t, closed)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemoteErrors.WithLabelValues("137")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RemoteActions.WithLabelValues(ActionFetch)))
}

func TestConnectWithoutOpener(t *testing.T) {
	_, err := NewDialer().Connect(context.Background(), "/some/path", "s")
	assert.True(t, errors.Is(err, ErrInvalidHost))

	_, err = NewDialer().Connect(context.Background(), "gopher://x", "s")
	assert.True(t, errors.Is(err, ErrInvalidHost))
}
