package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/network"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeScope answers describe and list, and reports a busy export queue on push
func fakeScope() network.Handler {
	return network.HandlerFunc(func(_ context.Context, req *network.Request) *network.Response {
		if req.Scope != "" && req.Scope != "my-scope" {
			return network.NewErrorResponse(&network.RemoteScopeNotFoundError{Name: req.Scope})
		}
		switch req.Action {
		case network.ActionDescribe:
			return network.NewResponse(network.ScopeDescriptor{Name: "my-scope"})
		case network.ActionList:
			return network.NewResponse([]network.ListScopeResult{})
		case network.ActionPushMany:
			return network.NewErrorResponse(&network.ServerIsBusyError{QueueSize: 1, CurrentExportID: "export-1"})
		default:
			return network.NewErrorResponse(&network.ActionNotFoundError{Name: req.Action})
		}
	})
}

func wsURL(u string) string {
	return "ws" + strings.TrimPrefix(u, "http")
}

func TestServeSession(t *testing.T) {
	ctx := context.Background()
	srv := New(fakeScope(), WithMaxMessageSize(1<<20))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	n, err := network.NewDialer().Connect(ctx, wsURL(ts.URL), "my-scope")
	require.NoError(t, err)

	desc, err := n.DescribeScope(ctx)
	require.NoError(t, err)
	assert.Equal(t, "my-scope", desc.Name)

	list, err := n.List(ctx, "", false)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = n.PushMany(ctx, nil, network.PushOptions{}, nil)
	var busy *network.ServerIsBusyError
	require.True(t, errors.As(err, &busy))
	assert.Equal(t, 1, busy.QueueSize)
	assert.Equal(t, "export-1", busy.CurrentExportID)

	stats := srv.Stats()
	assert.EqualValues(t, 1, stats.ActiveConnections)
	assert.EqualValues(t, 3, stats.Requests)
	assert.EqualValues(t, 1, stats.Failures)

	require.NoError(t, n.Close())
	require.Eventually(t, func() bool {
		return srv.Stats().ActiveConnections == 0
	}, time.Second, 10*time.Millisecond)

	other, err := network.NewDialer().Connect(ctx, wsURL(ts.URL), "other-scope")
	require.NoError(t, err)
	defer func() { _ = other.Close() }()
	_, err = other.DescribeScope(ctx)
	var notFound *network.RemoteScopeNotFoundError
	assert.True(t, errors.As(err, &notFound))
	assert.EqualValues(t, 2, srv.Stats().Connections)
}

func TestServeInvalidRequest(t *testing.T) {
	srv := New(fakeScope())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var resp network.Response
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, network.CodeCustomError, resp.Code)
	assert.Contains(t, resp.Message, "invalid request")
}

func TestServeHealthAndMetrics(t *testing.T) {
	for _, withMetrics := range []bool{true, false} {
		srv := New(fakeScope(), WithMetrics(withMetrics))
		ts := httptest.NewServer(srv.Handler())

		resp, err := http.Get(ts.URL + HealthPath)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = http.Get(ts.URL + MetricsPath)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()
		if withMetrics {
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, string(body), "go_goroutines")
		} else {
			// without metrics, the path falls through to the websocket endpoint
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		}
		ts.Close()
	}
	http.DefaultClient.CloseIdleConnections()
}

func TestServeShutdown(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(fakeScope(), WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, lis)
	}()

	n, err := network.NewDialer().Connect(context.Background(), "ws://"+lis.Addr().String(), "my-scope")
	require.NoError(t, err)
	_, err = n.DescribeScope(context.Background())
	require.NoError(t, err)

	cancel()
	select {
	case err = <-done:
		assert.True(t, errors.Is(err, ErrServerClosed))
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err = n.DescribeScope(context.Background())
	assert.Error(t, err, "the session is closed by the shutdown")
	_ = n.Close()
	assert.Zero(t, srv.Stats().ActiveConnections)
}
