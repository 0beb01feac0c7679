// Package server serves a scope to remote clients over websocket.
//
// Every websocket text frame received is a protocol request, answered by exactly one frame.
// A connection is a session: it stays open until the client closes it.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/network"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// ScopePath is where the websocket endpoint is mounted
	ScopePath = "/"

	// MetricsPath exposes prometheus metrics
	MetricsPath = "/metrics"

	// HealthPath answers 200 while the server runs
	HealthPath = "/healthz"

	defaultShutdownTimeout = 10 * time.Second
)

// ErrServerClosed is returned by Serve after a shutdown
var ErrServerClosed = errors.New("server closed")

// Stats of a running server
type Stats struct {
	ActiveConnections int64
	Connections       int64
	Requests          int64
	Failures          int64
}

// Server answers protocol requests with a handler
type Server struct {
	handler         network.Handler
	addr            string
	maxMessageSize  int64
	withMetrics     bool
	shutdownTimeout time.Duration
	l               *zap.Logger

	upgrader websocket.Upgrader

	active      *atomic.Int64
	connections *atomic.Int64
	requests    *atomic.Int64
	failures    *atomic.Int64
	closing     *atomic.Bool

	mx    sync.Mutex
	conns map[*websocket.Conn]struct{}
	wg    sync.WaitGroup
}

// New server for a handler
func New(handler network.Handler, opts ...Option) *Server {
	s := &Server{
		handler:         handler,
		addr:            ":3000",
		shutdownTimeout: defaultShutdownTimeout,
		l:               dlogger.MustGetLogger(dlogger.LogLevelNone),
		active:          atomic.NewInt64(0),
		connections:     atomic.NewInt64(0),
		requests:        atomic.NewInt64(0),
		failures:        atomic.NewInt64(0),
		closing:         atomic.NewBool(false),
		conns:           make(map[*websocket.Conn]struct{}),
	}
	for _, apply := range opts {
		apply(s)
	}
	s.upgrader = websocket.Upgrader{
		// remotes are command line clients: there is no browser origin to check
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return s
}

// Stats of the server
func (s *Server) Stats() Stats {
	return Stats{
		ActiveConnections: s.active.Load(),
		Connections:       s.connections.Load(),
		Requests:          s.requests.Load(),
		Failures:          s.failures.Load(),
	}
}

// Handler routes the websocket endpoint, the health check and, when enabled, the metrics
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.withMetrics {
		mux.Handle(MetricsPath, promhttp.Handler())
	}
	mux.HandleFunc(ScopePath, s.serveWebsocket)
	return mux
}

// ListenAndServe listens on the configured address until the context is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on a listener until the context is done.
// Open sessions are closed on shutdown.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.l.Info("serving scope", zap.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.closeSessions()
		return srv.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		return err
	}
	s.wg.Wait()
	s.l.Info("server stopped", zap.Int64("requests", s.requests.Load()))
	return ErrServerClosed
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	if s.maxMessageSize > 0 {
		conn.SetReadLimit(s.maxMessageSize)
	}
	s.l.Debug("session opened", zap.String("remote", r.RemoteAddr))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !s.closing.Load() {
				s.l.Debug("session ended", zap.String("remote", r.RemoteAddr), zap.Error(err))
			}
			return
		}
		resp := s.dispatch(r.Context(), data)
		raw, err := json.Marshal(resp)
		if err != nil {
			s.l.Error("cannot encode response", zap.Error(err))
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			s.l.Debug("cannot write response", zap.Error(err))
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, data []byte) *network.Response {
	s.requests.Inc()
	var req network.Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.failures.Inc()
		return network.NewErrorResponse(&network.CustomError{Message: "invalid request: " + err.Error()})
	}
	resp := s.handler.Handle(ctx, &req)
	if resp == nil {
		resp = network.NewResponse(nil)
	}
	if resp.Code != network.CodeOK {
		s.failures.Inc()
	}
	s.l.Debug("request served",
		zap.String("action", req.Action),
		zap.String("client", req.ClientID),
		zap.Int("code", resp.Code),
	)
	return resp
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.active.Inc()
	s.connections.Inc()
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mx.Lock()
	delete(s.conns, conn)
	s.mx.Unlock()
	_ = conn.Close()
	s.active.Dec()
	s.wg.Done()
}

// closeSessions closes hijacked connections, which http.Server.Shutdown does not track
func (s *Server) closeSessions() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.closing.Store(true)
	deadline := time.Now().Add(time.Second)
	for conn := range s.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = conn.Close()
	}
}
