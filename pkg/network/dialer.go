package network

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/metrics"
)

// Host schemes
const (
	SchemeWS   = "ws"
	SchemeWSS  = "wss"
	SchemeFile = "file"
)

// LocalOpener opens a scope on the local file system and returns a handler for its requests,
// with a function releasing the scope.
type LocalOpener func(ctx context.Context, path string) (Handler, func() error, error)

// DialerOption configures a Dialer
type DialerOption func(*Dialer)

// WithLocalOpener enables file:// remotes
func WithLocalOpener(opener LocalOpener) DialerOption {
	return func(d *Dialer) {
		d.opener = opener
	}
}

// WithWebsocketDialer overrides the default websocket dialer
func WithWebsocketDialer(ws *websocket.Dialer) DialerOption {
	return func(d *Dialer) {
		if ws != nil {
			d.ws = ws
		}
	}
}

// WithMaxMessageSize limits the size of responses read from websocket remotes
func WithMaxMessageSize(size int64) DialerOption {
	return func(d *Dialer) {
		d.maxMessageSize = size
	}
}

// WithClientID sets the client id sent with every request. It defaults to a new unique id.
func WithClientID(id string) DialerOption {
	return func(d *Dialer) {
		if id != "" {
			d.clientID = id
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) DialerOption {
	return func(d *Dialer) {
		if l != nil {
			d.l = l
		}
	}
}

// WithMetrics sets the metrics collectors
func WithMetrics(m *metrics.M) DialerOption {
	return func(d *Dialer) {
		d.m = m
	}
}

// Dialer connects to remote scopes
type Dialer struct {
	opener         LocalOpener
	ws             *websocket.Dialer
	maxMessageSize int64
	clientID       string
	l              *zap.Logger
	m              *metrics.M
}

// NewDialer builds a dialer
func NewDialer(opts ...DialerOption) *Dialer {
	d := &Dialer{
		ws:       websocket.DefaultDialer,
		clientID: ksuid.New().String(),
		l:        dlogger.MustGetLogger(dlogger.LogLevelNone),
	}
	for _, apply := range opts {
		apply(d)
	}
	return d
}

// ClientID sent with requests
func (d *Dialer) ClientID() string {
	return d.clientID
}

// Connect opens a session with the scope scopeName served at host
func (d *Dialer) Connect(ctx context.Context, host, scopeName string) (Network, error) {
	scheme, location, err := ParseHost(host)
	if err != nil {
		return nil, err
	}

	var transport Transport
	switch scheme {
	case SchemeFile:
		if d.opener == nil {
			return nil, ErrInvalidHost.Wrapf("local remotes are not supported: %s", host)
		}
		handler, closer, err := d.opener(ctx, location)
		if err != nil {
			return nil, ErrConnection.Wrap(err)
		}
		transport = &localTransport{handler: handler, closer: closer}
	default:
		ws, err := dialWebsocket(ctx, d.ws, location, d.maxMessageSize)
		if err != nil {
			return nil, ErrConnection.Wrap(err)
		}
		transport = ws
	}

	d.l.Debug("connected to remote", zap.String("host", host), zap.String("scope", scopeName))
	return &client{
		transport:  transport,
		scopeName:  scopeName,
		remotePath: host,
		clientID:   d.clientID,
		l:          d.l,
		m:          d.m,
	}, nil
}

// ParseHost validates a remote host and returns its scheme and location.
//
// For file remotes, the location is the path of the scope. For websocket remotes, it is the full url.
func ParseHost(host string) (string, string, error) {
	if host == "" {
		return "", "", ErrInvalidHost.Wrapf("empty host")
	}
	if filepath.IsAbs(host) {
		return SchemeFile, filepath.Clean(host), nil
	}
	u, err := url.Parse(host)
	if err != nil {
		return "", "", ErrInvalidHost.Wrap(err)
	}
	switch strings.ToLower(u.Scheme) {
	case SchemeFile:
		if u.Path == "" || !filepath.IsAbs(u.Path) {
			return "", "", ErrInvalidHost.Wrapf("%q should point to an absolute path", host)
		}
		return SchemeFile, filepath.Clean(u.Path), nil
	case SchemeWS, SchemeWSS:
		if u.Host == "" {
			return "", "", ErrInvalidHost.Wrapf("%q does not have a host", host)
		}
		return strings.ToLower(u.Scheme), u.String(), nil
	default:
		return "", "", ErrInvalidHost.Wrapf("unsupported scheme in %q", host)
	}
}

// ValidateHost checks a remote host before connecting
func ValidateHost(host string) error {
	_, _, err := ParseHost(host)
	return err
}
