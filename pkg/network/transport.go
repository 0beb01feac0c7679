package network

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// wsTransport sends one request per websocket text frame and reads one response frame back
type wsTransport struct {
	conn *websocket.Conn
	mx   sync.Mutex
}

func dialWebsocket(ctx context.Context, dialer *websocket.Dialer, url string, maxMessageSize int64) (*wsTransport, error) {
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	t.mx.Lock()
	defer t.mx.Unlock()

	_ = t.conn.SetWriteDeadline(time.Time{})
	_ = t.conn.SetReadDeadline(time.Time{})

	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}

	// unblock a pending read when the context is done
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = t.conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err = t.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	var resp Response
	if err = json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *wsTransport) Close() error {
	t.mx.Lock()
	defer t.mx.Unlock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	return t.conn.Close()
}

// localTransport hands requests to an in-process handler, for scopes on the local file system
type localTransport struct {
	handler Handler
	closer  func() error
}

func (t *localTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// requests go through the wire format, so that both transports behave the same
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var wireReq Request
	if err = json.Unmarshal(raw, &wireReq); err != nil {
		return nil, err
	}
	return t.handler.Handle(ctx, &wireReq), nil
}

func (t *localTransport) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}
