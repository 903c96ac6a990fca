package stream

import (
	"context"
	"net/url"
	"time"

	"nhooyr.io/websocket"
)

const (
	dialTimeout = 10 * time.Second
	writeWait   = 5 * time.Second
	readLimit   = 1 << 20
)

// conn is the subset of a websocket connection Collect needs.
type conn interface {
	close() error
	readMessage(ctx context.Context) ([]byte, error)
	writeMessage(ctx context.Context, data []byte) error
}

type nhooyrWebsocketConn struct {
	conn *websocket.Conn
}

// newNhooyrWebsocketConn creates a new nhooyr websocket connection
func newNhooyrWebsocketConn(ctx context.Context, u url.URL) (conn, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	c, _, err := websocket.Dial(ctxWithTimeout, u.String(), &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(readLimit)

	return &nhooyrWebsocketConn{conn: c}, nil
}

// close closes the websocket connection
func (c *nhooyrWebsocketConn) close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// readMessage blocks until it reads a single message
func (c *nhooyrWebsocketConn) readMessage(ctx context.Context) (data []byte, err error) {
	_, data, err = c.conn.Read(ctx)
	return data, err
}

// writeMessage writes a single text message
func (c *nhooyrWebsocketConn) writeMessage(ctx context.Context, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	return c.conn.Write(writeCtx, websocket.MessageText, data)
}
