package realtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketDialer adapts gorilla/websocket to the Dialer interface.
type WebsocketDialer struct {
	// HandshakeTimeout bounds the dial handshake (default 10s).
	HandshakeTimeout time.Duration

	// Header is sent with every handshake (bearer tokens, actor identity).
	Header http.Header
}

// Dial establishes a websocket connection to url.
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := &websocket.Dialer{HandshakeTimeout: timeout}
	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime: dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("realtime: dial %s: %w", url, err)
	}
	return &websocketConn{conn: conn}, nil
}

type websocketConn struct {
	conn *websocket.Conn
}

func (c *websocketConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		// Only the normal-closure code ends the session for good; any
		// other close code or transport error triggers a reconnect.
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil, NormalClosure(err)
		}
		return nil, err
	}
	return data, nil
}

func (c *websocketConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *websocketConn) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}
