package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrBackpressure means the client's send buffer is full and the
// frame was dropped rather than blocking the handler.
var ErrBackpressure = errors.New("send buffer full")

const sendBuffer = 32

type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{conn: c, send: make(chan []byte, sendBuffer)}
}

func (c *wsConn) TrySend(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}
