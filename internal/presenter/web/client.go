package web

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// client is one connected browser.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	config  SecurityConfig
	logger  *slog.Logger
}

// enqueue queues a frame without blocking. If the send buffer is full the
// frame is dropped.
func (c *client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.logger.Warn("WebSocket send buffer full, dropping message")
	}
}

// writePump copies frames from send to the connection and keeps it alive
// with pings. It closes the connection when send is closed or a write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump hands every incoming frame to handle until the connection fails.
func (c *client) readPump(handle func(*client, []byte)) {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("WebSocket read error", "error", err)
			}
			return
		}
		handle(c, message)
	}
}
