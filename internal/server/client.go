package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one live channel: a WebSocket connection plus the
// server-assigned channel id and lifecycle state. The state field is owned
// by the hub and only touched under the hub mutex; the closed flag and send
// queue are guarded by the client's own mutex.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	addr string

	send chan []byte

	mu     sync.Mutex
	closed bool

	state ChannelState

	limiter *rateLimiter
	logger  *slog.Logger
}

// NewClient wraps an upgraded connection, assigns a fresh channel id, and
// applies the configured read limit and rate limiter.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		hub:     hub,
		addr:    addr,
		send:    make(chan []byte, cfg.SendQueueSize),
		limiter: newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		logger:  hub.logger,
	}
}

// ID returns the server-assigned channel id.
func (c *Client) ID() string { return c.id }

// enqueue queues an encoded frame for the write pump. It reports false when
// the channel has terminated or its queue is full; the caller treats both as
// a silent drop.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend closes the send queue exactly once, which lets the write pump
// finish with a close frame.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads event frames off the connection and hands them to the hub
// dispatcher. It exits on any read error; the deferred disconnect is the
// single cancellation signal for the channel.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection after read pump",
				"channel_id", c.id, "error", err)
		}
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("error setting read deadline", "channel_id", c.id, "error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.allow() {
			c.logger.Warn("rate limit exceeded, dropping event",
				"channel_id", c.id, "remote_addr", c.addr)
			continue
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Warn("malformed event frame",
				"channel_id", c.id, "error", err)
			continue
		}
		c.hub.Dispatch(c, env)
	}
}

// logReadError picks the log level for a terminated read loop: normal
// closures are routine, everything else is worth a warning.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("frame exceeded maximum size",
			"channel_id", c.id, "max_bytes", c.hub.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Debug("channel closed by peer", "channel_id", c.id, "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Debug("connection closed", "channel_id", c.id, "error", err)
	default:
		c.logger.Warn("websocket read error", "channel_id", c.id, "error", err)
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with periodic pings. Frames queued behind the current one are
// flushed in the same websocket message, newline separated.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection after write pump",
				"channel_id", c.id, "error", err)
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.writeBatch(frame) {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeBatch(frame []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return false
	}
	if _, err := w.Write(frame); err != nil {
		return false
	}

	queued := len(c.send)
	for i := 0; i < queued; i++ {
		next, ok := <-c.send
		if !ok {
			break
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return false
		}
		if _, err := w.Write(next); err != nil {
			return false
		}
	}

	return w.Close() == nil
}

// isExpectedCloseError reports whether an error is routine during connection
// teardown.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
