// Package server manages individual WebSocket clients: read/write pumps,
// per-connection rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/roomcast/roomcast/internal/logger"
)

const (
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 54 * time.Second
)

// Client is one connected peer. The id, name, and roomID fields form the
// registry entry for the connection and are mutated only by the hub run
// loop; the pumps never touch them.
type Client struct {
	id     string
	name   string
	roomID string

	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a client for the given connection. The send channel is
// buffered so one slow peer cannot stall the hub's fan-out.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             uuid.NewString(),
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the opaque connection id assigned at connect time.
func (c *Client) ID() string {
	return c.id
}

// SendChan exposes the outbound queue, read-only, for tests.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		logger.Warnf("set read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
}

// handleReadError classifies a read failure and reports whether the read
// loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		logger.Warn("frame exceeded read limit",
			zap.String("addr", c.addr), zap.Int64("limit", c.maxMessageSize))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		logger.Debug("client disconnected", zap.String("addr", c.addr), zap.Error(err))
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		logger.Debug("connection closed", zap.String("addr", c.addr), zap.Error(err))
	default:
		logger.Warn("websocket read error", zap.String("addr", c.addr), zap.Error(err))
	}
	return true
}

// readPump forwards decoded frames to the hub loop. It owns nothing but the
// connection's read side; the hub decides what each frame means.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logger.Warnf("close connection in readPump: %v", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				return
			}
			continue
		}

		if c.rateLimiter != nil && !c.rateLimiter.allow() {
			logger.Warn("rate limit exceeded, discarding frame",
				zap.String("addr", c.addr),
				zap.Int("burst", c.rateLimit.Burst),
				zap.Duration("interval", c.rateLimit.RefillInterval))
			continue
		}

		select {
		case c.hub.inbound <- inboundFrame{client: c, payload: payload}:
		case <-c.hub.ctx.Done():
			return
		}
	}
}

// isExpectedCloseError reports whether an error is routine noise from a
// connection being torn down.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

// writePump drains the send channel onto the wire, one event per frame, and
// keeps the connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logger.Warnf("close connection in writePump: %v", err)
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				logger.Warnf("set write deadline for %s: %v", c.addr, err)
				return
			}
			if !ok {
				// Hub closed the channel: say goodbye and stop.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					logger.Warnf("write close message to %s: %v", c.addr, err)
				}
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					logger.Warnf("write frame to %s: %v", c.addr, err)
				}
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
