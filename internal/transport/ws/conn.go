// Package ws provides the WebSocket transport layer for the parlor server:
// an acceptor that dispatches connections by URL path prefix and a connection
// wrapper exposing structured send and lifecycle hooks to the game handlers.
package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cory-johannsen/parlor/internal/config"
)

// sendBufferSize bounds the per-connection outbound queue. A client that
// cannot drain this many messages is considered stuck and loses the message.
const sendBufferSize = 256

// Conn wraps a WebSocket connection with a buffered writer pump, a unique
// identifier, and optional inbound rate limiting. Game handlers never touch
// the underlying socket directly.
type Conn struct {
	id      string
	sock    *websocket.Conn
	logger  *zap.Logger
	limiter *rate.Limiter

	writeTimeout time.Duration
	pingInterval time.Duration
	pongWait     time.Duration

	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewConn wraps an upgraded WebSocket connection.
//
// Precondition: sock must be a freshly upgraded connection; logger must be non-nil.
// Postcondition: Returns a Conn with a running writer pump.
func NewConn(sock *websocket.Conn, cfg config.ServerConfig, logger *zap.Logger) *Conn {
	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.MessagesPerSecond), cfg.RateLimit.Burst)
	}

	c := &Conn{
		id:           uuid.NewString(),
		sock:         sock,
		logger:       logger,
		limiter:      limiter,
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
		pongWait:     cfg.PongWait,
		send:         make(chan []byte, sendBufferSize),
		done:         make(chan struct{}),
	}

	go c.writePump()
	return c
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the client's remote network address.
func (c *Conn) RemoteAddr() string {
	return c.sock.RemoteAddr().String()
}

// Send marshals v to JSON and enqueues it for delivery. Delivery to a single
// connection is FIFO; Send never blocks the caller.
//
// Postcondition: Returns an error if marshalling fails, the connection is
// closed, or the outbound queue is full.
func (c *Conn) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection %s is closed", c.id)
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("connection %s send buffer full", c.id)
	}
}

// Close shuts the connection down. Safe to call multiple times.
//
// Postcondition: The underlying socket is closed and the writer pump exits.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	_ = c.sock.Close()
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// allow reports whether an inbound message is within the rate limit.
func (c *Conn) allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// writePump serializes all writes to the socket: queued messages and
// keepalive pings. It exits when the connection is closed.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed, closing connection",
					zap.String("conn_id", c.id),
					zap.Error(err),
				)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			// Best effort close frame; the socket is going away regardless.
			_ = c.sock.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if messageType == websocket.PingMessage {
		return c.sock.WriteMessage(websocket.PingMessage, nil)
	}
	return c.sock.WriteMessage(messageType, data)
}

// readLoop reads messages until the socket fails, delivering each payload to
// deliver. Rate-limited connections are closed with a policy violation.
func (c *Conn) readLoop(deliver func(data []byte)) {
	if c.pongWait > 0 {
		_ = c.sock.SetReadDeadline(time.Now().Add(c.pongWait))
		c.sock.SetPongHandler(func(string) error {
			return c.sock.SetReadDeadline(time.Now().Add(c.pongWait))
		})
	}

	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("unexpected close",
					zap.String("conn_id", c.id),
					zap.Error(err),
				)
			}
			return
		}

		if !c.allow() {
			c.logger.Warn("rate limit exceeded",
				zap.String("conn_id", c.id),
				zap.String("remote_addr", c.RemoteAddr()),
			)
			_ = c.sock.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit exceeded"),
				time.Now().Add(time.Second))
			return
		}

		deliver(data)
	}
}
