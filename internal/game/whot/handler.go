package whot

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/transport/ws"
)

// Handler adapts the session layer to the WebSocket transport: it resolves
// the session from the request path on open, dispatches inbound envelopes,
// and unbinds on close. Malformed input is logged and dropped; it never
// terminates a session.
type Handler struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates a whot endpoint handler over the given registry.
func NewHandler(registry *Registry, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// HandleOpen resolves the session id from the final path segment and binds
// the connection. An unknown id receives an error envelope and the
// connection is closed.
func (h *Handler) HandleOpen(conn *ws.Conn, path string) {
	h.open(conn, path)
}

// HandleMessage decodes one inbound envelope and dispatches by
// discriminant.
func (h *Handler) HandleMessage(conn *ws.Conn, data []byte) {
	h.message(conn, data)
}

// HandleClose unbinds the connection from its session, if any.
func (h *Handler) HandleClose(conn *ws.Conn) {
	h.closed(conn)
}

func (h *Handler) open(conn Conn, path string) {
	id := lastSegment(path)
	session, ok := h.registry.Get(id)
	if !ok {
		h.logger.Warn("session not found", zap.String("session", id))
		if err := conn.Send(ErrorEnvelope{Error: fmt.Sprintf("could not find a game with id %q", id)}); err != nil {
			h.logger.Warn("send failed", zap.String("conn", conn.ID()), zap.Error(err))
		}
		conn.Close()
		return
	}
	session.Bind(conn)
}

// message dispatches one inbound envelope. Unknown discriminants are
// ignored, matching the protocol's tolerance for newer clients.
func (h *Handler) message(conn Conn, data []byte) {
	session, ok := h.registry.SessionFor(conn.ID())
	if !ok {
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn("malformed envelope",
			zap.String("conn", conn.ID()),
			zap.Error(err))
		return
	}

	switch msg.Message {
	case MsgPlay:
		session.HandlePlay(conn, msg.Index, msg.INeed)
	case MsgMarketPick:
		session.HandleMarketPick(conn)
	case MsgGameInfo:
		session.HandleInfo(conn, msg.Username)
	default:
		h.logger.Debug("unknown discriminant",
			zap.String("conn", conn.ID()),
			zap.String("message", msg.Message))
	}
}

func (h *Handler) closed(conn Conn) {
	if session, ok := h.registry.SessionFor(conn.ID()); ok {
		session.Disconnect(conn)
	}
}

// lastSegment returns the final non-empty path segment.
func lastSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
