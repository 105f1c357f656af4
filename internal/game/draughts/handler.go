package draughts

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/transport/ws"
)

// Handler adapts the broker to the WebSocket transport. Every operation
// arrives as a typed envelope on a raw connection; malformed input is
// logged and dropped.
type Handler struct {
	broker *Broker
	logger *zap.Logger
}

// NewHandler creates a draughts endpoint handler over the given broker.
func NewHandler(broker *Broker, logger *zap.Logger) *Handler {
	return &Handler{broker: broker, logger: logger}
}

// HandleOpen is a no-op: draughts connections identify themselves through
// createGame/joinGame rather than the path.
func (h *Handler) HandleOpen(conn *ws.Conn, path string) {
	h.logger.Debug("connection opened", zap.String("conn", conn.ID()))
}

// HandleMessage decodes one inbound envelope and dispatches by type.
func (h *Handler) HandleMessage(conn *ws.Conn, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn("malformed envelope",
			zap.String("conn", conn.ID()),
			zap.Error(err))
		return
	}

	switch msg.Type {
	case MsgCreateGame:
		h.broker.CreateGame(conn, msg.GameType)
	case MsgJoinGame:
		h.broker.JoinGame(conn, msg.GameID)
	case MsgListGames:
		h.broker.ListGames(conn, msg.GameType)
	case MsgMove:
		h.broker.Move(conn, msg.Move, msg.GameState)
	case MsgExitGame:
		h.broker.ExitGame(conn)
	default:
		h.logger.Debug("unknown discriminant",
			zap.String("conn", conn.ID()),
			zap.String("type", msg.Type))
	}
}

// HandleClose performs the same cleanup as an explicit exitGame.
func (h *Handler) HandleClose(conn *ws.Conn) {
	h.broker.Disconnect(conn)
}
