package draughts

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Broker rejection messages, worded for the client.
const (
	errGameNotFound  = "Game not found!"
	errGameFull      = "Game full!"
	errAlreadyInGame = "You are already in the game!"
)

// Conn is the transport surface the broker needs from a connection.
// *ws.Conn satisfies it; tests substitute fakes.
type Conn interface {
	ID() string
	Send(v interface{}) error
	Close()
}

// room is a matchmaking unit: up to two members, a started flag, and the
// last board snapshot relayed through it.
type room struct {
	id       string
	gameType string
	members  []Conn
	started  bool
	snapshot json.RawMessage
}

// other returns the member that is not conn, or nil.
func (r *room) other(conn Conn) Conn {
	for _, m := range r.members {
		if m.ID() != conn.ID() {
			return m
		}
	}
	return nil
}

// Broker owns the room table and the reverse index from connection to
// room. All mutation is serialized behind mu. A connection occupies at
// most one room at a time.
type Broker struct {
	logger *zap.Logger

	mu     sync.Mutex
	rooms  map[string]*room
	byConn map[string]*room
}

// NewBroker creates an empty broker.
//
// Precondition: logger must be non-nil.
func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{
		logger: logger,
		rooms:  make(map[string]*room),
		byConn: make(map[string]*room),
	}
}

// CreateGame allocates a room with conn as sole member and replies with
// the new id. A connection already in a room must exit it first.
func (b *Broker) CreateGame(conn Conn, gameType string) {
	if gameType == "" {
		gameType = DefaultGameType
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, in := b.byConn[conn.ID()]; in {
		b.send(conn, ErrorNotice{Type: MsgError, Message: errAlreadyInGame})
		return
	}

	r := &room{
		id:       uuid.NewString(),
		gameType: gameType,
		members:  []Conn{conn},
	}
	b.rooms[r.id] = r
	b.byConn[conn.ID()] = r

	b.send(conn, GameCreatedNotice{Type: MsgGameCreated, GameID: r.id})
	b.logger.Info("room created",
		zap.String("room", r.id),
		zap.String("gameType", gameType))
}

// JoinGame adds conn to the identified room and starts play. A full room
// is never mutated; the first-joined member is told it is their turn.
func (b *Broker) JoinGame(conn Conn, gameID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.rooms[gameID]
	if !ok {
		b.send(conn, ErrorNotice{Type: MsgError, Message: errGameNotFound})
		return
	}
	for _, m := range r.members {
		if m.ID() == conn.ID() {
			b.send(conn, ErrorNotice{Type: MsgError, Message: errAlreadyInGame})
			return
		}
	}
	if len(r.members) >= 2 {
		b.send(conn, ErrorNotice{Type: MsgError, Message: errGameFull})
		return
	}

	r.members = append(r.members, conn)
	r.started = true
	b.byConn[conn.ID()] = r

	for i, m := range r.members {
		b.send(m, GameJoinedNotice{Type: MsgGameJoined, PlayerNumber: i + 1})
	}
	b.send(r.members[0], StartNotice{Type: MsgStart, YourTurn: true, GameState: r.snapshot})
	b.send(r.members[1], StartNotice{Type: MsgStart, YourTurn: false, GameState: r.snapshot})

	b.logger.Info("room started", zap.String("room", r.id))
}

// ListGames replies with the joinable rooms of the requested type: exactly
// one member, not yet started.
func (b *Broker) ListGames(conn Conn, gameType string) {
	if gameType == "" {
		gameType = DefaultGameType
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	games := make([]GameSummary, 0)
	for _, r := range b.rooms {
		if len(r.members) == 1 && !r.started && r.gameType == gameType {
			games = append(games, GameSummary{GameID: r.id, GameType: r.gameType})
		}
	}
	b.send(conn, AvailableGamesNotice{Type: MsgAvailableGames, Games: games})
}

// Move relays conn's move and board snapshot to the other member,
// overwriting the stored snapshot. The snapshot is trusted as-is; there is
// no legality check. A connection outside any room is ignored.
func (b *Broker) Move(conn Conn, move, gameState json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.byConn[conn.ID()]
	if !ok {
		return
	}
	opponent := r.other(conn)
	if opponent == nil {
		return
	}

	r.snapshot = gameState
	b.send(opponent, OpponentMoveNotice{Type: MsgOpponentMove, Move: move, GameState: r.snapshot})
	b.send(conn, MoveConfirmedNotice{Type: MsgMoveConfirmed, Move: move})
}

// ExitGame removes conn from its room and acknowledges the exit. An empty
// room is destroyed; otherwise the remaining member learns their opponent
// left.
func (b *Broker) ExitGame(conn Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.leave(conn) {
		b.send(conn, SimpleNotice{Type: MsgGameExited})
	}
}

// Disconnect performs the same cleanup as ExitGame without the
// acknowledgment, for connections that closed.
func (b *Broker) Disconnect(conn Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leave(conn)
}

// leave removes conn from its room. Caller holds mu. Reports whether conn
// was in a room.
func (b *Broker) leave(conn Conn) bool {
	r, ok := b.byConn[conn.ID()]
	if !ok {
		return false
	}
	delete(b.byConn, conn.ID())

	members := r.members[:0]
	for _, m := range r.members {
		if m.ID() != conn.ID() {
			members = append(members, m)
		}
	}
	r.members = members

	if len(r.members) == 0 {
		delete(b.rooms, r.id)
		b.logger.Info("room removed", zap.String("room", r.id))
	} else {
		b.send(r.members[0], SimpleNotice{Type: MsgOpponentLeft})
	}
	return true
}

// RoomCount returns the number of live rooms.
func (b *Broker) RoomCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms)
}

// send delivers v to one connection, logging delivery failures.
func (b *Broker) send(conn Conn, v interface{}) {
	if err := conn.Send(v); err != nil {
		b.logger.Warn("send failed",
			zap.String("conn", conn.ID()),
			zap.Error(err))
	}
}
