// Package draughts is the matchmaking broker for the board game: room
// creation, joining, listing, and opaque move relay between exactly two
// participants. There is no rules engine; the server stores and forwards
// the active player's board snapshot without judging the move.
package draughts

import "encoding/json"

// Message discriminants carried in the "type" field of every envelope.
const (
	MsgCreateGame     = "createGame"
	MsgJoinGame       = "joinGame"
	MsgListGames      = "listGames"
	MsgMove           = "move"
	MsgExitGame       = "exitGame"
	MsgGameCreated    = "gameCreated"
	MsgGameJoined     = "gameJoined"
	MsgStart          = "start"
	MsgAvailableGames = "availableGames"
	MsgOpponentMove   = "opponentMove"
	MsgMoveConfirmed  = "moveConfirmed"
	MsgGameExited     = "gameExited"
	MsgOpponentLeft   = "opponentLeft"
	MsgError          = "error"
)

// DefaultGameType is assumed when a client omits the game type.
const DefaultGameType = "draughts"

// ClientMessage is the inbound envelope. Move and GameState are opaque and
// relayed verbatim.
type ClientMessage struct {
	Type      string          `json:"type"`
	GameType  string          `json:"gameType,omitempty"`
	GameID    string          `json:"gameId,omitempty"`
	Move      json.RawMessage `json:"move,omitempty"`
	GameState json.RawMessage `json:"gameState,omitempty"`
}

// GameCreatedNotice acknowledges room creation with the new id.
type GameCreatedNotice struct {
	Type   string `json:"type"`
	GameID string `json:"gameId"`
}

// GameJoinedNotice tells a member its 1-based position in the room.
type GameJoinedNotice struct {
	Type         string `json:"type"`
	PlayerNumber int    `json:"playerNumber"`
}

// StartNotice opens play. Exactly the first-joined member sees
// YourTurn=true. GameState is null until a first move exists.
type StartNotice struct {
	Type      string          `json:"type"`
	YourTurn  bool            `json:"yourTurn"`
	GameState json.RawMessage `json:"gameState"`
}

// GameSummary is one joinable room in an availableGames listing.
type GameSummary struct {
	GameID   string `json:"gameId"`
	GameType string `json:"gameType"`
}

// AvailableGamesNotice lists joinable rooms.
type AvailableGamesNotice struct {
	Type  string        `json:"type"`
	Games []GameSummary `json:"games"`
}

// OpponentMoveNotice relays the opposing player's move and the board
// snapshot that accompanied it.
type OpponentMoveNotice struct {
	Type      string          `json:"type"`
	Move      json.RawMessage `json:"move"`
	GameState json.RawMessage `json:"gameState"`
}

// MoveConfirmedNotice acknowledges the sender's relayed move.
type MoveConfirmedNotice struct {
	Type string          `json:"type"`
	Move json.RawMessage `json:"move"`
}

// SimpleNotice is a bare discriminant envelope (gameExited, opponentLeft).
type SimpleNotice struct {
	Type string `json:"type"`
}

// ErrorNotice is the error envelope for broker rejections.
type ErrorNotice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
