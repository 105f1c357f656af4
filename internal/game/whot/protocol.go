// Package whot is the session orchestration layer for the whot card game:
// it binds connections to player or listener roles, drives the turn
// broadcast loop with auto-skip, relays engine events as participant-safe
// projections, and validates play and market actions.
package whot

import "github.com/cory-johannsen/parlor/internal/game/whot/engine"

// Message discriminants carried in the "message" field of every envelope.
const (
	MsgGameCreate    = "game:create"
	MsgGameStart     = "game:start"
	MsgGameInfo      = "game:info"
	MsgGameStalemate = "game:stalemate"
	MsgPlayerHand    = "player:hand"
	MsgPlay          = "player:play"
	MsgTurnSwitch    = "turn:switch"
	MsgMarketPick    = "market:pick"
	MsgCurrentPlayer = "current:player"
	MsgPileTop       = "pile:top"
)

// Role names assigned by the binder.
const (
	RolePlayer   = "player"
	RoleListener = "listener"
)

// ClientMessage is the inbound envelope. Index is a pointer so an absent
// index is distinguishable from index zero.
type ClientMessage struct {
	Message  string      `json:"message"`
	Index    *int        `json:"index,omitempty"`
	INeed    engine.Suit `json:"iNeed,omitempty"`
	Username string      `json:"username,omitempty"`
}

// CreateAck acknowledges a completed binding: the connection's role, its
// numeric id, and the roster counts.
type CreateAck struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	PlayerID  int    `json:"playerId"`
	Type      string `json:"type"`
	Players   int    `json:"players"`
	Listeners int    `json:"listeners"`
}

// StartNotice announces game start with the initial pile top.
type StartNotice struct {
	Message string      `json:"message"`
	Pile    engine.Card `json:"pile"`
}

// HandNotice carries a player's private hand. Never broadcast.
type HandNotice struct {
	Message string        `json:"message"`
	Hand    []engine.Card `json:"hand"`
}

// TurnNotice is a bare discriminant envelope (turn:switch, game:stalemate).
type TurnNotice struct {
	Message string `json:"message"`
}

// CurrentPlayerNotice names the player whose turn is being announced.
type CurrentPlayerNotice struct {
	Message  string `json:"message"`
	PlayerID int    `json:"playerId"`
}

// PlayNotice broadcasts an accepted play to everyone except the actor.
type PlayNotice struct {
	Message string      `json:"message"`
	ID      int         `json:"id"`
	Card    engine.Card `json:"card"`
}

// PileTopNotice resynchronizes a client with the authoritative pile top.
type PileTopNotice struct {
	Message string      `json:"message"`
	Card    engine.Card `json:"card"`
}

// MarketPickNotice returns the cards a player drew from the market.
type MarketPickNotice struct {
	Message string        `json:"message"`
	Cards   []engine.Card `json:"cards"`
}

// PlayerProjection is the public shape of a player carried by relay
// events: id, outstanding forced draws, and whether it is their turn.
// Hand contents are never exposed.
type PlayerProjection struct {
	ID     int  `json:"id"`
	ToPick int  `json:"toPick"`
	Turn   bool `json:"turn"`
}

// RelayNotice carries a projected engine event. Pick-two and pick-three
// affect a single player; hold-on, suspension, and general-market carry a
// list.
type RelayNotice struct {
	Message string             `json:"message"`
	Player  *PlayerProjection  `json:"player,omitempty"`
	Players []PlayerProjection `json:"players,omitempty"`
}

// InfoNotice broadcasts the roster usernames after a game:info update.
type InfoNotice struct {
	ID        string   `json:"id"`
	Message   string   `json:"message"`
	PlayerID  int      `json:"playerId"`
	Type      string   `json:"type"`
	Players   []string `json:"players"`
	Listeners []string `json:"listeners"`
}

// ErrorEnvelope is the error shape sent to an offending connection.
type ErrorEnvelope struct {
	Error string `json:"error"`
}
