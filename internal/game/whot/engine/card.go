// Package engine implements the whot card rules: deck composition, the
// discard pile and its matching rule, the market (draw pile), per-player
// hands, and the turn cursor with its special-move effects. The session
// layer drives the engine and relays its events; the engine knows nothing
// about connections.
package engine

import "fmt"

// Suit is one of the five whot card shapes, or the wildcard whot suit.
type Suit string

const (
	SuitCircle   Suit = "circle"
	SuitTriangle Suit = "triangle"
	SuitCross    Suit = "cross"
	SuitSquare   Suit = "square"
	SuitStar     Suit = "star"
	SuitWhot     Suit = "whot"
)

// Move identifies the special effect a card number carries when played.
type Move string

const (
	MoveNone          Move = ""
	MoveHoldOn        Move = "hold-on"
	MovePickTwo       Move = "pick-two"
	MovePickThree     Move = "pick-three"
	MoveSuspension    Move = "suspension"
	MoveGeneralMarket Move = "general-market"
	MoveWhot          Move = "whot"
)

// Card numbers carrying special moves in the standard ruleset.
const (
	numberHoldOn        = 1
	numberPickTwo       = 2
	numberPickThree     = 5
	numberSuspension    = 8
	numberGeneralMarket = 14
	numberWhot          = 20
)

// IsShaped reports whether s is one of the five shaped suits. The whot
// wildcard suit is not shaped and can never be requested.
func (s Suit) IsShaped() bool {
	switch s {
	case SuitCircle, SuitTriangle, SuitCross, SuitSquare, SuitStar:
		return true
	}
	return false
}

// Card is a single whot card.
type Card struct {
	Suit   Suit `json:"suit" yaml:"suit"`
	Number int  `json:"number" yaml:"number"`
}

// Move returns the special effect the card triggers when played.
func (c Card) Move() Move {
	if c.Suit == SuitWhot {
		return MoveWhot
	}
	switch c.Number {
	case numberHoldOn:
		return MoveHoldOn
	case numberPickTwo:
		return MovePickTwo
	case numberPickThree:
		return MovePickThree
	case numberSuspension:
		return MoveSuspension
	case numberGeneralMarket:
		return MoveGeneralMarket
	default:
		return MoveNone
	}
}

// IsWhot reports whether the card is a wildcard whot card.
func (c Card) IsWhot() bool {
	return c.Suit == SuitWhot
}

// String returns the card in "suit:number" form.
func (c Card) String() string {
	return fmt.Sprintf("%s:%d", c.Suit, c.Number)
}
