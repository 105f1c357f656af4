package engine

import (
	"errors"
	"fmt"
)

// ErrCannotPlay is returned when the engine refuses a play that passed the
// caller's own checks: a suit request on a non-whot card, or a card that
// does not satisfy the pile's matching rule.
var ErrCannotPlay = errors.New("card cannot be played")

// Player is one engine-side participant: a 1-based id, a hand, and the
// outstanding forced-draw count accumulated from pick-two/pick-three moves.
type Player struct {
	id     int
	hand   []Card
	toPick int

	market *Market
	pile   *Pile
}

// ID returns the player's 1-based position.
func (p *Player) ID() int {
	return p.id
}

// Hand returns a copy of the player's current hand.
func (p *Player) Hand() []Card {
	out := make([]Card, len(p.hand))
	copy(out, p.hand)
	return out
}

// HandSize returns the number of cards the player holds.
func (p *Player) HandSize() int {
	return len(p.hand)
}

// OutstandingDraws returns the player's pending forced-draw count.
func (p *Player) OutstandingDraws() int {
	return p.toPick
}

// CanPlay reports whether the player may act this turn: no forced draws are
// outstanding and at least one card in hand satisfies the pile.
func (p *Player) CanPlay() bool {
	if p.toPick > 0 {
		return false
	}
	for _, c := range p.hand {
		if p.pile.Matches(c) {
			return true
		}
	}
	return false
}

// Pick draws the player's outstanding forced-draw count from the market, or
// a single card when none is outstanding, and adds the cards to the hand.
//
// Postcondition: OutstandingDraws() == 0. Returns the drawn cards, which may
// be fewer than requested when the market and pile are exhausted.
func (p *Player) Pick() []Card {
	n := p.toPick
	if n < 1 {
		n = 1
	}
	p.toPick = 0
	drawn := p.market.Pick(n)
	p.hand = append(p.hand, drawn...)
	return drawn
}

// Play removes the card at index from the hand and places it on the pile.
// requested carries the suit demanded alongside a whot card, or "" for a
// normal play.
//
// Precondition: index must be within the hand bounds (the caller validates).
// Postcondition: On success the card is on the pile top and removed from the
// hand. Returns ErrCannotPlay if the engine refuses the play.
func (p *Player) Play(index int, requested Suit) (Card, error) {
	if index < 0 || index >= len(p.hand) {
		return Card{}, fmt.Errorf("hand index %d out of range [0,%d)", index, len(p.hand))
	}
	card := p.hand[index]

	if requested != "" && !card.IsWhot() {
		return Card{}, ErrCannotPlay
	}
	// An unknown requested suit would leave the pile demanding a suit no
	// card carries, deadlocking every shaped play until the next whot card.
	if requested != "" && !requested.IsShaped() {
		return Card{}, ErrCannotPlay
	}
	if requested == "" && !p.pile.Matches(card) {
		return Card{}, ErrCannotPlay
	}

	p.hand = append(p.hand[:index], p.hand[index+1:]...)
	p.pile.Push(card, requested)
	return card, nil
}

// addToPick adds n to the player's outstanding forced-draw count.
func (p *Player) addToPick(n int) {
	p.toPick += n
}

// drawOne forces one immediate market draw without touching toPick, used by
// the general-market move.
func (p *Player) drawOne() {
	p.hand = append(p.hand, p.market.Pick(1)...)
}
