package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Options configures a new Game.
type Options struct {
	// Players is the number of participants. Must be at least 2.
	Players int
	// Deck overrides the embedded standard deck definition. Nil uses the default.
	Deck *DeckSpec
	// Seed fixes the shuffle for reproducible games. Zero seeds from
	// crypto/rand.
	Seed int64
}

// Game owns the complete card-game state: players, market, pile, and the
// turn cursor. It performs no I/O and is not safe for concurrent use; the
// session layer serializes access.
type Game struct {
	players []*Player
	market  *Market
	pile    *Pile
	turn    *Turn
	emitter *Emitter
}

// New deals a fresh game.
//
// Precondition: opts.Players >= 2 and the deck must cover the deal plus a
// starter card.
// Postcondition: Every player holds HandSize cards, the pile holds one
// starter, and the cursor is on player 1.
func New(opts Options) (*Game, error) {
	if opts.Players < 2 {
		return nil, fmt.Errorf("need at least 2 players, got %d", opts.Players)
	}
	spec := opts.Deck
	if spec == nil {
		spec = DefaultDeckSpec()
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("deck spec: %w", err)
	}
	if need := opts.Players*spec.HandSize + 1; spec.Size() < need {
		return nil, fmt.Errorf("deck of %d cards cannot deal %d players (need %d)", spec.Size(), opts.Players, need)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = cryptoSeed()
	}
	rng := rand.New(rand.NewSource(seed))

	deck := spec.Build(rng)

	g := &Game{emitter: NewEmitter()}

	// Starter card, then the deal, then the rest becomes the market.
	g.pile = NewPile(deck[0])
	deck = deck[1:]

	g.players = make([]*Player, opts.Players)
	for i := range g.players {
		hand := make([]Card, spec.HandSize)
		copy(hand, deck[:spec.HandSize])
		deck = deck[spec.HandSize:]
		g.players[i] = &Player{id: i + 1, hand: hand, pile: g.pile}
	}

	g.market = NewMarket(deck, g.pile, rng)
	for _, p := range g.players {
		p.market = g.market
	}

	g.turn = &Turn{players: g.players, emitter: g.emitter}
	return g, nil
}

// Turn returns the turn cursor.
func (g *Game) Turn() *Turn {
	return g.turn
}

// Pile returns the discard pile.
func (g *Game) Pile() *Pile {
	return g.pile
}

// Market returns the draw pile.
func (g *Game) Market() *Market {
	return g.market
}

// Emitter returns the game's event emitter.
func (g *Game) Emitter() *Emitter {
	return g.emitter
}

// Players returns the player ring in id order.
func (g *Game) Players() []*Player {
	return g.players
}

func cryptoSeed() int64 {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return int64(binary.BigEndian.Uint64(b[:]))
}
