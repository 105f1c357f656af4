package engine

// Pile is the discard pile. It remembers the suit requested by the last
// whot wildcard, which overrides the normal matching rule until a shaped
// card is played.
type Pile struct {
	cards     []Card
	requested Suit
}

// NewPile creates a pile seeded with the starter card.
func NewPile(starter Card) *Pile {
	return &Pile{cards: []Card{starter}}
}

// Top returns the top card of the pile.
//
// Precondition: The pile is never empty; it is seeded at game start.
func (p *Pile) Top() Card {
	return p.cards[len(p.cards)-1]
}

// Requested returns the suit demanded by the last whot card, or "" when no
// request is outstanding.
func (p *Pile) Requested() Suit {
	return p.requested
}

// Matches reports whether c may legally be played on the pile.
// A whot card always matches. While a suit request is outstanding, only that
// suit (or another whot) matches; otherwise same suit or same number matches.
func (p *Pile) Matches(c Card) bool {
	if c.IsWhot() {
		return true
	}
	if p.requested != "" {
		return c.Suit == p.requested
	}
	top := p.Top()
	if top.IsWhot() {
		// Starter or un-requested whot on top: anything goes.
		return true
	}
	return c.Suit == top.Suit || c.Number == top.Number
}

// Push places c on top of the pile. Playing a shaped card clears any
// outstanding suit request; a whot card with a request sets it.
//
// Postcondition: Top() == c.
func (p *Pile) Push(c Card, requested Suit) {
	p.cards = append(p.cards, c)
	if c.IsWhot() {
		p.requested = requested
	} else {
		p.requested = ""
	}
}

// Reclaim removes and returns every card except the top, for reshuffling
// into an exhausted market.
//
// Postcondition: The pile holds exactly its former top card.
func (p *Pile) Reclaim() []Card {
	if len(p.cards) <= 1 {
		return nil
	}
	reclaimed := make([]Card, len(p.cards)-1)
	copy(reclaimed, p.cards[:len(p.cards)-1])
	p.cards = []Card{p.Top()}
	return reclaimed
}

// Size returns the number of cards on the pile.
func (p *Pile) Size() int {
	return len(p.cards)
}
