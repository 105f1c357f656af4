package engine

import "math/rand"

// Market is the face-down draw pile. When exhausted it replenishes itself
// from the discard pile (minus the top card), so a draw only fails when no
// cards exist outside the players' hands and the pile top.
type Market struct {
	cards []Card
	pile  *Pile
	rng   *rand.Rand
}

// NewMarket creates a market over the remaining deck cards.
//
// Precondition: pile and rng must be non-nil.
func NewMarket(cards []Card, pile *Pile, rng *rand.Rand) *Market {
	return &Market{cards: cards, pile: pile, rng: rng}
}

// Pick removes and returns up to n cards from the market, replenishing from
// the discard pile when it runs dry.
//
// Precondition: n >= 1.
// Postcondition: Returns between 0 and n cards; 0 only when the market and
// the reclaimable pile are both empty.
func (m *Market) Pick(n int) []Card {
	picked := make([]Card, 0, n)
	for len(picked) < n {
		if len(m.cards) == 0 {
			m.replenish()
			if len(m.cards) == 0 {
				break
			}
		}
		last := len(m.cards) - 1
		picked = append(picked, m.cards[last])
		m.cards = m.cards[:last]
	}
	return picked
}

// replenish reshuffles the discard pile (minus its top) into the market.
func (m *Market) replenish() {
	reclaimed := m.pile.Reclaim()
	if len(reclaimed) == 0 {
		return
	}
	m.rng.Shuffle(len(reclaimed), func(i, j int) {
		reclaimed[i], reclaimed[j] = reclaimed[j], reclaimed[i]
	})
	m.cards = reclaimed
}

// Size returns the number of cards currently in the market.
func (m *Market) Size() int {
	return len(m.cards)
}
