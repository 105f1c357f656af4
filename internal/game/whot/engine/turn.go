package engine

// Turn is the cursor over the player ring. Only Advance and Execute move it;
// the session layer queries it but never mutates it directly.
type Turn struct {
	players []*Player
	index   int
	emitter *Emitter
}

// Current returns the player whose turn it is.
func (t *Turn) Current() *Player {
	return t.players[t.index]
}

// Count returns the number of players in the ring.
func (t *Turn) Count() int {
	return len(t.players)
}

// Player returns the player with the given 1-based id, or nil.
func (t *Turn) Player(id int) *Player {
	if id < 1 || id > len(t.players) {
		return nil
	}
	return t.players[id-1]
}

// Each calls fn for every player in ring order.
func (t *Turn) Each(fn func(p *Player)) {
	for _, p := range t.players {
		fn(p)
	}
}

// Advance moves the cursor to the next player.
func (t *Turn) Advance() {
	t.index = (t.index + 1) % len(t.players)
}

// Execute applies the post-play effect of the card just played (the pile
// top) and positions the cursor for the next cycle.
//
// Effects, relative to the player who just played:
//   - hold-on / general-market: that player retains the turn; every other
//     player is held (general market additionally forces each of them to
//     draw one card immediately).
//   - pick-two / pick-three: the next player's forced-draw count grows by
//     two or three and the cursor advances to them.
//   - suspension: the next player is skipped; the cursor lands past them.
//   - anything else (whot included): the cursor advances normally.
//
// Postcondition: Emits the matching event with the affected players before
// returning.
func (t *Turn) Execute(top Card) {
	switch top.Move() {
	case MoveHoldOn:
		t.emitter.emit(EventHoldOn, t.others())
	case MovePickTwo:
		t.Advance()
		t.Current().addToPick(2)
		t.emitter.emit(EventPickTwo, []*Player{t.Current()})
	case MovePickThree:
		t.Advance()
		t.Current().addToPick(3)
		t.emitter.emit(EventPickThree, []*Player{t.Current()})
	case MoveSuspension:
		t.Advance()
		skipped := t.Current()
		t.Advance()
		t.emitter.emit(EventSuspension, []*Player{skipped})
	case MoveGeneralMarket:
		affected := t.others()
		for _, p := range affected {
			p.drawOne()
		}
		t.emitter.emit(EventGeneralMarket, affected)
	default:
		t.Advance()
	}
}

// others returns every player except the current one, in ring order.
func (t *Turn) others() []*Player {
	out := make([]*Player, 0, len(t.players)-1)
	for i := 1; i < len(t.players); i++ {
		out = append(out, t.players[(t.index+i)%len(t.players)])
	}
	return out
}
