package whot

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/config"
	"github.com/cory-johannsen/parlor/internal/game/whot/engine"
)

// Conn is the transport surface a session needs from a bound connection.
// *ws.Conn satisfies it; tests substitute fakes.
type Conn interface {
	ID() string
	Send(v interface{}) error
	Close()
}

// binding records the role a connection was assigned.
type binding struct {
	role     string
	playerID int
}

// Session is one running whot game: the engine instance plus the roster of
// bound connections. All mutation is serialized behind mu; deferred pacing
// callbacks re-acquire the lock and revalidate state at fire time.
type Session struct {
	id       string
	registry *Registry
	cfg      config.WhotConfig
	logger   *zap.Logger
	game     *engine.Game

	mu         sync.Mutex
	players    []Conn
	listeners  []Conn
	bindings   map[string]binding
	byPlayerID map[int]Conn
	usernames  map[string]string
	subscribed bool
	started    bool

	// turnSeq increments every time the cursor is handed to a player, so a
	// stale inactivity timer can recognize it fired for a finished turn.
	turnSeq   uint64
	turnTimer *time.Timer
}

func newSession(id string, game *engine.Game, registry *Registry, cfg config.WhotConfig, logger *zap.Logger) *Session {
	return &Session{
		id:         id,
		registry:   registry,
		cfg:        cfg,
		logger:     logger,
		game:       game,
		bindings:   make(map[string]binding),
		byPlayerID: make(map[int]Conn),
		usernames:  make(map[string]string),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Bind assigns conn a role: the lowest vacant player slot while player
// slots remain, otherwise a listener slot. It acknowledges the binding,
// starts the game when the player roster is exactly full with no listener
// connected, and performs the one-time event-relay subscription.
//
// Postcondition: Re-binding an already-bound connection only resends the
// acknowledgment; it never reassigns a role, restarts the game, or
// subscribes twice.
func (s *Session) Bind(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, bound := s.bindings[conn.ID()]
	if !bound {
		if slot := s.vacantSlotLocked(); slot != 0 {
			b = binding{role: RolePlayer, playerID: slot}
			s.players = append(s.players, conn)
			s.byPlayerID[slot] = conn
		} else {
			b = binding{role: RoleListener, playerID: len(s.listeners) + 1}
			s.listeners = append(s.listeners, conn)
		}
		s.bindings[conn.ID()] = b
		s.registry.index(conn.ID(), s)
		s.logger.Info("connection bound",
			zap.String("conn", conn.ID()),
			zap.String("role", b.role),
			zap.Int("playerId", b.playerID))
	}

	s.sendLocked(conn, CreateAck{
		ID:        s.id,
		Message:   MsgGameCreate,
		PlayerID:  b.playerID,
		Type:      b.role,
		Players:   len(s.players),
		Listeners: len(s.listeners),
	})

	if !s.started && len(s.players) == s.game.Turn().Count() && len(s.listeners) == 0 {
		s.started = true
		s.broadcastLocked(StartNotice{Message: MsgGameStart, Pile: s.game.Pile().Top()})
		s.game.Turn().Each(func(p *engine.Player) {
			s.sendToPlayerLocked(p.ID(), HandNotice{Message: MsgPlayerHand, Hand: p.Hand()})
		})
		s.advanceTurnLocked()
	}

	if !s.subscribed {
		s.subscribed = true
		s.subscribeRelayLocked()
	}
}

// vacantSlotLocked returns the lowest unoccupied 1-based player slot, or 0
// when the player roster is full.
func (s *Session) vacantSlotLocked() int {
	if len(s.players) >= s.game.Turn().Count() {
		return 0
	}
	for slot := 1; slot <= s.game.Turn().Count(); slot++ {
		if _, taken := s.byPlayerID[slot]; !taken {
			return slot
		}
	}
	return 0
}

// subscribeRelayLocked registers the five engine event projections. The
// emitter fires synchronously inside engine calls already holding mu, so
// the handlers send without re-locking.
func (s *Session) subscribeRelayLocked() {
	single := func(msg string) engine.EventHandler {
		return func(players []*engine.Player) {
			if len(players) == 0 {
				return
			}
			p := s.projectLocked(players[0])
			s.broadcastLocked(RelayNotice{Message: msg, Player: &p})
		}
	}
	multi := func(msg string) engine.EventHandler {
		return func(players []*engine.Player) {
			out := make([]PlayerProjection, len(players))
			for i, p := range players {
				out[i] = s.projectLocked(p)
			}
			s.broadcastLocked(RelayNotice{Message: msg, Players: out})
		}
	}

	emitter := s.game.Emitter()
	emitter.On(engine.EventHoldOn, multi(string(engine.EventHoldOn)))
	emitter.On(engine.EventPickTwo, single(string(engine.EventPickTwo)))
	emitter.On(engine.EventPickThree, single(string(engine.EventPickThree)))
	emitter.On(engine.EventSuspension, multi(string(engine.EventSuspension)))
	emitter.On(engine.EventGeneralMarket, multi(string(engine.EventGeneralMarket)))
}

// projectLocked reduces a player to its public shape. Hands stay private.
func (s *Session) projectLocked(p *engine.Player) PlayerProjection {
	return PlayerProjection{
		ID:     p.ID(),
		ToPick: p.OutstandingDraws(),
		Turn:   p == s.game.Turn().Current(),
	}
}

// advanceTurnLocked drives the turn loop: announce the current player,
// hand them the turn if they can act, otherwise force one draw and move
// on. The loop is bounded by the participant count; exhausting it means no
// player can act this cycle, which is surfaced as a stalemate instead of
// looping forever.
func (s *Session) advanceTurnLocked() {
	turn := s.game.Turn()
	for i := 0; i < turn.Count(); i++ {
		p := turn.Current()
		s.broadcastLocked(CurrentPlayerNotice{Message: MsgCurrentPlayer, PlayerID: p.ID()})

		if p.CanPlay() {
			s.sendToPlayerLocked(p.ID(), TurnNotice{Message: MsgTurnSwitch})
			s.armTurnTimerLocked()
			return
		}

		p.Pick()
		s.sendToPlayerLocked(p.ID(), HandNotice{Message: MsgPlayerHand, Hand: p.Hand()})
		turn.Advance()
	}

	s.logger.Warn("turn loop exhausted, no player can act")
	s.broadcastLocked(TurnNotice{Message: MsgGameStalemate})
}

// armTurnTimerLocked schedules the inactivity fallback for the current
// player. Zero timeout disables it. The captured sequence number lets the
// callback detect that the turn already moved on.
func (s *Session) armTurnTimerLocked() {
	s.turnSeq++
	if s.cfg.TurnTimeout <= 0 {
		return
	}
	if s.turnTimer != nil {
		s.turnTimer.Stop()
	}
	seq := s.turnSeq
	s.turnTimer = time.AfterFunc(s.cfg.TurnTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if seq != s.turnSeq || !s.aliveLocked() {
			return
		}
		p := s.game.Turn().Current()
		s.logger.Info("turn timed out, forcing market draw", zap.Int("playerId", p.ID()))
		p.Pick()
		s.sendToPlayerLocked(p.ID(), HandNotice{Message: MsgPlayerHand, Hand: p.Hand()})
		s.game.Turn().Advance()
		s.advanceTurnLocked()
	})
}

// HandlePlay validates and applies a play-card action from conn.
//
// Rejections: out-of-turn senders, hand indexes outside bounds, cards that
// neither match the pile top nor carry a suit request, and engine-level
// refusals. Mismatch and refusal resynchronize the sender after the pacing
// delay; the turn does not advance on any rejection.
func (s *Session) HandlePlay(conn Conn, index *int, iNeed engine.Suit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.actingPlayerLocked(conn)
	if player == nil {
		s.sendLocked(conn, ErrorEnvelope{Error: "error:player-out-of-turn"})
		return
	}
	if index == nil || *index < 0 || *index >= player.HandSize() {
		s.sendLocked(conn, ErrorEnvelope{Error: "error:invalid-card-index"})
		return
	}
	idx := *index

	if !s.game.Pile().Matches(player.Hand()[idx]) && iNeed == "" {
		s.sendLocked(conn, ErrorEnvelope{Error: fmt.Sprintf("error:card-not-match-pile:%d", idx)})
		s.afterPacing(func() {
			s.sendLocked(conn, PileTopNotice{Message: MsgPileTop, Card: s.game.Pile().Top()})
			s.sendLocked(conn, TurnNotice{Message: MsgTurnSwitch})
		})
		return
	}

	card, err := player.Play(idx, iNeed)
	if err != nil {
		s.sendLocked(conn, ErrorEnvelope{Error: fmt.Sprintf("error:could-not-play-card:%d", idx)})
		s.afterPacing(func() {
			s.sendLocked(conn, TurnNotice{Message: MsgTurnSwitch})
		})
		return
	}

	s.broadcastExceptLocked(conn, PlayNotice{Message: MsgPlay, ID: player.ID(), Card: card})
	s.sendLocked(conn, HandNotice{Message: MsgPlayerHand, Hand: player.Hand()})
	s.game.Turn().Execute(s.game.Pile().Top())
	s.turnSeq++
	s.afterPacing(s.advanceTurnLocked)
}

// HandleMarketPick applies a draw-from-market action: after the pacing
// delay the sender receives the drawn cards and their updated hand, the
// cursor advances, and the turn loop resumes.
func (s *Session) HandleMarketPick(conn Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.actingPlayerLocked(conn) == nil {
		s.sendLocked(conn, ErrorEnvelope{Error: "error:player-out-of-turn"})
		return
	}

	s.turnSeq++
	s.afterPacing(func() {
		// Revalidated at fire time: the sender must still hold the turn.
		player := s.actingPlayerLocked(conn)
		if player == nil {
			return
		}
		cards := player.Pick()
		s.sendLocked(conn, MarketPickNotice{Message: MsgMarketPick, Cards: cards})
		s.sendLocked(conn, HandNotice{Message: MsgPlayerHand, Hand: player.Hand()})
		s.game.Turn().Advance()
		s.advanceTurnLocked()
	})
}

// HandleInfo stores the sender's username and broadcasts the roster
// usernames to the player connections.
func (s *Session) HandleInfo(conn Conn, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usernames[conn.ID()] = username
	b := s.bindings[conn.ID()]

	names := func(conns []Conn) []string {
		out := make([]string, len(conns))
		for i, c := range conns {
			out[i] = s.usernames[c.ID()]
		}
		return out
	}

	notice := InfoNotice{
		ID:        s.id,
		Message:   MsgGameInfo,
		PlayerID:  b.playerID,
		Type:      b.role,
		Players:   names(s.players),
		Listeners: names(s.listeners),
	}
	for _, c := range s.players {
		s.sendLocked(c, notice)
	}
}

// Disconnect removes conn from the roster and the reverse index. A session
// whose roster empties after game start is torn down.
func (s *Session) Disconnect(conn Conn) {
	s.mu.Lock()

	b, bound := s.bindings[conn.ID()]
	if !bound {
		s.mu.Unlock()
		return
	}
	delete(s.bindings, conn.ID())
	delete(s.usernames, conn.ID())
	s.registry.unindex(conn.ID())

	if b.role == RolePlayer {
		s.players = removeConn(s.players, conn)
		delete(s.byPlayerID, b.playerID)
	} else {
		s.listeners = removeConn(s.listeners, conn)
	}
	s.logger.Info("connection unbound",
		zap.String("conn", conn.ID()),
		zap.String("role", b.role))

	empty := len(s.players) == 0 && len(s.listeners) == 0
	teardown := empty && s.started
	if teardown && s.turnTimer != nil {
		s.turnTimer.Stop()
	}
	s.mu.Unlock()

	if teardown {
		s.registry.Remove(s.id)
	}
}

// actingPlayerLocked returns the engine player for conn only when conn is
// a player connection holding the current turn.
func (s *Session) actingPlayerLocked(conn Conn) *engine.Player {
	b, bound := s.bindings[conn.ID()]
	if !bound || b.role != RolePlayer {
		return nil
	}
	current := s.game.Turn().Current()
	if current.ID() != b.playerID {
		return nil
	}
	return current
}

// aliveLocked reports whether the session is still registered.
func (s *Session) aliveLocked() bool {
	registered, ok := s.registry.Get(s.id)
	return ok && registered == s
}

// afterPacing defers fn by the configured pacing delay, re-acquiring the
// session lock and skipping the callback when the session is gone. A zero
// delay runs fn inline, which keeps tests deterministic.
func (s *Session) afterPacing(fn func()) {
	if s.cfg.PacingDelay <= 0 {
		fn()
		return
	}
	time.AfterFunc(s.cfg.PacingDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.aliveLocked() {
			return
		}
		fn()
	})
}

// sendLocked delivers v to one connection, logging delivery failures
// without disturbing the session.
func (s *Session) sendLocked(conn Conn, v interface{}) {
	if err := conn.Send(v); err != nil {
		s.logger.Warn("send failed",
			zap.String("conn", conn.ID()),
			zap.Error(err))
	}
}

// sendToPlayerLocked delivers v to the connection bound to an engine
// player id, if one is connected.
func (s *Session) sendToPlayerLocked(playerID int, v interface{}) {
	if conn, ok := s.byPlayerID[playerID]; ok {
		s.sendLocked(conn, v)
	}
}

// broadcastLocked delivers v to every bound connection, players and
// listeners alike.
func (s *Session) broadcastLocked(v interface{}) {
	for _, c := range s.players {
		s.sendLocked(c, v)
	}
	for _, c := range s.listeners {
		s.sendLocked(c, v)
	}
}

// broadcastExceptLocked delivers v to every bound connection except skip.
func (s *Session) broadcastExceptLocked(skip Conn, v interface{}) {
	for _, c := range s.players {
		if c.ID() != skip.ID() {
			s.sendLocked(c, v)
		}
	}
	for _, c := range s.listeners {
		if c.ID() != skip.ID() {
			s.sendLocked(c, v)
		}
	}
}

func removeConn(conns []Conn, target Conn) []Conn {
	out := conns[:0]
	for _, c := range conns {
		if c.ID() != target.ID() {
			out = append(out, c)
		}
	}
	return out
}
