package draughts

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	id string

	mu   sync.Mutex
	sent []interface{}
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) messages() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func (f *fakeConn) lastError() (ErrorNotice, bool) {
	for _, m := range f.messages() {
		if env, ok := m.(ErrorNotice); ok {
			return env, true
		}
	}
	return ErrorNotice{}, false
}

func createdGameID(t *testing.T, c *fakeConn) string {
	t.Helper()
	for _, m := range c.messages() {
		if env, ok := m.(GameCreatedNotice); ok {
			return env.GameID
		}
	}
	t.Fatal("no gameCreated notice")
	return ""
}

func newTestBroker() *Broker {
	return NewBroker(zap.NewNop())
}

func TestBroker_CreateGame(t *testing.T) {
	b := newTestBroker()
	c := newFakeConn("a")

	b.CreateGame(c, "")
	id := createdGameID(t, c)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, b.RoomCount())
	assert.Equal(t, DefaultGameType, b.rooms[id].gameType)
}

func TestBroker_CreateWhileInRoomRejected(t *testing.T) {
	b := newTestBroker()
	c := newFakeConn("a")

	b.CreateGame(c, "")
	c.reset()
	b.CreateGame(c, "")

	env, ok := c.lastError()
	require.True(t, ok)
	assert.Equal(t, "You are already in the game!", env.Message)
	assert.Equal(t, 1, b.RoomCount())
}

func TestBroker_JoinUnknownGame(t *testing.T) {
	b := newTestBroker()
	c := newFakeConn("a")

	b.JoinGame(c, "missing")
	env, ok := c.lastError()
	require.True(t, ok)
	assert.Equal(t, "Game not found!", env.Message)
}

func TestBroker_JoinOwnGameRejected(t *testing.T) {
	b := newTestBroker()
	c := newFakeConn("a")

	b.CreateGame(c, "")
	id := createdGameID(t, c)
	c.reset()

	b.JoinGame(c, id)
	env, ok := c.lastError()
	require.True(t, ok)
	assert.Equal(t, "You are already in the game!", env.Message)
	assert.Len(t, b.rooms[id].members, 1)
}

func TestBroker_JoinStartsGame(t *testing.T) {
	b := newTestBroker()
	a := newFakeConn("a")
	c := newFakeConn("b")

	b.CreateGame(a, "")
	id := createdGameID(t, a)
	a.reset()

	b.JoinGame(c, id)

	joined := func(conn *fakeConn) (GameJoinedNotice, bool) {
		for _, m := range conn.messages() {
			if env, ok := m.(GameJoinedNotice); ok {
				return env, true
			}
		}
		return GameJoinedNotice{}, false
	}
	start := func(conn *fakeConn) (StartNotice, bool) {
		for _, m := range conn.messages() {
			if env, ok := m.(StartNotice); ok {
				return env, true
			}
		}
		return StartNotice{}, false
	}

	ja, ok := joined(a)
	require.True(t, ok)
	assert.Equal(t, 1, ja.PlayerNumber)
	jc, ok := joined(c)
	require.True(t, ok)
	assert.Equal(t, 2, jc.PlayerNumber)

	sa, ok := start(a)
	require.True(t, ok)
	assert.True(t, sa.YourTurn, "first-joined member holds the opening turn")
	sc, ok := start(c)
	require.True(t, ok)
	assert.False(t, sc.YourTurn)

	assert.True(t, b.rooms[id].started)
}

func TestBroker_JoinFullRoomNeverMutates(t *testing.T) {
	b := newTestBroker()
	a := newFakeConn("a")
	c := newFakeConn("b")
	d := newFakeConn("c")

	b.CreateGame(a, "")
	id := createdGameID(t, a)
	b.JoinGame(c, id)

	before := make([]Conn, len(b.rooms[id].members))
	copy(before, b.rooms[id].members)

	b.JoinGame(d, id)
	env, ok := d.lastError()
	require.True(t, ok)
	assert.Equal(t, "Game full!", env.Message)
	assert.Equal(t, before, b.rooms[id].members)
	_, in := b.byConn[d.ID()]
	assert.False(t, in)
}

func TestBroker_ListGamesFiltersStartedAndType(t *testing.T) {
	b := newTestBroker()
	a := newFakeConn("a")
	c := newFakeConn("b")
	d := newFakeConn("c")
	lister := newFakeConn("lister")

	b.CreateGame(a, "draughts")
	openID := createdGameID(t, a)

	b.CreateGame(c, "draughts")
	startedID := createdGameID(t, c)
	b.JoinGame(d, startedID)

	b.ListGames(lister, "")

	var listing *AvailableGamesNotice
	for _, m := range lister.messages() {
		if env, ok := m.(AvailableGamesNotice); ok {
			listing = &env
		}
	}
	require.NotNil(t, listing)
	require.Len(t, listing.Games, 1)
	assert.Equal(t, openID, listing.Games[0].GameID)
	assert.Equal(t, "draughts", listing.Games[0].GameType)
}

func TestBroker_ListGamesOtherTypeExcluded(t *testing.T) {
	b := newTestBroker()
	a := newFakeConn("a")
	lister := newFakeConn("lister")

	b.CreateGame(a, "chess")
	b.ListGames(lister, "draughts")

	var listing *AvailableGamesNotice
	for _, m := range lister.messages() {
		if env, ok := m.(AvailableGamesNotice); ok {
			listing = &env
		}
	}
	require.NotNil(t, listing)
	assert.Empty(t, listing.Games)
}

func TestBroker_MoveRelaysSnapshot(t *testing.T) {
	b := newTestBroker()
	a := newFakeConn("a")
	c := newFakeConn("b")

	b.CreateGame(a, "")
	id := createdGameID(t, a)
	b.JoinGame(c, id)
	a.reset()
	c.reset()

	move := json.RawMessage(`{"from":[2,1],"to":[3,2]}`)
	state := json.RawMessage(`[[0,1],[1,0]]`)
	b.Move(c, move, state)

	var relayed *OpponentMoveNotice
	for _, m := range a.messages() {
		if env, ok := m.(OpponentMoveNotice); ok {
			relayed = &env
		}
	}
	require.NotNil(t, relayed)
	assert.Equal(t, move, relayed.Move)
	assert.Equal(t, state, relayed.GameState)

	var confirmed *MoveConfirmedNotice
	for _, m := range c.messages() {
		if env, ok := m.(MoveConfirmedNotice); ok {
			confirmed = &env
		}
	}
	require.NotNil(t, confirmed)
	assert.Equal(t, move, confirmed.Move)

	assert.Equal(t, state, b.rooms[id].snapshot, "snapshot is stored as sent")
}

func TestBroker_MoveOutsideRoomIgnored(t *testing.T) {
	b := newTestBroker()
	c := newFakeConn("a")
	b.Move(c, json.RawMessage(`{}`), json.RawMessage(`[]`))
	assert.Empty(t, c.messages())
}

func TestBroker_ExitGame(t *testing.T) {
	b := newTestBroker()
	a := newFakeConn("a")
	c := newFakeConn("b")

	b.CreateGame(a, "")
	id := createdGameID(t, a)
	b.JoinGame(c, id)
	a.reset()
	c.reset()

	b.ExitGame(c)

	exited := false
	for _, m := range c.messages() {
		if env, ok := m.(SimpleNotice); ok && env.Type == MsgGameExited {
			exited = true
		}
	}
	assert.True(t, exited)

	left := false
	for _, m := range a.messages() {
		if env, ok := m.(SimpleNotice); ok && env.Type == MsgOpponentLeft {
			left = true
		}
	}
	assert.True(t, left)
	assert.Len(t, b.rooms[id].members, 1)

	b.ExitGame(a)
	assert.Equal(t, 0, b.RoomCount(), "empty room is destroyed")
}

func TestBroker_DisconnectCleansUpSilently(t *testing.T) {
	b := newTestBroker()
	a := newFakeConn("a")

	b.CreateGame(a, "")
	a.reset()
	b.Disconnect(a)

	assert.Empty(t, a.messages(), "implicit cleanup sends nothing to the leaver")
	assert.Equal(t, 0, b.RoomCount())
	_, in := b.byConn[a.ID()]
	assert.False(t, in)
}

// TestBroker_FullScenario walks the whole happy path: create, join, move,
// disconnect.
func TestBroker_FullScenario(t *testing.T) {
	b := newTestBroker()
	a := newFakeConn("conn-a")
	bb := newFakeConn("conn-b")

	b.CreateGame(a, "draughts")
	id := createdGameID(t, a)
	require.NotEmpty(t, id)

	b.JoinGame(bb, id)

	var sa, sb *StartNotice
	for _, m := range a.messages() {
		if env, ok := m.(StartNotice); ok {
			sa = &env
		}
	}
	for _, m := range bb.messages() {
		if env, ok := m.(StartNotice); ok {
			sb = &env
		}
	}
	require.NotNil(t, sa)
	require.NotNil(t, sb)
	assert.True(t, sa.YourTurn)
	assert.False(t, sb.YourTurn)

	a.reset()
	bb.reset()
	move := json.RawMessage(`"m"`)
	state := json.RawMessage(`"s"`)
	b.Move(bb, move, state)

	var om *OpponentMoveNotice
	for _, m := range a.messages() {
		if env, ok := m.(OpponentMoveNotice); ok {
			om = &env
		}
	}
	require.NotNil(t, om)
	assert.Equal(t, move, om.Move)
	assert.Equal(t, state, om.GameState)

	confirmed := false
	for _, m := range bb.messages() {
		if _, ok := m.(MoveConfirmedNotice); ok {
			confirmed = true
		}
	}
	assert.True(t, confirmed)

	bb.reset()
	b.Disconnect(a)

	left := false
	for _, m := range bb.messages() {
		if env, ok := m.(SimpleNotice); ok && env.Type == MsgOpponentLeft {
			left = true
		}
	}
	assert.True(t, left)
	require.Contains(t, b.rooms, id)
	assert.Len(t, b.rooms[id].members, 1)
}
