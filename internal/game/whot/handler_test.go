package whot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/game/whot/engine"
)

func newTestHandler(t *testing.T) (*Handler, *Registry) {
	t.Helper()
	registry := NewRegistry(testWhotConfig(), zap.NewNop())
	return NewHandler(registry, zap.NewNop()), registry
}

func TestHandler_OpenUnknownSession(t *testing.T) {
	h, _ := newTestHandler(t)
	conn := newFakeConn("c1")

	h.open(conn, "/whot/game/missing")

	env, ok := conn.lastError()
	require.True(t, ok)
	assert.Equal(t, `could not find a game with id "missing"`, env.Error)
	assert.True(t, conn.isClosed(), "unknown session must terminate the connection")
}

func TestHandler_OpenBindsSession(t *testing.T) {
	h, registry := newTestHandler(t)
	s, err := registry.Create(2)
	require.NoError(t, err)

	conn := newFakeConn("c1")
	h.open(conn, "/whot/game/"+s.ID())

	require.NotEmpty(t, conn.messages())
	ack, ok := conn.messages()[0].(CreateAck)
	require.True(t, ok)
	assert.Equal(t, MsgGameCreate, ack.Message)
	assert.Equal(t, s.ID(), ack.ID)
	assert.False(t, conn.isClosed())

	got, ok := registry.SessionFor(conn.ID())
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestHandler_MessageDispatch(t *testing.T) {
	h, registry := newTestHandler(t)
	s, err := registry.Create(2)
	require.NoError(t, err)

	c1 := newFakeConn("c1")
	c2 := newFakeConn("c2")
	h.open(c1, "/whot/game/"+s.ID())
	h.open(c2, "/whot/game/"+s.ID())

	currentID := s.game.Turn().Current().ID()
	var waiting *fakeConn
	for _, c := range []*fakeConn{c1, c2} {
		if s.bindings[c.ID()].playerID != currentID {
			waiting = c
		}
	}
	require.NotNil(t, waiting)

	waiting.reset()
	h.message(waiting, []byte(`{"message":"player:play","index":0}`))
	env, ok := waiting.lastError()
	require.True(t, ok)
	assert.Equal(t, "error:player-out-of-turn", env.Error)

	waiting.reset()
	h.message(waiting, []byte(`{"message":"market:pick"}`))
	env, ok = waiting.lastError()
	require.True(t, ok)
	assert.Equal(t, "error:player-out-of-turn", env.Error)

	h.message(c1, []byte(`{"message":"game:info","username":"ada"}`))
	var info *InfoNotice
	for _, m := range c1.messages() {
		if env, ok := m.(InfoNotice); ok {
			info = &env
		}
	}
	require.NotNil(t, info)
	assert.Contains(t, info.Players, "ada")
}

func TestHandler_MalformedEnvelopeDropped(t *testing.T) {
	h, registry := newTestHandler(t)
	s, err := registry.Create(2)
	require.NoError(t, err)

	conn := newFakeConn("c1")
	h.open(conn, "/whot/game/"+s.ID())
	conn.reset()

	h.message(conn, []byte(`{nope`))
	assert.Empty(t, conn.messages(), "malformed input is dropped, never answered")
	assert.False(t, conn.isClosed(), "malformed input must not kill the connection")

	_, ok := registry.SessionFor(conn.ID())
	assert.True(t, ok, "the session survives malformed input")
}

func TestHandler_UnknownDiscriminantIgnored(t *testing.T) {
	h, registry := newTestHandler(t)
	s, err := registry.Create(2)
	require.NoError(t, err)

	conn := newFakeConn("c1")
	h.open(conn, "/whot/game/"+s.ID())
	conn.reset()

	h.message(conn, []byte(`{"message":"time:travel"}`))
	assert.Empty(t, conn.messages())
}

func TestHandler_MessageFromUnboundConnIgnored(t *testing.T) {
	h, _ := newTestHandler(t)
	conn := newFakeConn("stranger")

	h.message(conn, []byte(`{"message":"market:pick"}`))
	assert.Empty(t, conn.messages())
}

func TestHandler_CloseUnbinds(t *testing.T) {
	h, registry := newTestHandler(t)
	s, err := registry.Create(2)
	require.NoError(t, err)

	conn := newFakeConn("c1")
	h.open(conn, "/whot/game/"+s.ID())
	h.closed(conn)

	_, ok := registry.SessionFor(conn.ID())
	assert.False(t, ok)
	assert.Empty(t, s.players)
}

func TestHandler_RoundTripEnvelope(t *testing.T) {
	// The inbound shape must survive a real JSON decode, index pointer
	// included.
	data, err := json.Marshal(map[string]interface{}{"message": MsgPlay, "index": 0, "iNeed": "star"})
	require.NoError(t, err)

	var msg ClientMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	require.NotNil(t, msg.Index)
	assert.Equal(t, 0, *msg.Index)
	assert.Equal(t, engine.SuitStar, msg.INeed)
}

func TestLastSegment(t *testing.T) {
	cases := map[string]string{
		"/whot/game/abc-123":  "abc-123",
		"/whot/game/abc-123/": "abc-123",
		"/abc":                "abc",
		"abc":                 "abc",
		"/":                   "",
	}
	for path, want := range cases {
		assert.Equal(t, want, lastSegment(path), "path %q", path)
	}
}
