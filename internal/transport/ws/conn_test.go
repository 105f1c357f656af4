package ws

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConn_SendAfterCloseFails(t *testing.T) {
	h := &echoHandler{}
	var captured *Conn
	capture := &captureHandler{inner: h, onOpen: func(c *Conn) { captured = c }}
	a := startAcceptor(t, testServerConfig(), func(a *Acceptor) {
		a.Register("whot", capture)
	})

	sock := dial(t, a.Addr(), "/whot/game/abc")
	require.Eventually(t, func() bool { return captured != nil }, time.Second, 10*time.Millisecond)

	captured.Close()
	assert.True(t, captured.IsClosed())
	assert.Error(t, captured.Send(map[string]string{"message": "late"}))

	_ = sock.Close()
}

func TestConn_CloseIdempotent(t *testing.T) {
	var captured *Conn
	capture := &captureHandler{inner: &echoHandler{}, onOpen: func(c *Conn) { captured = c }}
	a := startAcceptor(t, testServerConfig(), func(a *Acceptor) {
		a.Register("whot", capture)
	})

	dial(t, a.Addr(), "/whot/game/abc")
	require.Eventually(t, func() bool { return captured != nil }, time.Second, 10*time.Millisecond)

	captured.Close()
	captured.Close()
	assert.True(t, captured.IsClosed())
}

func TestConn_SendUnmarshalableValue(t *testing.T) {
	var captured *Conn
	capture := &captureHandler{inner: &echoHandler{}, onOpen: func(c *Conn) { captured = c }}
	a := startAcceptor(t, testServerConfig(), func(a *Acceptor) {
		a.Register("whot", capture)
	})

	dial(t, a.Addr(), "/whot/game/abc")
	require.Eventually(t, func() bool { return captured != nil }, time.Second, 10*time.Millisecond)

	err := captured.Send(make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding envelope")
}

func TestConn_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	var conns []*Conn
	capture := &captureHandler{inner: &echoHandler{}, onOpen: func(c *Conn) { conns = append(conns, c) }}
	a := startAcceptor(t, testServerConfig(), func(a *Acceptor) {
		a.Register("whot", capture)
	})

	for i := 0; i < 4; i++ {
		dial(t, a.Addr(), fmt.Sprintf("/whot/game/g%d", i))
	}
	require.Eventually(t, func() bool { return len(conns) == 4 }, 2*time.Second, 10*time.Millisecond)

	for _, c := range conns {
		assert.False(t, seen[c.ID()], "duplicate conn id %s", c.ID())
		seen[c.ID()] = true
	}
}

// captureHandler wraps another handler and exposes the server-side Conn.
type captureHandler struct {
	inner  GameHandler
	onOpen func(c *Conn)
}

func (h *captureHandler) HandleOpen(conn *Conn, path string) {
	if h.onOpen != nil {
		h.onOpen(conn)
	}
	h.inner.HandleOpen(conn, path)
}

func (h *captureHandler) HandleMessage(conn *Conn, data []byte) { h.inner.HandleMessage(conn, data) }
func (h *captureHandler) HandleClose(conn *Conn)                { h.inner.HandleClose(conn) }

func TestNewConn_NoRateLimiterWhenDisabled(t *testing.T) {
	// allow() must always pass when rate limiting is disabled.
	c := &Conn{logger: zap.NewNop()}
	assert.True(t, c.allow())
}
