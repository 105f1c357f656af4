package ws

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/config"
)

// GameHandler processes the lifecycle of connections routed to one game
// endpoint. Implementations serialize their own state; the acceptor calls
// HandleMessage from the connection's read goroutine.
type GameHandler interface {
	// HandleOpen is called once after the WebSocket handshake completes.
	// path is the full request path, including any trailing session id.
	HandleOpen(conn *Conn, path string)
	// HandleMessage is called for each inbound message payload.
	HandleMessage(conn *Conn, data []byte)
	// HandleClose is called exactly once when the connection ends, whether
	// the client left voluntarily or the socket failed.
	HandleClose(conn *Conn)
}

// Acceptor owns the HTTP listener, upgrades WebSocket connections, and
// dispatches them to the GameHandler registered for the first path segment.
// Requests for unregistered prefixes terminate the connection attempt.
type Acceptor struct {
	cfg    config.ServerConfig
	logger *zap.Logger

	upgrader websocket.Upgrader
	mux      *http.ServeMux
	handlers map[string]GameHandler

	server *http.Server
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// NewAcceptor creates a WebSocket acceptor with the given configuration.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns an Acceptor ready for Register/RegisterHTTP and ListenAndServe.
func NewAcceptor(cfg config.ServerConfig, logger *zap.Logger) *Acceptor {
	a := &Acceptor{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		handlers: make(map[string]GameHandler),
	}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.checkOrigin,
	}
	return a
}

// Register binds a GameHandler to a path prefix (first path segment,
// without slashes, e.g. "whot").
//
// Precondition: prefix must be non-empty; handler must be non-nil.
func (a *Acceptor) Register(prefix string, handler GameHandler) {
	a.handlers[prefix] = handler
}

// RegisterHTTP mounts a plain HTTP handler on the internal mux, for
// non-WebSocket surfaces such as session creation.
func (a *Acceptor) RegisterHTTP(pattern string, handler http.Handler) {
	a.mux.Handle(pattern, handler)
}

// ListenAndServe starts the HTTP listener and serves until Stop is called.
// This method blocks until the acceptor is stopped.
//
// Precondition: The acceptor must not already be running.
// Postcondition: The listener is closed when this method returns.
func (a *Acceptor) ListenAndServe() error {
	start := time.Now()

	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	a.listener = listener
	a.running = true
	a.server = &http.Server{Handler: http.HandlerFunc(a.dispatch)}
	server := a.server
	a.mu.Unlock()

	a.logger.Info("websocket acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Strings("endpoints", a.prefixes()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving on %s: %w", a.cfg.Addr(), err)
	}
	return nil
}

// Stop gracefully stops the acceptor, closing the listener and waiting
// for all active connections to finish.
//
// Postcondition: All connection goroutines have exited.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	server := a.server
	a.mu.Unlock()

	if server != nil {
		_ = server.Close()
	}
	a.wg.Wait()

	a.logger.Info("websocket acceptor stopped")
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// dispatch routes a request: WebSocket upgrades go to the GameHandler for
// the first path segment, everything else to the HTTP mux.
func (a *Acceptor) dispatch(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		a.mux.ServeHTTP(w, r)
		return
	}

	handler, ok := a.handlers[firstSegment(r.URL.Path)]
	if !ok {
		// Unknown prefix: terminate the attempt before upgrading.
		http.Error(w, "unknown endpoint", http.StatusNotFound)
		return
	}

	sock, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Debug("upgrade failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		return
	}

	conn := NewConn(sock, a.cfg, a.logger)
	a.logger.Info("client connected",
		zap.String("conn_id", conn.ID()),
		zap.String("remote_addr", conn.RemoteAddr()),
		zap.String("path", r.URL.Path),
	)

	a.wg.Add(1)
	go a.serveConn(conn, handler, r.URL.Path)
}

// serveConn runs one connection's lifecycle against its game handler.
func (a *Acceptor) serveConn(conn *Conn, handler GameHandler, path string) {
	defer a.wg.Done()
	start := time.Now()

	defer func() {
		// A panicking handler must not take the process down (faults are
		// recovered locally; the session continues).
		if rec := recover(); rec != nil {
			a.logger.Error("handler panic",
				zap.String("conn_id", conn.ID()),
				zap.Any("panic", rec),
			)
		}
		conn.Close()
		handler.HandleClose(conn)
		a.logger.Info("client disconnected",
			zap.String("conn_id", conn.ID()),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	handler.HandleOpen(conn, path)
	conn.readLoop(func(data []byte) {
		handler.HandleMessage(conn, data)
	})
}

// checkOrigin enforces the configured origin allowlist. An empty allowlist
// accepts every origin.
func (a *Acceptor) checkOrigin(r *http.Request) bool {
	if len(a.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range a.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func (a *Acceptor) prefixes() []string {
	out := make([]string, 0, len(a.handlers))
	for p := range a.handlers {
		out = append(out, p)
	}
	return out
}

// firstSegment returns the first path segment of p without slashes.
func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}
