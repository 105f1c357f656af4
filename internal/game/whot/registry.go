package whot

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/config"
	"github.com/cory-johannsen/parlor/internal/game/whot/engine"
)

// ErrSessionNotFound is returned by Get for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Registry owns every live whot session, keyed by id, plus the reverse
// index from connection id to owning session so message handlers never
// scan. Sessions are removed when their roster empties after game start.
type Registry struct {
	cfg    config.WhotConfig
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	byConn   map[string]*Session
}

// NewRegistry creates an empty registry.
//
// Precondition: logger must be non-nil.
func NewRegistry(cfg config.WhotConfig, logger *zap.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
		byConn:   make(map[string]*Session),
	}
}

// Create allocates a new session for the given player count and registers
// it under a fresh UUID. A non-positive count falls back to the configured
// default.
//
// Postcondition: Get(session.ID()) returns the session.
func (r *Registry) Create(players int) (*Session, error) {
	if players <= 0 {
		players = r.cfg.DefaultPlayers
	}
	game, err := engine.New(engine.Options{Players: players})
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := newSession(id, game, r, r.cfg, r.logger.With(zap.String("session", id)))

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("session created",
		zap.String("session", id),
		zap.Int("players", players))
	return s, nil
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// SessionFor returns the session that owns the given connection, if any.
func (r *Registry) SessionFor(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byConn[connID]
	return s, ok
}

// Remove deletes the session with the given id. Connections still indexed
// to it are unlinked.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	for connID, owner := range r.byConn {
		if owner == s {
			delete(r.byConn, connID)
		}
	}
	r.logger.Info("session removed", zap.String("session", id))
}

// IDs returns the ids of all live sessions.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// index records conn -> session for SessionFor lookups.
func (r *Registry) index(connID string, s *Session) {
	r.mu.Lock()
	r.byConn[connID] = s
	r.mu.Unlock()
}

// unindex drops a connection from the reverse index.
func (r *Registry) unindex(connID string) {
	r.mu.Lock()
	delete(r.byConn, connID)
	r.mu.Unlock()
}
