// Package httpapi is the thin request/response surface for session
// creation: clients create a whot session here, then connect to it over
// the WebSocket endpoint.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/game/whot"
)

// API serves the whot session-creation routes.
type API struct {
	registry *whot.Registry
	logger   *zap.Logger
}

// New creates the API over the given session registry.
func New(registry *whot.Registry, logger *zap.Logger) *API {
	return &API{registry: registry, logger: logger}
}

// Pattern is the route the API serves.
const Pattern = "/whot/games"

// Register installs the API routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.Handle(Pattern, a)
}

type createRequest struct {
	Players int `json:"players"`
}

type createResponse struct {
	ID string `json:"id"`
}

type listResponse struct {
	Games []string `json:"games"`
}

// ServeHTTP dispatches by method: POST creates a session, GET lists them.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cors(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		a.createGame(w, r)
	case http.MethodGet:
		a.listGames(w)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) createGame(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.Body != nil {
		// An empty or absent body falls back to the configured default.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	session, err := a.registry.Create(req.Players)
	if err != nil {
		a.logger.Error("session creation failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{ID: session.ID()})
}

func (a *API) listGames(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, listResponse{Games: a.registry.IDs()})
}

func cors(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
