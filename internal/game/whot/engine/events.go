package engine

// Event names a game occurrence the session layer relays to participants.
type Event string

const (
	EventHoldOn        Event = "turn:holdon"
	EventPickTwo       Event = "turn:pick-two"
	EventPickThree     Event = "turn:pick-three"
	EventSuspension    Event = "turn:suspension"
	EventGeneralMarket Event = "turn:general-market"
)

// EventHandler receives the players affected by an event. Hold-on,
// suspension, and general-market carry multiple players; pick-two and
// pick-three carry exactly one.
type EventHandler func(players []*Player)

// Emitter dispatches engine events to registered handlers. It is not
// safe for concurrent use; the session layer serializes all engine access.
type Emitter struct {
	handlers map[Event][]EventHandler
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[Event][]EventHandler)}
}

// On registers a handler for the given event.
//
// Precondition: fn must be non-nil.
func (e *Emitter) On(event Event, fn EventHandler) {
	e.handlers[event] = append(e.handlers[event], fn)
}

// emit invokes all handlers registered for event.
func (e *Emitter) emit(event Event, players []*Player) {
	for _, fn := range e.handlers[event] {
		fn(players)
	}
}
