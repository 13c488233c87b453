package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// GeocodeProvider resolves coordinates into a locality name. It is the only
// blocking collaborator of a session; lookups run on their own goroutine and
// never hold a registry or session lock while in flight.
type GeocodeProvider interface {
	Lookup(ctx context.Context, lat, lon float64) (string, error)
}

// Notifier receives session outcomes that complete asynchronously. The
// transport layer implements it and performs the actual delivery; a session
// never writes to the network.
type Notifier interface {
	JoinedRoom(to SessionID, room RoomID, count int)
	CountChanged(to []SessionID, count int)
	SessionError(to SessionID, err error)
}

// State is the lifecycle phase of a session.
type State int

const (
	StateConnected State = iota
	StateAwaitingGeocode
	StateJoined
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAwaitingGeocode:
		return "awaiting_geocode"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the per-connection state machine. Events for one session arrive
// in order from its transport goroutine, but the geocode result lands from a
// separate goroutine, so all state transitions go through the mutex.
type Session struct {
	id       SessionID
	registry *Registry
	provider GeocodeProvider
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time
	log      *slog.Logger

	mu    sync.Mutex
	state State
	room  RoomID
	// attempt numbers each geocode submission so that a result arriving
	// after a disconnect or a newer submission is discarded instead of
	// committing a stale join.
	attempt uint64
}

func newSession(id SessionID, registry *Registry, provider GeocodeProvider,
	notifier Notifier, timeout time.Duration, log *slog.Logger) *Session {
	return &Session{
		id:       id,
		registry: registry,
		provider: provider,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
		log:      log.With("session", string(id)),
		state:    StateConnected,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() SessionID {
	return s.id
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Room returns the joined room, if any.
func (s *Session) Room() (RoomID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.state == StateJoined
}

// SubmitCoordinates validates the coordinates and starts an asynchronous
// geocode lookup. Validation failures are returned before the provider is
// ever called. On provider failure or an empty result set the session
// returns to Connected and the notifier receives ErrLocationUnavailable, so
// the client may retry; the connection is never torn down for a failed
// lookup.
func (s *Session) SubmitCoordinates(ctx context.Context, lat, lon float64) error {
	coord, err := NewCoordinate(lat, lon)
	if err != nil {
		return err
	}

	s.mu.Lock()
	switch s.state {
	case StateDisconnected:
		s.mu.Unlock()
		return ErrSessionClosed
	case StateAwaitingGeocode, StateJoined:
		s.mu.Unlock()
		return ErrAlreadyJoined
	}
	s.state = StateAwaitingGeocode
	s.attempt++
	attempt := s.attempt
	s.mu.Unlock()

	go s.resolveAndJoin(ctx, attempt, coord)
	return nil
}

func (s *Session) resolveAndJoin(ctx context.Context, attempt uint64, coord Coordinate) {
	lookupCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	locality, err := s.provider.Lookup(lookupCtx, coord.Latitude, coord.Longitude)

	s.mu.Lock()
	if s.state != StateAwaitingGeocode || s.attempt != attempt {
		s.mu.Unlock()
		s.log.Debug("discarding stale geocode result")
		return
	}

	if err != nil {
		s.state = StateConnected
		s.mu.Unlock()
		s.log.Warn("geocode lookup failed", "error", err)
		s.notifier.SessionError(s.id, ErrLocationUnavailable)
		return
	}

	room := Resolve(locality)
	count, err := s.registry.Join(s.id, room)
	if err != nil {
		s.state = StateConnected
		s.mu.Unlock()
		s.log.Error("registry join failed", "room", string(room), "error", err)
		s.notifier.SessionError(s.id, ErrLocationUnavailable)
		return
	}
	s.state = StateJoined
	s.room = room
	s.mu.Unlock()

	s.log.Info("session joined room", "room", string(room), "count", count)
	s.notifier.JoinedRoom(s.id, room, count)
	s.notifier.CountChanged(s.registry.Members(room), count)
}

// SendMessage validates the text and returns the canonical message together
// with the room's current member set, sender included. The caller delivers
// the message to each recipient.
func (s *Session) SendMessage(text string) (Message, []SessionID, error) {
	s.mu.Lock()
	if s.state != StateJoined {
		s.mu.Unlock()
		return Message{}, nil, ErrNotJoined
	}
	room := s.room
	s.mu.Unlock()

	msg, err := NewMessage(text, s.now())
	if err != nil {
		return Message{}, nil, err
	}

	recipients, err := s.registry.Broadcast(room, msg)
	if err != nil {
		return Message{}, nil, err
	}
	return msg, recipients, nil
}

// Disconnect transitions the session to its terminal state and removes it
// from its room exactly once, regardless of how many times the transport
// fires the disconnect signal. It returns the left room, the remaining
// members and the updated count so the caller can always emit a count
// update.
func (s *Session) Disconnect() (RoomID, []SessionID, int) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return "", nil, 0
	}
	joined := s.state == StateJoined
	room := s.room
	s.state = StateDisconnected
	s.room = ""
	s.mu.Unlock()

	if !joined {
		return "", nil, 0
	}

	count, err := s.registry.Leave(s.id, room)
	if err != nil {
		s.log.Error("registry leave failed", "room", string(room), "error", err)
		return room, nil, 0
	}
	s.log.Info("session left room", "room", string(room), "count", count)
	return room, s.registry.Members(room), count
}
