package chat

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// SessionID identifies a connection session. The registry stores only ids,
// never session pointers, so ownership of sessions stays with the Manager.
type SessionID string

// Registry tracks which sessions are members of which rooms. Operations on
// the same room are serialized by that room's mutex; operations on different
// rooms proceed in parallel. The registry map lock is held only for map
// lookups and insert/delete, never across membership mutation.
type Registry struct {
	mu    sync.RWMutex
	rooms map[RoomID]*room
	log   *slog.Logger
}

type room struct {
	mu      sync.Mutex
	members map[SessionID]struct{}
	// gone marks a room that reached zero members and was unlinked from the
	// registry. A joiner holding a stale pointer must retry and create a
	// fresh room instead of resurrecting this one.
	gone bool
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		rooms: make(map[RoomID]*room),
		log:   log,
	}
}

func (r *Registry) lookup(id RoomID) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[id]
}

func (r *Registry) lookupOrCreate(id RoomID) *room {
	if rm := r.lookup(id); rm != nil {
		return rm
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[id]; ok {
		return rm
	}
	rm := &room{members: make(map[SessionID]struct{})}
	r.rooms[id] = rm
	r.log.Debug("room created", "room", string(id))
	return rm
}

// Join adds the session to the room, creating the room on first join, and
// returns the post-join member count. Joining a room the session is already
// a member of is a no-op that returns the current count.
func (r *Registry) Join(sid SessionID, id RoomID) (int, error) {
	if sid == "" || id == "" {
		return 0, ErrRegistryInternal
	}

	for {
		rm := r.lookupOrCreate(id)
		rm.mu.Lock()
		if rm.gone {
			rm.mu.Unlock()
			continue
		}
		rm.members[sid] = struct{}{}
		count := len(rm.members)
		rm.mu.Unlock()
		return count, nil
	}
}

// Leave removes the session if present and returns the post-leave member
// count. Leaving a room the session is not in is a no-op, which keeps
// disconnect cleanup idempotent. A room whose count reaches zero is deleted;
// a later Join recreates it from scratch.
func (r *Registry) Leave(sid SessionID, id RoomID) (int, error) {
	rm := r.lookup(id)
	if rm == nil {
		return 0, nil
	}

	rm.mu.Lock()
	delete(rm.members, sid)
	count := len(rm.members)
	if count == 0 {
		rm.gone = true
	}
	rm.mu.Unlock()

	if count == 0 {
		r.mu.Lock()
		if r.rooms[id] == rm {
			delete(r.rooms, id)
		}
		r.mu.Unlock()
		r.log.Debug("room deleted", "room", string(id))
	}
	return count, nil
}

// Broadcast returns the sessions that should receive the message: every
// current member of the room, sender included. The registry never delivers
// anything itself; the transport layer fans the payload out.
func (r *Registry) Broadcast(id RoomID, msg Message) ([]SessionID, error) {
	recipients := r.Members(id)
	r.log.Debug("broadcasting message",
		"room", string(id), "recipients", len(recipients), "chars", len(msg.Text))
	return recipients, nil
}

// Members returns a point-in-time snapshot of the room's member set, or nil
// for a room that does not exist.
func (r *Registry) Members(id RoomID) []SessionID {
	rm := r.lookup(id)
	if rm == nil {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.gone {
		return nil
	}
	return lo.Keys(rm.members)
}

// MemberCount reports the current occupancy of a room. A room that does not
// exist has a count of zero; that is not an error.
func (r *Registry) MemberCount(id RoomID) int {
	rm := r.lookup(id)
	if rm == nil {
		return 0
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.members)
}
