// Package runtime owns the relay's shared in-memory state: the room
// membership cache, the presence map, and the typing registry. It
// routes commands to per-room workers without containing wire or
// storage logic.
package runtime

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
)

type set map[string]struct{}

// Registry is the live membership cache. It never contains a session
// ID without a corresponding registered sink: Register adds the sink,
// UnsubscribeAll removes every trace on disconnect, unconditionally.
type Registry struct {
	mu             sync.RWMutex
	sessions       map[string]contract.EventSink
	roomMembers    map[domain.RoomID]set
	projectMembers map[domain.ProjectID]set
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:       make(map[string]contract.EventSink),
		roomMembers:    make(map[domain.RoomID]set),
		projectMembers: make(map[domain.ProjectID]set),
	}
}

// Register records a session's delivery endpoint. It must be called
// before any Subscribe for that session.
func (r *Registry) Register(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = sink
}

// Subscribe assigns a registered session to a room. Rooms are
// initialized on the fly; sessions without a registered sink are
// ignored so the cache never references a dead connection.
func (r *Registry) Subscribe(sessionID string, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return
	}
	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(set)
	}
	r.roomMembers[roomID][sessionID] = struct{}{}
}

func (r *Registry) Unsubscribe(sessionID string, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFromRoom(sessionID, roomID)
}

// UnsubscribeAll removes the session from every room and project set
// and drops its sink. Idempotent; invoked on disconnect.
func (r *Registry) UnsubscribeAll(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)

	for roomID := range r.roomMembers {
		r.removeFromRoom(sessionID, roomID)
	}
	for projectID, members := range r.projectMembers {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.projectMembers, projectID)
		}
	}
}

// removeFromRoom requires r.mu held. Empty sets are removed entirely
// to prevent the map growing with dead rooms over time.
func (r *Registry) removeFromRoom(sessionID string, roomID domain.RoomID) {
	members, ok := r.roomMembers[roomID]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(r.roomMembers, roomID)
	}
}

func (r *Registry) TrackProject(sessionID string, projectID domain.ProjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return
	}
	if _, ok := r.projectMembers[projectID]; !ok {
		r.projectMembers[projectID] = make(set)
	}
	r.projectMembers[projectID][sessionID] = struct{}{}
}

// IsMember re-checks the live membership cache. Every mutating call
// goes through here; no user input determines room membership.
func (r *Registry) IsMember(roomID domain.RoomID, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return false
	}
	_, member := members[sessionID]
	return member
}

func (r *Registry) GetSink(sessionID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[sessionID]
	return sink, ok
}

// GetSinksForRoom resolves a room's member IDs into live sinks. The
// lock is released before the caller delivers anything, so the
// registry lock is never held during a session send.
func (r *Registry) GetSinksForRoom(roomID domain.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(r.roomMembers[roomID])
}

func (r *Registry) GetSinksForProject(projectID domain.ProjectID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(r.projectMembers[projectID])
}

// collect requires r.mu held (read or write).
func (r *Registry) collect(members set) []contract.EventSink {
	if len(members) == 0 {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(members))
	for sessionID := range members {
		if sink, ok := r.sessions[sessionID]; ok {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}
