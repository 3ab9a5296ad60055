package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticating
	StateConnected
	StateDisconnecting
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one live authenticated connection instance. A user may hold
// several sessions at once (one per device or tab). The connection manager
// owns the session exclusively and destroys it on disconnect.
type Session struct {
	ID          uuid.UUID
	UserID      string
	DisplayName string

	mu         sync.Mutex
	state      SessionState
	subscribed map[RoomID]struct{}
	projects   map[ProjectID]struct{}
	lastSeenAt time.Time
}

func NewSession(userID, displayName string) *Session {
	return &Session{
		ID:          uuid.New(),
		UserID:      userID,
		DisplayName: displayName,
		state:       StateConnecting,
		subscribed:  make(map[RoomID]struct{}),
		projects:    make(map[ProjectID]struct{}),
		lastSeenAt:  time.Now().UTC(),
	}
}

// TransitionTo moves the session through its lifecycle. Only forward
// transitions are legal; Disconnecting is reachable from any live state.
func (s *Session) TransitionTo(next SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next == s.state {
		return nil
	}
	allowed := next > s.state
	if !allowed {
		return fmt.Errorf("illegal session transition %s -> %s", s.state, next)
	}
	s.state = next
	return nil
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeenAt = time.Now().UTC()
}

func (s *Session) LastSeenAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeenAt
}

func (s *Session) Subscribe(room RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed[room] = struct{}{}
}

func (s *Session) Unsubscribe(room RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribed, room)
}

func (s *Session) IsSubscribed(room RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscribed[room]
	return ok
}

func (s *Session) Rooms() []RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]RoomID, 0, len(s.subscribed))
	for id := range s.subscribed {
		rooms = append(rooms, id)
	}
	return rooms
}

func (s *Session) JoinProject(project ProjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project] = struct{}{}
}

func (s *Session) InProject(project ProjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.projects[project]
	return ok
}

func (s *Session) Projects() []ProjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	projects := make([]ProjectID, 0, len(s.projects))
	for id := range s.projects {
		projects = append(projects, id)
	}
	return projects
}
