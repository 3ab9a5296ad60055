package runtime

import (
	"sync"
	"time"

	"chat-relay/domain"
)

// userPresence reference-counts the live sessions of one user inside
// one project. Only the 0->1 and 1->0 transitions are observable to
// other clients, which prevents duplicate-tab flapping.
type userPresence struct {
	displayName string
	onlineSince time.Time
	sessions    map[string]time.Time
}

// PresenceTracker holds the per-project online sets. Purely ephemeral:
// lost and rebuilt on process restart as clients reconnect.
type PresenceTracker struct {
	mu      sync.RWMutex
	entries map[domain.ProjectID]map[string]*userPresence
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{entries: make(map[domain.ProjectID]map[string]*userPresence)}
}

// MarkOnline records a session for (project, user) and reports whether
// the user just became online, i.e. this was their first live session
// in the project. Only then does the caller broadcast user_online.
func (p *PresenceTracker) MarkOnline(projectID domain.ProjectID, userID, displayName, sessionID string) (domain.PresenceUser, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, ok := p.entries[projectID]
	if !ok {
		users = make(map[string]*userPresence)
		p.entries[projectID] = users
	}

	now := time.Now().UTC()
	presence, ok := users[userID]
	if !ok {
		presence = &userPresence{
			displayName: displayName,
			onlineSince: now,
			sessions:    make(map[string]time.Time),
		}
		users[userID] = presence
	}

	_, already := presence.sessions[sessionID]
	presence.sessions[sessionID] = now

	becameOnline := !already && len(presence.sessions) == 1
	return domain.PresenceUser{
		UserID:      userID,
		DisplayName: presence.displayName,
		OnlineSince: presence.onlineSince,
	}, becameOnline
}

// MarkOffline drops one session and reports whether the user went
// fully offline in the project. Removing one of several sessions never
// reports a transition.
func (p *PresenceTracker) MarkOffline(projectID domain.ProjectID, userID, sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, ok := p.entries[projectID]
	if !ok {
		return false
	}
	presence, ok := users[userID]
	if !ok {
		return false
	}
	if _, ok := presence.sessions[sessionID]; !ok {
		return false
	}

	delete(presence.sessions, sessionID)
	if len(presence.sessions) > 0 {
		return false
	}

	delete(users, userID)
	if len(users) == 0 {
		delete(p.entries, projectID)
	}
	return true
}

func (p *PresenceTracker) OnlineUsers(projectID domain.ProjectID) []domain.PresenceUser {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := p.entries[projectID]
	online := make([]domain.PresenceUser, 0, len(users))
	for userID, presence := range users {
		online = append(online, domain.PresenceUser{
			UserID:      userID,
			DisplayName: presence.displayName,
			OnlineSince: presence.onlineSince,
		})
	}
	return online
}
