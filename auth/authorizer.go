package auth

import (
	"context"
	"sync"

	"chat-relay/domain"
)

// ProjectDirectory implements the project membership check from grants
// asserted by validated tokens. The identity collaborator signs the
// project list into each token; the directory records it on successful
// authentication so later membership checks never trust client input.
type ProjectDirectory struct {
	mu     sync.RWMutex
	grants map[string]map[domain.ProjectID]struct{}
}

func NewProjectDirectory() *ProjectDirectory {
	return &ProjectDirectory{grants: make(map[string]map[domain.ProjectID]struct{})}
}

// Grant records the memberships carried by a freshly validated token.
// Re-authentication replaces the previous grant set for the user.
func (d *ProjectDirectory) Grant(userID string, projects []domain.ProjectID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set := make(map[domain.ProjectID]struct{}, len(projects))
	for _, p := range projects {
		set[p] = struct{}{}
	}
	d.grants[userID] = set
}

func (d *ProjectDirectory) IsMember(_ context.Context, userID string, projectID domain.ProjectID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	projects, ok := d.grants[userID]
	if !ok {
		return false, nil
	}
	_, member := projects[projectID]
	return member, nil
}
