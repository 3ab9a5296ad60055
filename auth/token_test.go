package auth

import (
	"context"
	"testing"
	"time"

	"chat-relay/domain"

	"github.com/stretchr/testify/require"
)

func TestTokenManager_GenerateAndValidate(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager("a_long_test_secret_for_hs256", "chat-relay", time.Hour)

	token, err := tm.Generate("user-42", "Alice", []string{"project-a", "project-b"})
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := tm.Validate(token)
	req.NoError(err)
	req.Equal("user-42", claims.UserID)
	req.Equal("Alice", claims.DisplayName)
	req.Equal([]domain.ProjectID{"project-a", "project-b"}, claims.GrantedProjects())
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager("a_long_test_secret_for_hs256", "chat-relay", -time.Minute)

	token, err := tm.Generate("user-42", "Alice", nil)
	req.NoError(err)

	_, err = tm.Validate(token)
	req.Error(err)
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenManager("issuer_secret_key_0123456789", "chat-relay", time.Hour)
	verifier := NewTokenManager("another_secret_key_0123456789", "chat-relay", time.Hour)

	token, err := issuer.Generate("user-42", "Alice", nil)
	req.NoError(err)

	_, err = verifier.Validate(token)
	req.Error(err)
}

func TestProjectDirectory_Membership(t *testing.T) {
	req := require.New(t)
	dir := NewProjectDirectory()
	ctx := context.Background()

	member, err := dir.IsMember(ctx, "user-42", "project-a")
	req.NoError(err)
	req.False(member)

	dir.Grant("user-42", []domain.ProjectID{"project-a"})

	member, err = dir.IsMember(ctx, "user-42", "project-a")
	req.NoError(err)
	req.True(member)

	member, err = dir.IsMember(ctx, "user-42", "project-b")
	req.NoError(err)
	req.False(member)

	// re-authentication replaces grants
	dir.Grant("user-42", []domain.ProjectID{"project-b"})
	member, err = dir.IsMember(ctx, "user-42", "project-a")
	req.NoError(err)
	req.False(member)
}
