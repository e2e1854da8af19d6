package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
)

func TestProfiles_MeAndPublic(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	post := e.post(t, a, "Hello")
	_, err := e.content.CreateComment(ctx, a, post.ID, CommentInput{Content: "self reply"})
	require.NoError(t, err)

	me, err := e.profiles.Me(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Len(t, me.Posts, 1)
	assert.Len(t, me.Comments, 1)

	pub, err := e.profiles.PublicProfile(ctx, identity.Anonymous, a.UserID)
	require.NoError(t, err)
	assert.Empty(t, pub.Email)
	assert.Equal(t, "alice", pub.Username)
	assert.Len(t, pub.Posts, 1)

	_, err = e.profiles.PublicProfile(ctx, identity.Anonymous, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.profiles.Me(ctx, identity.Anonymous)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestProfiles_UpdateMe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleGuest)
	e.user(t, "bob", model.RoleGuest)

	name, bio := "alice2", "gopher"
	p, err := e.profiles.UpdateMe(ctx, a, UpdateProfileInput{Username: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "alice2", p.Username)
	assert.Equal(t, "gopher", p.Bio)

	taken := "bob"
	_, err = e.profiles.UpdateMe(ctx, a, UpdateProfileInput{Username: &taken})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestProfiles_RoleManagement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "root", model.RoleAdmin)
	a := e.user(t, "alice", model.RoleGuest)

	_, err := e.profiles.ListUsers(ctx, a, 1, 10)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = e.profiles.ListUsers(ctx, identity.Anonymous, 1, 10)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	users, err := e.profiles.ListUsers(ctx, admin, 1, 10)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = e.profiles.UpdateRole(ctx, a, admin.UserID, "Guest")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = e.profiles.UpdateRole(ctx, admin, a.UserID, "Admin")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = e.profiles.UpdateRole(ctx, admin, 9999, "Author")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	u, err := e.profiles.UpdateRole(ctx, admin, a.UserID, "Author")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAuthor, u.Role)

	u, err = e.profiles.SetOwnRole(ctx, a, "Guest")
	require.NoError(t, err)
	assert.Equal(t, model.RoleGuest, u.Role)
	_, err = e.profiles.SetOwnRole(ctx, a, "Admin")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSetOwnRoleCannotPromote(t *testing.T) {
	e := newEnv(t, withAuthorRole())
	ctx := context.Background()
	admin := e.user(t, "root", model.RoleAdmin)
	g := e.user(t, "guest", model.RoleGuest)

	_, err := e.profiles.SetOwnRole(ctx, g, "Author")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = e.content.CreatePost(ctx, g, CreatePostInput{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, apperr.ErrForbidden, "still a guest")

	// token 里声称是 Author 也没用，以库里的角色为准
	forged := g
	forged.Role = model.RoleAuthor
	_, err = e.profiles.SetOwnRole(ctx, forged, "Author")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	u, err := e.profiles.SetOwnRole(ctx, g, "Guest")
	require.NoError(t, err)
	assert.Equal(t, model.RoleGuest, u.Role)

	_, err = e.profiles.SetOwnRole(ctx, admin, "Guest")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// 管理员授予后可以自助退回 Guest
	_, err = e.profiles.UpdateRole(ctx, admin, g.UserID, "Author")
	require.NoError(t, err)
	u, err = e.profiles.SetOwnRole(ctx, g, "Author")
	require.NoError(t, err, "keeping an already granted role is a no-op")
	assert.Equal(t, model.RoleAuthor, u.Role)
	u, err = e.profiles.SetOwnRole(ctx, g, "Guest")
	require.NoError(t, err)
	assert.Equal(t, model.RoleGuest, u.Role)
}
