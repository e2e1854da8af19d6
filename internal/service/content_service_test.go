package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestCreatePost_AuthorForcedToCaller(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleGuest)

	p, err := e.content.CreatePost(ctx, a, CreatePostInput{
		Title: "  Hello ", Content: "body", Category: "go", Tags: "go,web",
	})
	require.NoError(t, err)
	assert.Equal(t, a.UserID, p.AuthorID)
	assert.Equal(t, "alice", p.Author)
	assert.Equal(t, "Hello", p.Title)
	assert.Zero(t, p.LikesCount)

	_, err = e.content.CreatePost(ctx, identity.Anonymous, CreatePostInput{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = e.content.CreatePost(ctx, a, CreatePostInput{Title: "", Content: "y"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreatePost_RequireAuthorRole(t *testing.T) {
	e := newEnv(t, withAuthorRole())
	ctx := context.Background()
	guest := e.user(t, "guest", model.RoleGuest)
	author := e.user(t, "author", model.RoleAuthor)

	_, err := e.content.CreatePost(ctx, guest, CreatePostInput{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = e.content.CreatePost(ctx, author, CreatePostInput{Title: "x", Content: "y"})
	assert.NoError(t, err)
}

func TestUpdatePost_PartialAndOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post, err := e.content.CreatePost(ctx, a, CreatePostInput{Title: "Hello", Content: "body", Category: "go"})
	require.NoError(t, err)

	updated, err := e.content.UpdatePost(ctx, a, post.ID, UpdatePostInput{Title: strPtr("Hello again")})
	require.NoError(t, err)
	assert.Equal(t, "Hello again", updated.Title)
	assert.Equal(t, "body", updated.Content)
	assert.Equal(t, "go", updated.Category)
	assert.Equal(t, a.UserID, updated.AuthorID)
	assert.True(t, post.CreatedAt.Equal(updated.CreatedAt))

	_, err = e.content.UpdatePost(ctx, b, post.ID, UpdatePostInput{Title: strPtr("hijack")})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	err = e.content.DeletePost(ctx, b, post.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = e.content.UpdatePost(ctx, a, 9999, UpdatePostInput{Title: strPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.content.UpdatePost(ctx, a, post.ID, UpdatePostInput{Title: strPtr("  ")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	still, err := e.content.GetPost(ctx, identity.Anonymous, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", still.Title)
}

func TestDeletePost_Cascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, a, "Hello")
	other := e.post(t, a, "Other")

	c, err := e.content.CreateComment(ctx, b, post.ID, CommentInput{Content: "hi"})
	require.NoError(t, err)
	_, err = e.engagement.ToggleCommentLike(ctx, a, c.ID)
	require.NoError(t, err)
	_, err = e.engagement.ToggleLike(ctx, b, post.ID)
	require.NoError(t, err)
	_, err = e.engagement.ToggleBookmark(ctx, b, post.ID)
	require.NoError(t, err)
	_, err = e.engagement.ToggleLike(ctx, b, other.ID)
	require.NoError(t, err)
	notesBefore := e.countNotifications(t, a)

	require.NoError(t, e.content.DeletePost(ctx, a, post.ID))

	_, err = e.content.GetPost(ctx, identity.Anonymous, post.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.content.ListComments(ctx, identity.Anonymous, post.ID, 1, 10)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.content.GetComment(ctx, identity.Anonymous, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	for _, m := range []interface{}{&model.Comment{}, &model.CommentLike{}, &model.Bookmark{}} {
		var n int64
		require.NoError(t, e.db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
	var likes int64
	require.NoError(t, e.db.Model(&model.PostLike{}).Count(&likes).Error)
	assert.Equal(t, int64(1), likes, "likes on other posts survive")
	assert.Equal(t, notesBefore, e.countNotifications(t, a), "notifications are never deleted")

	err = e.content.DeletePost(ctx, a, post.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestComments_CRUD(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, a, "Hello")

	_, err := e.content.CreateComment(ctx, b, 9999, CommentInput{Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.content.CreateComment(ctx, identity.Anonymous, post.ID, CommentInput{Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	own, err := e.content.CreateComment(ctx, a, post.ID, CommentInput{Content: "author reply"})
	require.NoError(t, err)
	assert.Zero(t, e.countNotifications(t, a), "commenting on own post is silent")

	c, err := e.content.CreateComment(ctx, b, post.ID, CommentInput{Content: "first!"})
	require.NoError(t, err)
	assert.Equal(t, "bob", c.Author)
	assert.Equal(t, post.ID, c.PostID)
	assert.Equal(t, "Hello", c.PostTitle)
	assert.Equal(t, int64(1), e.countNotifications(t, a))

	list, err := e.content.ListComments(ctx, identity.Anonymous, post.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c.ID, list[0].ID)
	assert.Equal(t, own.ID, list[1].ID)

	_, err = e.content.UpdateComment(ctx, a, c.ID, CommentInput{Content: "edited"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	edited, err := e.content.UpdateComment(ctx, b, c.ID, CommentInput{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)

	assert.ErrorIs(t, e.content.DeleteComment(ctx, a, c.ID), apperr.ErrForbidden)
	require.NoError(t, e.content.DeleteComment(ctx, b, c.ID))
	_, err = e.content.GetComment(ctx, identity.Anonymous, c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListPosts_Filters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleAuthor)
	_, err := e.content.CreatePost(ctx, a, CreatePostInput{Title: "Go generics", Content: "type params", Category: "go", Tags: "go,generics"})
	require.NoError(t, err)
	_, err = e.content.CreatePost(ctx, b, CreatePostInput{Title: "Rust traits", Content: "impl blocks", Category: "rust", Tags: "rust"})
	require.NoError(t, err)
	_, err = e.content.CreatePost(ctx, b, CreatePostInput{Title: "Cooking", Content: "pasta with GO sauce", Category: "food"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		filter repository.PostFilter
		want   []string
	}{
		{"all newest first", repository.PostFilter{}, []string{"Cooking", "Rust traits", "Go generics"}},
		{"category", repository.PostFilter{Category: "rust"}, []string{"Rust traits"}},
		{"tag", repository.PostFilter{Tag: "generics"}, []string{"Go generics"}},
		{"author", repository.PostFilter{Author: "alice"}, []string{"Go generics"}},
		{"search over title and body", repository.PostFilter{Search: "go"}, []string{"Cooking", "Go generics"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.content.ListPosts(ctx, identity.Anonymous, tc.filter, 1, 10)
			require.NoError(t, err)
			titles := make([]string, len(got))
			for i, p := range got {
				titles[i] = p.Title
			}
			assert.Equal(t, tc.want, titles)
		})
	}

	page2, err := e.content.ListPosts(ctx, identity.Anonymous, repository.PostFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "Go generics", page2[0].Title)
}
