package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/testutil"
)

func TestTrending_ByLiveLikesTiesNewerFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	ids := make([]uint64, 12)
	for i := range ids {
		p := testutil.SeedPost(t, e.db, a.UserID, fmt.Sprintf("p%02d", i))
		require.NoError(t, e.db.Model(&model.Post{}).Where("id = ?", p.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
		ids[i] = p.ID
	}
	likers := make([]identity.Identity, 3)
	for i := range likers {
		likers[i] = e.user(t, fmt.Sprintf("liker%d", i), model.RoleGuest)
	}
	// p00: 3 likes, p01 and p02: 1 like each (p02 newer)
	for _, l := range likers {
		_, err := e.engagement.ToggleLike(ctx, l, ids[0])
		require.NoError(t, err)
	}
	_, err := e.engagement.ToggleLike(ctx, likers[0], ids[1])
	require.NoError(t, err)
	_, err = e.engagement.ToggleLike(ctx, likers[0], ids[2])
	require.NoError(t, err)

	got, err := e.feed.Trending(ctx, identity.Anonymous, 0)
	require.NoError(t, err)
	require.Len(t, got, DefaultTrendingLimit)
	assert.Equal(t, "p00", got[0].Title)
	assert.Equal(t, int64(3), got[0].LikesCount)
	assert.Equal(t, "p02", got[1].Title)
	assert.Equal(t, "p01", got[2].Title)
	// 零赞的按创建时间倒序
	assert.Equal(t, "p11", got[3].Title)
	assert.False(t, got[0].LikedByUser)

	// 取消点赞后排行立即反映（缓存已失效）
	for _, l := range likers {
		_, err := e.engagement.ToggleLike(ctx, l, ids[0])
		require.NoError(t, err)
	}
	got, err = e.feed.Trending(ctx, likers[0], 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "p02", got[0].Title)
	assert.True(t, got[0].LikedByUser)
	assert.Equal(t, "p01", got[1].Title)
	assert.Equal(t, "p11", got[2].Title)
}

func TestGlobalStats_CachedAndInvalidated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	p1 := e.post(t, a, "one")
	e.post(t, a, "two")
	_, err := e.content.CreateComment(ctx, b, p1.ID, CommentInput{Content: "c"})
	require.NoError(t, err)
	_, err = e.engagement.ToggleLike(ctx, b, p1.ID)
	require.NoError(t, err)

	st, err := e.feed.GlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalUsers)
	assert.Equal(t, int64(2), st.TotalPosts)
	assert.Equal(t, int64(1), st.TotalComments)
	require.Len(t, st.TopPosts, 2)
	assert.Equal(t, "one", st.TopPosts[0].Title)
	assert.Equal(t, int64(1), st.TopPosts[0].LikeCount)
	assert.Equal(t, "alice", st.TopPosts[0].Author)

	hitsBefore, _ := e.feedCache.Counters()
	_, err = e.feed.GlobalStats(ctx)
	require.NoError(t, err)
	hitsAfter, _ := e.feedCache.Counters()
	assert.Equal(t, hitsBefore+1, hitsAfter)

	e.post(t, b, "three")
	st, err = e.feed.GlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalPosts)
}

func TestDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	pa := e.post(t, a, "alice post")
	pb := e.post(t, b, "bob post")

	c, err := e.content.CreateComment(ctx, a, pb.ID, CommentInput{Content: "hi bob"})
	require.NoError(t, err)
	_, err = e.engagement.ToggleLike(ctx, a, pb.ID)
	require.NoError(t, err)
	_, err = e.engagement.ToggleCommentLike(ctx, a, c.ID)
	require.NoError(t, err)
	_, err = e.engagement.ToggleLike(ctx, b, pa.ID)
	require.NoError(t, err)
	_, err = e.engagement.ToggleBookmark(ctx, a, pb.ID)
	require.NoError(t, err)

	d, err := e.feed.Dashboard(ctx, a)
	require.NoError(t, err)
	require.Len(t, d.Posts, 1)
	assert.Equal(t, "alice post", d.Posts[0].Title)
	require.Len(t, d.Comments, 1)
	assert.Equal(t, "hi bob", d.Comments[0].Content)
	require.Len(t, d.LikedPosts, 1)
	assert.Equal(t, "bob post", d.LikedPosts[0].Title)
	assert.True(t, d.LikedPosts[0].LikedByUser)
	require.Len(t, d.LikedComments, 1)
	require.Len(t, d.Notifications, 1)
	assert.Equal(t, int64(1), d.UnreadCount)

	marks, err := e.feed.MyBookmarks(ctx, a, 1, 10)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.True(t, marks[0].IsBookmarked)

	_, err = e.feed.Dashboard(ctx, identity.Anonymous)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
