package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/testutil"
)

func TestToggleLike_TwiceRestoresCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", model.RoleAuthor)
	bob := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, alice, "Hello")

	before, err := e.engagement.CountLikes(ctx, post.ID)
	require.NoError(t, err)

	r1, err := e.engagement.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, StateLiked, r1.State)
	assert.Equal(t, before+1, r1.Count)

	r2, err := e.engagement.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, StateUnliked, r2.State)
	assert.Equal(t, before, r2.Count)

	r3, err := e.engagement.ToggleLike(ctx, bob, post.ID)
	require.NoError(t, err)
	assert.Equal(t, StateLiked, r3.State)
	n, err := e.engagement.CountLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, n)
}

func TestToggleLike_SelfLikeNeverNotifies(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice", model.RoleAuthor)
	post := e.post(t, alice, "Mine")

	for i := 0; i < 3; i++ {
		_, err := e.engagement.ToggleLike(ctx, alice, post.ID)
		require.NoError(t, err)
	}
	assert.Zero(t, e.countNotifications(t, alice))
}

// A 发文 "Hello"，B 点赞后 A 收到一条未读通知；B 取消点赞不产生新通知
func TestToggleLike_NotifiesAuthorOncePerLike(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, a, "Hello")

	res, err := e.engagement.ToggleLike(ctx, b, post.ID)
	require.NoError(t, err)
	assert.Equal(t, StateLiked, res.State)

	unread, err := e.notifications.UnreadCount(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
	list, err := e.notifications.List(ctx, a, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Message, "bob")
	assert.Contains(t, list[0].Message, "Hello")
	assert.Equal(t, "bob liked your post: 'Hello'", list[0].Message)
	assert.Equal(t, model.NotificationPostLiked, list[0].Kind)
	assert.False(t, list[0].IsRead)

	res, err = e.engagement.ToggleLike(ctx, b, post.ID)
	require.NoError(t, err)
	assert.Equal(t, StateUnliked, res.State)
	assert.Zero(t, res.Count)
	assert.Equal(t, int64(1), e.countNotifications(t, a))

	// 再次点赞是一次新的 Liked 转换
	_, err = e.engagement.ToggleLike(ctx, b, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.countNotifications(t, a))
	assert.Zero(t, e.countNotifications(t, b))
}

func TestToggleLike_WritesOutboxEventWithNotification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, a, "Hello")

	_, err := e.engagement.ToggleLike(ctx, b, post.ID)
	require.NoError(t, err)

	pending, err := e.outbox.CountByStatus(ctx, model.OutboxPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	var ev model.Outbox
	require.NoError(t, e.db.First(&ev).Error)
	assert.Equal(t, EventNotificationCreated, ev.EventType)
	assert.Equal(t, a.UserID, ev.RecipientID)
	assert.Contains(t, ev.Payload, `"kind":"post_liked"`)
}

func TestToggleLike_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	post := e.post(t, a, "Hello")

	_, err := e.engagement.ToggleLike(ctx, identity.Anonymous, post.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = e.engagement.ToggleLike(ctx, a, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.engagement.CountLikes(ctx, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.engagement.ToggleBookmark(ctx, a, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.engagement.ToggleCommentLike(ctx, a, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestToggleCommentLike_NoNotification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, b, "Bob's post")
	comment, err := e.content.CreateComment(ctx, a, post.ID, CommentInput{Content: "nice"})
	require.NoError(t, err)
	before := e.countNotifications(t, a)

	res, err := e.engagement.ToggleCommentLike(ctx, b, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, StateLiked, res.State)
	assert.Equal(t, int64(1), res.Count)
	assert.Equal(t, before, e.countNotifications(t, a))

	n, err := e.engagement.CountCommentLikes(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	res, err = e.engagement.ToggleCommentLike(ctx, b, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, StateUnliked, res.State)
	assert.Zero(t, res.Count)
}

func TestToggleBookmark_AndMembershipQueries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.user(t, "alice", model.RoleAuthor)
	b := e.user(t, "bob", model.RoleGuest)
	post := e.post(t, a, "Hello")

	res, err := e.engagement.ToggleBookmark(ctx, b, post.ID)
	require.NoError(t, err)
	assert.Equal(t, StateBookmarked, res.State)
	assert.True(t, res.Active)

	ok, err := e.engagement.IsBookmarkedBy(ctx, post.ID, b)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.engagement.IsBookmarkedBy(ctx, post.ID, identity.Anonymous)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, e.countNotifications(t, a))

	res, err = e.engagement.ToggleBookmark(ctx, b, post.ID)
	require.NoError(t, err)
	assert.Equal(t, StateRemoved, res.State)

	_, err = e.engagement.ToggleLike(ctx, b, post.ID)
	require.NoError(t, err)
	liked, err := e.engagement.IsLikedBy(ctx, post.ID, b)
	require.NoError(t, err)
	assert.True(t, liked)
	liked, err = e.engagement.IsLikedBy(ctx, post.ID, identity.Anonymous)
	require.NoError(t, err)
	assert.False(t, liked)

	view, err := e.content.GetPost(ctx, b, post.ID)
	require.NoError(t, err)
	assert.True(t, view.LikedByUser)
	assert.False(t, view.IsBookmarked)
	assert.Equal(t, int64(1), view.LikesCount)
}

func TestToggleLike_ConcurrentTogglesStayConsistent(t *testing.T) {
	e := newEnv(t, withDB(testutil.NewFileDB(t, 8)))
	ctx := context.Background()
	alice := e.user(t, "alice", model.RoleAuthor)
	post := e.post(t, alice, "Hot")

	// 同一个用户并发切换 21 次，另有 10 个用户各点一次
	const repeats = 21
	actors := make([]identity.Identity, 0, repeats+10)
	bob := e.user(t, "bob", model.RoleGuest)
	for i := 0; i < repeats; i++ {
		actors = append(actors, bob)
	}
	for i := 0; i < 10; i++ {
		actors = append(actors, e.user(t, fmt.Sprintf("fan%d", i), model.RoleGuest))
	}

	var (
		wg    sync.WaitGroup
		liked atomic.Int64
		bobOn atomic.Int64
		errs  = make(chan error, len(actors))
	)
	for _, a := range actors {
		wg.Add(1)
		go func(a identity.Identity) {
			defer wg.Done()
			res, err := e.engagement.ToggleLike(ctx, a, post.ID)
			if err != nil {
				errs <- err
				return
			}
			if res.State == StateLiked {
				liked.Add(1)
				if a.UserID == bob.UserID {
					bobOn.Add(1)
				}
			}
		}(a)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// 串行化后 bob 的切换交替进行：奇数次 => 最终是点赞状态
	assert.Equal(t, int64(repeats/2+1), bobOn.Load())
	count, err := e.engagement.CountLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), count)
	assert.Equal(t, liked.Load(), e.countNotifications(t, alice), "one notification per Liked toggle")

	var outbox int64
	require.NoError(t, e.db.Model(&model.Outbox{}).Count(&outbox).Error)
	assert.Equal(t, liked.Load(), outbox)
}
