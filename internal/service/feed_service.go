package service

import (
	"context"

	"github.com/d60-Lab/blogapi/internal/cache"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/repository"
)

const (
	DefaultTrendingLimit = 10
	maxTrendingLimit     = 50
	statsTopPosts        = 5
)

// LikedContent 用户点赞过的文章与评论
type LikedContent struct {
	LikedPosts    []PostView    `json:"liked_posts"`
	LikedComments []CommentView `json:"liked_comments"`
}

// Dashboard 调用者的个人面板
type Dashboard struct {
	Posts         []PostView         `json:"posts"`
	Comments      []CommentView      `json:"comments"`
	LikedPosts    []PostView         `json:"liked_posts"`
	LikedComments []CommentView      `json:"liked_comments"`
	Notifications []NotificationView `json:"notifications"`
	UnreadCount   int64              `json:"unread_count"`
}

type TopPost struct {
	ID        uint64 `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	LikeCount int64  `json:"like_count"`
}

// Stats 全站统计
type Stats struct {
	TotalUsers    int64     `json:"total_users"`
	TotalPosts    int64     `json:"total_posts"`
	TotalComments int64     `json:"total_comments"`
	TopPosts      []TopPost `json:"top_posts"`
}

type FeedService interface {
	// Trending 按实时点赞数降序，票数相同时新发布的在前
	Trending(ctx context.Context, caller identity.Identity, limit int) ([]PostView, error)
	Dashboard(ctx context.Context, caller identity.Identity) (*Dashboard, error)
	MyPosts(ctx context.Context, caller identity.Identity) ([]PostView, error)
	MyComments(ctx context.Context, caller identity.Identity) ([]CommentView, error)
	MyLikes(ctx context.Context, caller identity.Identity) (*LikedContent, error)
	MyBookmarks(ctx context.Context, caller identity.Identity, page, pageSize int) ([]PostView, error)
	GlobalStats(ctx context.Context) (*Stats, error)
}

type feedService struct {
	users         repository.UserRepository
	posts         repository.PostRepository
	comments      repository.CommentRepository
	notifications NotificationService
	present       presenter
	feed          *cache.FeedCache
}

func NewFeedService(
	users repository.UserRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	eng repository.EngagementRepository,
	notifications NotificationService,
	feed *cache.FeedCache,
) FeedService {
	return &feedService{
		users:         users,
		posts:         posts,
		comments:      comments,
		notifications: notifications,
		present:       presenter{eng: eng},
		feed:          feed,
	}
}

func (s *feedService) Trending(ctx context.Context, caller identity.Identity, limit int) ([]PostView, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	if limit > maxTrendingLimit {
		limit = maxTrendingLimit
	}
	ids, err := s.trendingIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "")
	}
	views, err := s.present.posts(ctx, posts, caller.UserID)
	return views, storeErr(err, "")
}

// trendingIDs 排名只缓存 id 顺序，计数与“我是否点赞”每次实时计算
func (s *feedService) trendingIDs(ctx context.Context, limit int) ([]uint64, error) {
	key := cache.TrendingKey(limit)
	snap := s.feed.Snapshot(ctx)
	var ids []uint64
	if snap.Get(ctx, key, &ids) {
		return ids, nil
	}
	ranks, err := s.posts.TopByLikes(ctx, limit)
	if err != nil {
		return nil, storeErr(err, "")
	}
	ids = make([]uint64, len(ranks))
	for i, r := range ranks {
		ids[i] = r.PostID
	}
	snap.Set(ctx, key, ids)
	return ids, nil
}

func (s *feedService) Dashboard(ctx context.Context, caller identity.Identity) (*Dashboard, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	posts, err := s.MyPosts(ctx, caller)
	if err != nil {
		return nil, err
	}
	comments, err := s.MyComments(ctx, caller)
	if err != nil {
		return nil, err
	}
	liked, err := s.MyLikes(ctx, caller)
	if err != nil {
		return nil, err
	}
	notes, err := s.notifications.List(ctx, caller, 1, 100)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.UnreadCount(ctx, caller)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Posts:         posts,
		Comments:      comments,
		LikedPosts:    liked.LikedPosts,
		LikedComments: liked.LikedComments,
		Notifications: notes,
		UnreadCount:   unread,
	}, nil
}

func (s *feedService) MyPosts(ctx context.Context, caller identity.Identity) ([]PostView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByAuthor(ctx, caller.UserID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	views, err := s.present.posts(ctx, posts, caller.UserID)
	return views, storeErr(err, "")
}

func (s *feedService) MyComments(ctx context.Context, caller identity.Identity) ([]CommentView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	rows, err := s.comments.ListByAuthor(ctx, caller.UserID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	views, err := s.present.comments(ctx, rows, caller.UserID)
	return views, storeErr(err, "")
}

func (s *feedService) MyLikes(ctx context.Context, caller identity.Identity) (*LikedContent, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListLikedBy(ctx, caller.UserID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	comments, err := s.comments.ListLikedBy(ctx, caller.UserID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	pv, err := s.present.posts(ctx, posts, caller.UserID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	cv, err := s.present.comments(ctx, comments, caller.UserID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return &LikedContent{LikedPosts: pv, LikedComments: cv}, nil
}

func (s *feedService) MyBookmarks(ctx context.Context, caller identity.Identity, page, pageSize int) ([]PostView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	offset, limit := pageOffset(page, pageSize)
	posts, err := s.posts.ListBookmarkedBy(ctx, caller.UserID, offset, limit)
	if err != nil {
		return nil, storeErr(err, "")
	}
	views, err := s.present.posts(ctx, posts, caller.UserID)
	return views, storeErr(err, "")
}

func (s *feedService) GlobalStats(ctx context.Context) (*Stats, error) {
	snap := s.feed.Snapshot(ctx)
	var cached Stats
	if snap.Get(ctx, cache.StatsKey, &cached) {
		return &cached, nil
	}
	var (
		st  Stats
		err error
	)
	if st.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, storeErr(err, "")
	}
	if st.TotalPosts, err = s.posts.Count(ctx); err != nil {
		return nil, storeErr(err, "")
	}
	if st.TotalComments, err = s.comments.Count(ctx); err != nil {
		return nil, storeErr(err, "")
	}
	ranks, err := s.posts.TopByLikes(ctx, statsTopPosts)
	if err != nil {
		return nil, storeErr(err, "")
	}
	ids := make([]uint64, len(ranks))
	for i, r := range ranks {
		ids[i] = r.PostID
	}
	posts, err := s.posts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "")
	}
	byID := make(map[uint64]int64, len(ranks))
	for _, r := range ranks {
		byID[r.PostID] = r.LikeCount
	}
	st.TopPosts = make([]TopPost, 0, len(posts))
	for _, p := range posts {
		st.TopPosts = append(st.TopPosts, TopPost{
			ID:        p.ID,
			Title:     p.Title,
			Author:    p.Author.Username,
			LikeCount: byID[p.ID],
		})
	}
	snap.Set(ctx, cache.StatsKey, st)
	return &st, nil
}
