package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/repository"
)

// PostView 对外的 post 结构，附带点赞数与当前用户的点赞/收藏状态
type PostView struct {
	ID           uint64    `json:"id"`
	Author       string    `json:"author"`
	AuthorID     uint64    `json:"author_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	ImageURL     string    `json:"image_url"`
	VideoURL     string    `json:"video_url"`
	Category     string    `json:"category"`
	Tags         string    `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
	LikesCount   int64     `json:"likes_count"`
	LikedByUser  bool      `json:"liked_by_user"`
	IsBookmarked bool      `json:"is_bookmarked"`
}

type CommentView struct {
	ID          uint64    `json:"id"`
	PostID      uint64    `json:"post"`
	PostTitle   string    `json:"post_title"`
	Author      string    `json:"author"`
	AuthorID    uint64    `json:"author_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	LikeCount   int64     `json:"like_count"`
	LikedByUser bool      `json:"liked_by_user"`
}

type NotificationView struct {
	ID        uint64                 `json:"id"`
	Recipient uint64                 `json:"recipient"`
	Actor     string                 `json:"actor"`
	Kind      model.NotificationKind `json:"kind"`
	PostID    *uint64                `json:"post_id,omitempty"`
	Message   string                 `json:"message"`
	IsRead    bool                   `json:"is_read"`
	Timestamp time.Time              `json:"timestamp"`
}

// UserView 管理端与 /users/me 使用；公开资料不包含 email
type UserView struct {
	ID        uint64     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Role      model.Role `json:"role"`
	Bio       string     `json:"bio"`
	AvatarURL string     `json:"avatar_url"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

func newUserView(u *model.User, withEmail bool) UserView {
	v := UserView{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if withEmail {
		v.Email = u.Email
	}
	return v
}

func newNotificationView(n *model.Notification) NotificationView {
	return NotificationView{
		ID:        n.ID,
		Recipient: n.RecipientID,
		Actor:     n.Actor.Username,
		Kind:      n.Kind,
		PostID:    n.PostID,
		Message:   n.Message,
		IsRead:    n.IsRead,
		Timestamp: n.CreatedAt,
	}
}

// presenter joins live engagement data onto posts and comments in batch.
type presenter struct {
	eng repository.EngagementRepository
}

func (p presenter) withTx(tx *gorm.DB) presenter {
	return presenter{eng: p.eng.WithTx(tx)}
}

func (p presenter) posts(ctx context.Context, posts []*model.Post, viewerID uint64) ([]PostView, error) {
	out := make([]PostView, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}
	ids := make([]uint64, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
	}
	counts, err := p.eng.CountMany(ctx, repository.RelPostLike, ids)
	if err != nil {
		return nil, err
	}
	liked, err := p.eng.MemberOf(ctx, repository.RelPostLike, viewerID, ids)
	if err != nil {
		return nil, err
	}
	marked, err := p.eng.MemberOf(ctx, repository.RelBookmark, viewerID, ids)
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		out = append(out, PostView{
			ID:           post.ID,
			Author:       post.Author.Username,
			AuthorID:     post.AuthorID,
			Title:        post.Title,
			Content:      post.Content,
			ImageURL:     post.ImageURL,
			VideoURL:     post.VideoURL,
			Category:     post.Category,
			Tags:         post.Tags,
			CreatedAt:    post.CreatedAt,
			LikesCount:   counts[post.ID],
			LikedByUser:  liked[post.ID],
			IsBookmarked: marked[post.ID],
		})
	}
	return out, nil
}

func (p presenter) post(ctx context.Context, post *model.Post, viewerID uint64) (*PostView, error) {
	views, err := p.posts(ctx, []*model.Post{post}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (p presenter) comments(ctx context.Context, comments []*model.Comment, viewerID uint64) ([]CommentView, error) {
	out := make([]CommentView, 0, len(comments))
	if len(comments) == 0 {
		return out, nil
	}
	ids := make([]uint64, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	counts, err := p.eng.CountMany(ctx, repository.RelCommentLike, ids)
	if err != nil {
		return nil, err
	}
	liked, err := p.eng.MemberOf(ctx, repository.RelCommentLike, viewerID, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		out = append(out, CommentView{
			ID:          c.ID,
			PostID:      c.PostID,
			PostTitle:   c.Post.Title,
			Author:      c.Author.Username,
			AuthorID:    c.AuthorID,
			Content:     c.Content,
			CreatedAt:   c.CreatedAt,
			LikeCount:   counts[c.ID],
			LikedByUser: liked[c.ID],
		})
	}
	return out, nil
}

func (p presenter) comment(ctx context.Context, c *model.Comment, viewerID uint64) (*CommentView, error) {
	views, err := p.comments(ctx, []*model.Comment{c}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// pageOffset 把 page/pageSize 规范化为 offset/limit
func pageOffset(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return (page - 1) * pageSize, pageSize
}
