package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/cache"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/repository"
)

// CreatePostInput 创建文章
type CreatePostInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	ImageURL string `json:"image_url" validate:"omitempty,max=512"`
	VideoURL string `json:"video_url" validate:"omitempty,max=512"`
	Category string `json:"category" validate:"max=100"`
	Tags     string `json:"tags" validate:"max=200"`
}

// UpdatePostInput nil 字段保持不变；author 与 created_at 不可修改
type UpdatePostInput struct {
	Title    *string `json:"title" validate:"omitempty,max=200"`
	Content  *string `json:"content"`
	ImageURL *string `json:"image_url" validate:"omitempty,max=512"`
	VideoURL *string `json:"video_url" validate:"omitempty,max=512"`
	Category *string `json:"category" validate:"omitempty,max=100"`
	Tags     *string `json:"tags" validate:"omitempty,max=200"`
}

type CommentInput struct {
	Content string `json:"content" validate:"required"`
}

// ContentOptions 内容写入策略
type ContentOptions struct {
	// RequireAuthorRole 为 true 时只有 Author/Admin 可以发文
	RequireAuthorRole bool
}

// ContentService 文章与评论的 CRUD，写操作仅限作者本人
type ContentService interface {
	CreatePost(ctx context.Context, caller identity.Identity, in CreatePostInput) (*PostView, error)
	GetPost(ctx context.Context, caller identity.Identity, postID uint64) (*PostView, error)
	ListPosts(ctx context.Context, caller identity.Identity, f repository.PostFilter, page, pageSize int) ([]PostView, error)
	UpdatePost(ctx context.Context, caller identity.Identity, postID uint64, in UpdatePostInput) (*PostView, error)
	DeletePost(ctx context.Context, caller identity.Identity, postID uint64) error

	CreateComment(ctx context.Context, caller identity.Identity, postID uint64, in CommentInput) (*CommentView, error)
	GetComment(ctx context.Context, caller identity.Identity, commentID uint64) (*CommentView, error)
	ListComments(ctx context.Context, caller identity.Identity, postID uint64, page, pageSize int) ([]CommentView, error)
	UpdateComment(ctx context.Context, caller identity.Identity, commentID uint64, in CommentInput) (*CommentView, error)
	DeleteComment(ctx context.Context, caller identity.Identity, commentID uint64) error
}

type contentService struct {
	db       *gorm.DB
	posts    repository.PostRepository
	comments repository.CommentRepository
	present  presenter
	notifier Notifier
	feed     *cache.FeedCache
	opts     ContentOptions
}

func NewContentService(
	db *gorm.DB,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	eng repository.EngagementRepository,
	notifier Notifier,
	feed *cache.FeedCache,
	opts ContentOptions,
) ContentService {
	return &contentService{
		db:       db,
		posts:    posts,
		comments: comments,
		present:  presenter{eng: eng},
		notifier: notifier,
		feed:     feed,
		opts:     opts,
	}
}

func (s *contentService) CreatePost(ctx context.Context, caller identity.Identity, in CreatePostInput) (*PostView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	if s.opts.RequireAuthorRole && !caller.CanPublish() {
		return nil, apperr.Forbidden("only authors can publish posts")
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if in.Title == "" || strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("title and content may not be blank")
	}
	post := &model.Post{
		AuthorID: caller.UserID,
		Title:    in.Title,
		Content:  in.Content,
		ImageURL: in.ImageURL,
		VideoURL: in.VideoURL,
		Category: strings.TrimSpace(in.Category),
		Tags:     strings.TrimSpace(in.Tags),
	}
	var view *PostView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.posts.WithTx(tx).Create(ctx, post); err != nil {
			return storeErr(err, "")
		}
		var err error
		view, err = s.postView(ctx, tx, caller, post.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.feed.Invalidate(ctx)
	return view, nil
}

func (s *contentService) GetPost(ctx context.Context, caller identity.Identity, postID uint64) (*PostView, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, storeErr(err, "post not found")
	}
	v, err := s.present.post(ctx, post, caller.UserID)
	return v, storeErr(err, "")
}

// postView 写操作的回读走事务连接，配置了只读副本时也能读到刚提交的数据
func (s *contentService) postView(ctx context.Context, tx *gorm.DB, caller identity.Identity, postID uint64) (*PostView, error) {
	post, err := s.posts.WithTx(tx).GetByID(ctx, postID)
	if err != nil {
		return nil, storeErr(err, "post not found")
	}
	v, err := s.present.withTx(tx).post(ctx, post, caller.UserID)
	return v, storeErr(err, "")
}

func (s *contentService) commentView(ctx context.Context, tx *gorm.DB, caller identity.Identity, commentID uint64) (*CommentView, error) {
	c, err := s.comments.WithTx(tx).GetByID(ctx, commentID)
	if err != nil {
		return nil, storeErr(err, "comment not found")
	}
	v, err := s.present.withTx(tx).comment(ctx, c, caller.UserID)
	return v, storeErr(err, "")
}

func (s *contentService) ListPosts(ctx context.Context, caller identity.Identity, f repository.PostFilter, page, pageSize int) ([]PostView, error) {
	offset, limit := pageOffset(page, pageSize)
	posts, err := s.posts.List(ctx, f, offset, limit)
	if err != nil {
		return nil, storeErr(err, "")
	}
	views, err := s.present.posts(ctx, posts, caller.UserID)
	return views, storeErr(err, "")
}

func (s *contentService) UpdatePost(ctx context.Context, caller identity.Identity, postID uint64, in UpdatePostInput) (*PostView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, apperr.Validation("title: may not be blank")
		}
		fields["title"] = t
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, apperr.Validation("content: may not be blank")
		}
		fields["content"] = *in.Content
	}
	if in.ImageURL != nil {
		fields["image_url"] = *in.ImageURL
	}
	if in.VideoURL != nil {
		fields["video_url"] = *in.VideoURL
	}
	if in.Category != nil {
		fields["category"] = strings.TrimSpace(*in.Category)
	}
	if in.Tags != nil {
		fields["tags"] = strings.TrimSpace(*in.Tags)
	}

	var view *PostView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.posts.WithTx(tx)
		post, err := repo.LockByID(ctx, postID)
		if err != nil {
			return storeErr(err, "post not found")
		}
		if !caller.Owns(post.AuthorID) {
			return apperr.Forbidden("you can only edit your own posts")
		}
		if err := repo.Update(ctx, postID, fields); err != nil {
			return storeErr(err, "")
		}
		view, err = s.postView(ctx, tx, caller, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeletePost 级联删除评论、评论点赞、点赞与收藏；通知保留
func (s *contentService) DeletePost(ctx context.Context, caller identity.Identity, postID uint64) error {
	if err := caller.Require(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.posts.WithTx(tx)
		post, err := repo.LockByID(ctx, postID)
		if err != nil {
			return storeErr(err, "post not found")
		}
		if !caller.Owns(post.AuthorID) {
			return apperr.Forbidden("you can only delete your own posts")
		}
		return storeErr(repo.Delete(ctx, postID), "post not found")
	})
	if err != nil {
		return err
	}
	s.feed.Invalidate(ctx)
	return nil
}

// CreateComment 评论他人文章时在同一事务内通知作者
func (s *contentService) CreateComment(ctx context.Context, caller identity.Identity, postID uint64, in CommentInput) (*CommentView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("content: may not be blank")
	}
	var view *CommentView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.posts.WithTx(tx).LockByID(ctx, postID)
		if err != nil {
			return storeErr(err, "post not found")
		}
		c := &model.Comment{PostID: post.ID, AuthorID: caller.UserID, Content: in.Content}
		if err := s.comments.WithTx(tx).Create(ctx, c); err != nil {
			return storeErr(err, "")
		}
		if post.AuthorID != caller.UserID {
			pid := post.ID
			if err := s.notifier.Notify(ctx, tx, Notice{
				RecipientID: post.AuthorID,
				ActorID:     caller.UserID,
				PostID:      &pid,
				Kind:        model.NotificationPostCommented,
				Message:     fmt.Sprintf("%s commented on your post: '%s'", caller.Username, post.Title),
			}); err != nil {
				return storeErr(err, "")
			}
		}
		view, err = s.commentView(ctx, tx, caller, c.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.feed.Invalidate(ctx)
	return view, nil
}

func (s *contentService) GetComment(ctx context.Context, caller identity.Identity, commentID uint64) (*CommentView, error) {
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, storeErr(err, "comment not found")
	}
	v, err := s.present.comment(ctx, c, caller.UserID)
	return v, storeErr(err, "")
}

// ListComments 文章不存在时返回 NotFound，而不是空列表
func (s *contentService) ListComments(ctx context.Context, caller identity.Identity, postID uint64, page, pageSize int) ([]CommentView, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, storeErr(err, "post not found")
	}
	offset, limit := pageOffset(page, pageSize)
	rows, err := s.comments.ListByPost(ctx, postID, offset, limit)
	if err != nil {
		return nil, storeErr(err, "")
	}
	views, err := s.present.comments(ctx, rows, caller.UserID)
	return views, storeErr(err, "")
}

func (s *contentService) UpdateComment(ctx context.Context, caller identity.Identity, commentID uint64, in CommentInput) (*CommentView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("content: may not be blank")
	}
	var view *CommentView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.comments.WithTx(tx)
		c, err := repo.LockByID(ctx, commentID)
		if err != nil {
			return storeErr(err, "comment not found")
		}
		if !caller.Owns(c.AuthorID) {
			return apperr.Forbidden("you can only edit your own comments")
		}
		if err := repo.UpdateContent(ctx, commentID, in.Content); err != nil {
			return storeErr(err, "")
		}
		view, err = s.commentView(ctx, tx, caller, commentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *contentService) DeleteComment(ctx context.Context, caller identity.Identity, commentID uint64) error {
	if err := caller.Require(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.comments.WithTx(tx)
		c, err := repo.LockByID(ctx, commentID)
		if err != nil {
			return storeErr(err, "comment not found")
		}
		if !caller.Owns(c.AuthorID) {
			return apperr.Forbidden("you can only delete your own comments")
		}
		return storeErr(repo.Delete(ctx, commentID), "comment not found")
	})
	if err != nil {
		return err
	}
	s.feed.Invalidate(ctx)
	return nil
}
