package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/blogapi/internal/cache"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/repository"
	"github.com/d60-Lab/blogapi/pkg/metrics"
)

// ToggleState toggle 之后的成员状态
type ToggleState string

const (
	StateLiked      ToggleState = "Liked"
	StateUnliked    ToggleState = "Unliked"
	StateBookmarked ToggleState = "Bookmarked"
	StateRemoved    ToggleState = "Removed"
)

// ToggleResult carries the new state and the live count after the toggle.
type ToggleResult struct {
	State  ToggleState `json:"detail"`
	Active bool        `json:"active"`
	Count  int64       `json:"count"`
}

// EngagementService 点赞、评论点赞、收藏
type EngagementService interface {
	ToggleLike(ctx context.Context, caller identity.Identity, postID uint64) (*ToggleResult, error)
	ToggleCommentLike(ctx context.Context, caller identity.Identity, commentID uint64) (*ToggleResult, error)
	ToggleBookmark(ctx context.Context, caller identity.Identity, postID uint64) (*ToggleResult, error)
	CountLikes(ctx context.Context, postID uint64) (int64, error)
	CountCommentLikes(ctx context.Context, commentID uint64) (int64, error)
	IsLikedBy(ctx context.Context, postID uint64, caller identity.Identity) (bool, error)
	IsBookmarkedBy(ctx context.Context, postID uint64, caller identity.Identity) (bool, error)
}

type engagementService struct {
	db       *gorm.DB
	posts    repository.PostRepository
	comments repository.CommentRepository
	eng      repository.EngagementRepository
	notifier Notifier
	feed     *cache.FeedCache
}

func NewEngagementService(
	db *gorm.DB,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	eng repository.EngagementRepository,
	notifier Notifier,
	feed *cache.FeedCache,
) EngagementService {
	return &engagementService{db: db, posts: posts, comments: comments, eng: eng, notifier: notifier, feed: feed}
}

// ToggleLike 点赞/取消点赞；他人点赞时在同一事务内通知作者
func (s *engagementService) ToggleLike(ctx context.Context, caller identity.Identity, postID uint64) (*ToggleResult, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	var res ToggleResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.posts.WithTx(tx).LockByID(ctx, postID)
		if err != nil {
			return storeErr(err, "post not found")
		}
		liked, err := s.toggle(ctx, tx, repository.RelPostLike, postID, caller.UserID)
		if err != nil {
			return err
		}
		if liked && post.AuthorID != caller.UserID {
			pid := post.ID
			if err := s.notifier.Notify(ctx, tx, Notice{
				RecipientID: post.AuthorID,
				ActorID:     caller.UserID,
				PostID:      &pid,
				Kind:        model.NotificationPostLiked,
				Message:     fmt.Sprintf("%s liked your post: '%s'", caller.Username, post.Title),
			}); err != nil {
				return storeErr(err, "")
			}
		}
		res = likeResult(liked)
		res.Count, err = s.eng.WithTx(tx).Count(ctx, repository.RelPostLike, postID)
		return storeErr(err, "")
	})
	if err != nil {
		return nil, err
	}
	s.feed.Invalidate(ctx)
	metrics.Toggle(repository.RelPostLike.String(), string(res.State))
	return &res, nil
}

func (s *engagementService) ToggleCommentLike(ctx context.Context, caller identity.Identity, commentID uint64) (*ToggleResult, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	var res ToggleResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.comments.WithTx(tx).LockByID(ctx, commentID); err != nil {
			return storeErr(err, "comment not found")
		}
		liked, err := s.toggle(ctx, tx, repository.RelCommentLike, commentID, caller.UserID)
		if err != nil {
			return err
		}
		res = likeResult(liked)
		res.Count, err = s.eng.WithTx(tx).Count(ctx, repository.RelCommentLike, commentID)
		return storeErr(err, "")
	})
	if err != nil {
		return nil, err
	}
	metrics.Toggle(repository.RelCommentLike.String(), string(res.State))
	return &res, nil
}

func (s *engagementService) ToggleBookmark(ctx context.Context, caller identity.Identity, postID uint64) (*ToggleResult, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	var res ToggleResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.posts.WithTx(tx).LockByID(ctx, postID); err != nil {
			return storeErr(err, "post not found")
		}
		marked, err := s.toggle(ctx, tx, repository.RelBookmark, postID, caller.UserID)
		if err != nil {
			return err
		}
		res = ToggleResult{State: StateRemoved, Active: marked}
		if marked {
			res.State = StateBookmarked
		}
		res.Count, err = s.eng.WithTx(tx).Count(ctx, repository.RelBookmark, postID)
		return storeErr(err, "")
	})
	if err != nil {
		return nil, err
	}
	metrics.Toggle(repository.RelBookmark.String(), string(res.State))
	return &res, nil
}

// toggle 先尝试删除，删除不到再插入；返回操作后是否为成员
func (s *engagementService) toggle(ctx context.Context, tx *gorm.DB, rel repository.Relation, targetID, userID uint64) (bool, error) {
	eng := s.eng.WithTx(tx)
	removed, err := eng.Remove(ctx, rel, targetID, userID)
	if err != nil {
		return false, storeErr(err, "")
	}
	if removed {
		return false, nil
	}
	if _, err := eng.Add(ctx, rel, targetID, userID); err != nil {
		return false, storeErr(err, "")
	}
	return true, nil
}

func likeResult(liked bool) ToggleResult {
	if liked {
		return ToggleResult{State: StateLiked, Active: true}
	}
	return ToggleResult{State: StateUnliked}
}

func (s *engagementService) CountLikes(ctx context.Context, postID uint64) (int64, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return 0, storeErr(err, "post not found")
	}
	n, err := s.eng.Count(ctx, repository.RelPostLike, postID)
	return n, storeErr(err, "")
}

func (s *engagementService) CountCommentLikes(ctx context.Context, commentID uint64) (int64, error) {
	if _, err := s.comments.GetByID(ctx, commentID); err != nil {
		return 0, storeErr(err, "comment not found")
	}
	n, err := s.eng.Count(ctx, repository.RelCommentLike, commentID)
	return n, storeErr(err, "")
}

// IsLikedBy 匿名调用者恒为 false
func (s *engagementService) IsLikedBy(ctx context.Context, postID uint64, caller identity.Identity) (bool, error) {
	if !caller.Authenticated() {
		return false, nil
	}
	ok, err := s.eng.Exists(ctx, repository.RelPostLike, postID, caller.UserID)
	return ok, storeErr(err, "")
}

func (s *engagementService) IsBookmarkedBy(ctx context.Context, postID uint64, caller identity.Identity) (bool, error) {
	if !caller.Authenticated() {
		return false, nil
	}
	ok, err := s.eng.Exists(ctx, repository.RelBookmark, postID, caller.UserID)
	return ok, storeErr(err, "")
}
