package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blogapi/internal/model"
)

type CommentRepository interface {
	WithTx(tx *gorm.DB) CommentRepository
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id uint64) (*model.Comment, error)
	LockByID(ctx context.Context, id uint64) (*model.Comment, error)
	UpdateContent(ctx context.Context, id uint64, content string) error
	// Delete 删除评论及其点赞
	Delete(ctx context.Context, id uint64) error
	ListByPost(ctx context.Context, postID uint64, offset, limit int) ([]*model.Comment, error)
	ListByAuthor(ctx context.Context, authorID uint64) ([]*model.Comment, error)
	ListLikedBy(ctx context.Context, userID uint64) ([]*model.Comment, error)
	Count(ctx context.Context) (int64, error)
}

type commentRepository struct{ db *gorm.DB }

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

func (r *commentRepository) WithTx(tx *gorm.DB) CommentRepository { return &commentRepository{db: tx} }

func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint64) (*model.Comment, error) {
	var c model.Comment
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Post").First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commentRepository) LockByID(ctx context.Context, id uint64) (*model.Comment, error) {
	var c model.Comment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint64, content string) error {
	return r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Update("content", content).Error
}

func (r *commentRepository) Delete(ctx context.Context, id uint64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("comment_id = ?", id).Delete(&model.CommentLike{}).Error; err != nil {
		return err
	}
	res := db.Delete(&model.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint64, offset, limit int) ([]*model.Comment, error) {
	offset, limit = normalizePage(offset, limit)
	var res []*model.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Post").
		Where("post_id = ?", postID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *commentRepository) ListByAuthor(ctx context.Context, authorID uint64) ([]*model.Comment, error) {
	var res []*model.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Post").
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&res).Error
	return res, err
}

func (r *commentRepository) ListLikedBy(ctx context.Context, userID uint64) ([]*model.Comment, error) {
	var res []*model.Comment
	err := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Select("comments.*").
		Joins("JOIN comment_likes ON comment_likes.comment_id = comments.id").
		Where("comment_likes.user_id = ?", userID).
		Preload("Author").
		Preload("Post").
		Order("comment_likes.created_at DESC, comments.id DESC").
		Find(&res).Error
	return res, err
}

func (r *commentRepository) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Count(&cnt).Error
	return cnt, err
}
