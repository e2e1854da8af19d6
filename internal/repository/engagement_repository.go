package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blogapi/internal/model"
)

// Relation 用户与目标之间的成员关系
type Relation int

const (
	RelPostLike Relation = iota + 1
	RelCommentLike
	RelBookmark
)

func (r Relation) String() string {
	switch r {
	case RelPostLike:
		return "post_like"
	case RelCommentLike:
		return "comment_like"
	case RelBookmark:
		return "bookmark"
	}
	return fmt.Sprintf("relation(%d)", int(r))
}

func (r Relation) table() string {
	switch r {
	case RelPostLike:
		return "post_likes"
	case RelCommentLike:
		return "comment_likes"
	default:
		return "bookmarks"
	}
}

func (r Relation) targetColumn() string {
	if r == RelCommentLike {
		return "comment_id"
	}
	return "post_id"
}

func (r Relation) row(targetID, userID uint64, now time.Time) interface{} {
	switch r {
	case RelPostLike:
		return &model.PostLike{PostID: targetID, UserID: userID, CreatedAt: now}
	case RelCommentLike:
		return &model.CommentLike{CommentID: targetID, UserID: userID, CreatedAt: now}
	default:
		return &model.Bookmark{PostID: targetID, UserID: userID, CreatedAt: now}
	}
}

// EngagementRepository 点赞、评论点赞、收藏三类成员关系的读写
type EngagementRepository interface {
	WithTx(tx *gorm.DB) EngagementRepository
	// Add 幂等：已存在时不报错，返回是否真正插入
	Add(ctx context.Context, rel Relation, targetID, userID uint64) (bool, error)
	// Remove 返回是否真正删除
	Remove(ctx context.Context, rel Relation, targetID, userID uint64) (bool, error)
	Exists(ctx context.Context, rel Relation, targetID, userID uint64) (bool, error)
	Count(ctx context.Context, rel Relation, targetID uint64) (int64, error)
	CountMany(ctx context.Context, rel Relation, targetIDs []uint64) (map[uint64]int64, error)
	MemberOf(ctx context.Context, rel Relation, userID uint64, targetIDs []uint64) (map[uint64]bool, error)
}

type engagementRepository struct{ db *gorm.DB }

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) WithTx(tx *gorm.DB) EngagementRepository {
	return &engagementRepository{db: tx}
}

func (r *engagementRepository) Add(ctx context.Context, rel Relation, targetID, userID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rel.row(targetID, userID, time.Now().UTC()))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engagementRepository) Remove(ctx context.Context, rel Relation, targetID, userID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Table(rel.table()).
		Where(rel.targetColumn()+" = ? AND user_id = ?", targetID, userID).
		Delete(rel.row(0, 0, time.Time{}))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engagementRepository) Exists(ctx context.Context, rel Relation, targetID, userID uint64) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Table(rel.table()).
		Where(rel.targetColumn()+" = ? AND user_id = ?", targetID, userID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *engagementRepository) Count(ctx context.Context, rel Relation, targetID uint64) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Table(rel.table()).
		Where(rel.targetColumn()+" = ?", targetID).
		Count(&cnt).Error
	return cnt, err
}

func (r *engagementRepository) CountMany(ctx context.Context, rel Relation, targetIDs []uint64) (map[uint64]int64, error) {
	res := make(map[uint64]int64, len(targetIDs))
	if len(targetIDs) == 0 {
		return res, nil
	}
	var rows []struct {
		TargetID uint64
		Cnt      int64
	}
	col := rel.targetColumn()
	if err := r.db.WithContext(ctx).
		Table(rel.table()).
		Select(col+" AS target_id, COUNT(*) AS cnt").
		Where(col+" IN ?", targetIDs).
		Group(col).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		res[row.TargetID] = row.Cnt
	}
	return res, nil
}

func (r *engagementRepository) MemberOf(ctx context.Context, rel Relation, userID uint64, targetIDs []uint64) (map[uint64]bool, error) {
	res := make(map[uint64]bool, len(targetIDs))
	if userID == 0 || len(targetIDs) == 0 {
		return res, nil
	}
	var ids []uint64
	col := rel.targetColumn()
	if err := r.db.WithContext(ctx).
		Table(rel.table()).
		Where("user_id = ? AND "+col+" IN ?", userID, targetIDs).
		Pluck(col, &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		res[id] = true
	}
	return res, nil
}
