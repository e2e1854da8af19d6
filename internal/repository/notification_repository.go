package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blogapi/internal/model"
)

// NotificationRepository 所有读写都按 recipient 过滤
type NotificationRepository interface {
	WithTx(tx *gorm.DB) NotificationRepository
	Create(ctx context.Context, n *model.Notification) error
	ListByRecipient(ctx context.Context, recipientID uint64, offset, limit int) ([]*model.Notification, error)
	GetForRecipient(ctx context.Context, id, recipientID uint64) (*model.Notification, error)
	// MarkRead 只把未读置为已读；返回是否发生了状态变化
	MarkRead(ctx context.Context, id, recipientID uint64) (bool, error)
	MarkAllRead(ctx context.Context, recipientID uint64) (int64, error)
	CountUnread(ctx context.Context, recipientID uint64) (int64, error)
}

type notificationRepository struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) WithTx(tx *gorm.DB) NotificationRepository {
	return &notificationRepository{db: tx}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uint64, offset, limit int) ([]*model.Notification, error) {
	offset, limit = normalizePage(offset, limit)
	var res []*model.Notification
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *notificationRepository) GetForRecipient(ctx context.Context, id, recipientID uint64) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uint64) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&cnt).Error
	return cnt, err
}
