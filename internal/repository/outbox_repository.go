package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/blogapi/internal/model"
)

type OutboxRepository interface {
	WithTx(tx *gorm.DB) OutboxRepository
	Create(ctx context.Context, o *model.Outbox) error
	// ClaimPending 领取一批 pending 事件并置为 processing（SKIP LOCKED，多 worker 互不阻塞）。
	// claimed_at 早于 staleBefore 的 processing 事件一并重新领取。
	ClaimPending(ctx context.Context, limit int, staleBefore time.Time) ([]*model.Outbox, error)
	MarkDone(ctx context.Context, ids []string) error
	// Release 投递失败的事件回到 pending 并累计重试次数
	Release(ctx context.Context, ids []string) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type outboxRepository struct{ db *gorm.DB }

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) WithTx(tx *gorm.DB) OutboxRepository { return &outboxRepository{db: tx} }

func (r *outboxRepository) Create(ctx context.Context, o *model.Outbox) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, staleBefore time.Time) ([]*model.Outbox, error) {
	if limit <= 0 {
		limit = 100
	}
	var batch []*model.Outbox
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? OR (status = ? AND claimed_at < ?)", model.OutboxPending, model.OutboxProcessing, staleBefore.UTC()).
			Order("created_at").
			Limit(limit).
			Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		now := time.Now().UTC()
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
			b.Status = model.OutboxProcessing
			b.ClaimedAt = &now
		}
		return tx.Model(&model.Outbox{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": model.OutboxProcessing, "claimed_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *outboxRepository) MarkDone(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&model.Outbox{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"status": model.OutboxDone, "processed_at": now}).Error
}

func (r *outboxRepository) Release(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Outbox{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     model.OutboxPending,
			"claimed_at": nil,
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
}

func (r *outboxRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Outbox{}).Where("status = ?", status).Count(&cnt).Error
	return cnt, err
}
