package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/repository"
	"github.com/d60-Lab/blogapi/pkg/metrics"
)

// EventNotificationCreated 写入 outbox 的事件类型
const EventNotificationCreated = "notification.created"

// Notice 一条待创建的通知
type Notice struct {
	RecipientID uint64
	ActorID     uint64
	PostID      *uint64
	Kind        model.NotificationKind
	Message     string
}

// Notifier 由调用方的事务写入通知；通知与触发它的写操作同生同灭
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, n Notice) error
}

// NotificationService 通知中心：只有接收者可以读取和标记已读
type NotificationService interface {
	Notifier
	List(ctx context.Context, caller identity.Identity, page, pageSize int) ([]NotificationView, error)
	MarkRead(ctx context.Context, caller identity.Identity, notificationID uint64) (*NotificationView, error)
	MarkAllRead(ctx context.Context, caller identity.Identity) (int64, error)
	UnreadCount(ctx context.Context, caller identity.Identity) (int64, error)
}

type notificationEvent struct {
	NotificationID uint64                 `json:"notification_id"`
	RecipientID    uint64                 `json:"recipient_id"`
	ActorID        uint64                 `json:"actor_id"`
	PostID         *uint64                `json:"post_id,omitempty"`
	Kind           model.NotificationKind `json:"kind"`
	Message        string                 `json:"message"`
	CreatedAt      time.Time              `json:"created_at"`
}

type notificationService struct {
	db     *gorm.DB
	repo   repository.NotificationRepository
	outbox repository.OutboxRepository
}

// NewNotificationService outbox 为 nil 时不写 outbox（没有 relay 消费）
func NewNotificationService(db *gorm.DB, repo repository.NotificationRepository, outbox repository.OutboxRepository) NotificationService {
	return &notificationService{db: db, repo: repo, outbox: outbox}
}

func (s *notificationService) Notify(ctx context.Context, tx *gorm.DB, n Notice) error {
	now := time.Now().UTC()
	row := &model.Notification{
		RecipientID: n.RecipientID,
		ActorID:     n.ActorID,
		PostID:      n.PostID,
		Kind:        n.Kind,
		Message:     n.Message,
		CreatedAt:   now,
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return err
	}
	metrics.NotificationCreated(string(n.Kind))
	if s.outbox == nil {
		return nil
	}
	payload, err := json.Marshal(notificationEvent{
		NotificationID: row.ID,
		RecipientID:    row.RecipientID,
		ActorID:        row.ActorID,
		PostID:         row.PostID,
		Kind:           row.Kind,
		Message:        row.Message,
		CreatedAt:      now,
	})
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, &model.Outbox{
		ID:          uuid.New().String(),
		EventType:   EventNotificationCreated,
		RecipientID: row.RecipientID,
		Payload:     string(payload),
		Status:      model.OutboxPending,
		CreatedAt:   now,
	})
}

func (s *notificationService) List(ctx context.Context, caller identity.Identity, page, pageSize int) ([]NotificationView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	offset, limit := pageOffset(page, pageSize)
	rows, err := s.repo.ListByRecipient(ctx, caller.UserID, offset, limit)
	if err != nil {
		return nil, storeErr(err, "")
	}
	res := make([]NotificationView, len(rows))
	for i, n := range rows {
		res[i] = newNotificationView(n)
	}
	return res, nil
}

// MarkRead 幂等；不属于调用者的通知一律按不存在处理
func (s *notificationService) MarkRead(ctx context.Context, caller identity.Identity, notificationID uint64) (*NotificationView, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	var n *model.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.MarkRead(ctx, notificationID, caller.UserID); err != nil {
			return storeErr(err, "")
		}
		var err error
		n, err = repo.GetForRecipient(ctx, notificationID, caller.UserID)
		return storeErr(err, "notification not found")
	})
	if err != nil {
		return nil, err
	}
	v := newNotificationView(n)
	return &v, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, caller identity.Identity) (int64, error) {
	if err := caller.Require(); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, caller.UserID)
	if err != nil {
		return 0, storeErr(err, "")
	}
	return n, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, caller identity.Identity) (int64, error) {
	if err := caller.Require(); err != nil {
		return 0, err
	}
	n, err := s.repo.CountUnread(ctx, caller.UserID)
	if err != nil {
		return 0, storeErr(err, "")
	}
	return n, nil
}
