package model

import "time"

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
)

// Outbox 活动事件外发盒，与业务写入同一事务落地，由 relay 投递到 Kafka
type Outbox struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)"`
	EventType   string     `gorm:"type:varchar(64);not null"`
	RecipientID uint64     `gorm:"index:idx_outbox_recipient"`
	Payload     string     `gorm:"type:text;not null"`
	Status      string     `gorm:"type:varchar(16);index:idx_outbox_status_created"` // pending, processing, done
	Attempts    int        `gorm:"not null;default:0"`
	CreatedAt   time.Time  `gorm:"index:idx_outbox_status_created"`
	ClaimedAt   *time.Time // 领取时间；processing 超过租期视为 worker 已失联
	ProcessedAt *time.Time
}

func (Outbox) TableName() string { return "outbox" }

// All 返回需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Post{},
		&Comment{},
		&PostLike{},
		&CommentLike{},
		&Bookmark{},
		&Notification{},
		&Outbox{},
	}
}
