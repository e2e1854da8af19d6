package model

import "time"

type NotificationKind string

const (
	NotificationPostLiked     NotificationKind = "post_liked"
	NotificationPostCommented NotificationKind = "post_commented"
)

// Notification 站内通知；只允许 is_read 从 false 变为 true
type Notification struct {
	ID          uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipientID uint64           `gorm:"not null;index:idx_notification_recipient" json:"recipient"`
	ActorID     uint64           `gorm:"not null" json:"actor_id"`
	Actor       User             `gorm:"foreignKey:ActorID" json:"-"`
	PostID      *uint64          `json:"post_id,omitempty"`
	Kind        NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	IsRead      bool             `gorm:"not null;default:false;index:idx_notification_recipient" json:"is_read"`
	CreatedAt   time.Time        `gorm:"index" json:"timestamp"`
}

func (Notification) TableName() string { return "notifications" }
