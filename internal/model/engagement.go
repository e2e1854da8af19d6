package model

import "time"

// PostLike 点赞关系；(post_id, user_id) 复合主键避免重复点赞
type PostLike struct {
	PostID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_post_like_user"`
	CreatedAt time.Time `gorm:"index"`
}

func (PostLike) TableName() string { return "post_likes" }

// CommentLike 评论点赞关系
type CommentLike struct {
	CommentID uint64    `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_comment_like_user"`
	CreatedAt time.Time `gorm:"index"`
}

func (CommentLike) TableName() string { return "comment_likes" }

// Bookmark 收藏关系
type Bookmark struct {
	PostID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_bookmark_user"`
	CreatedAt time.Time `gorm:"index"`
}

func (Bookmark) TableName() string { return "bookmarks" }
