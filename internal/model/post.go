package model

import "time"

// Post 博文；点赞数由 post_likes 实时计算，不做冗余计数
type Post struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID  uint64    `gorm:"not null;index:idx_post_author" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"-"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageURL  string    `gorm:"type:varchar(512)" json:"image_url"`
	VideoURL  string    `gorm:"type:varchar(512)" json:"video_url"`
	Category  string    `gorm:"type:varchar(100);index:idx_post_category" json:"category"`
	Tags      string    `gorm:"type:varchar(200)" json:"tags"`
	CreatedAt time.Time `gorm:"index:idx_post_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "posts" }

// Comment 评论，随所属 Post 级联删除
type Comment struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    uint64    `gorm:"not null;index:idx_comment_post" json:"post_id"`
	Post      Post      `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID  uint64    `gorm:"not null;index:idx_comment_author" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_comment_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }
