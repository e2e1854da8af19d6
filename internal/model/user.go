package model

import "time"

// Role 封闭角色枚举
type Role string

const (
	RoleGuest  Role = "Guest"
	RoleAuthor Role = "Author"
	RoleAdmin  Role = "Admin"
)

// User 注册用户
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:Guest" json:"role"`
	Bio          string    `gorm:"type:text" json:"bio"`
	AvatarURL    string    `gorm:"type:varchar(512)" json:"avatar_url"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DefaultBio is stored for accounts that never wrote one.
const DefaultBio = "This user has not written a bio yet."
